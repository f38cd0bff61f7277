package engine

import (
	"maps"
	"slices"
	"strings"

	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
)

// StatusEngine summarizes the state of a lockfile without touching the
// network.
type StatusEngine struct{}

// Project states reported by Status.
const (
	StateLocked        = "locked"
	StateUnlocked      = "unlocked"
	StateInactive      = "inactive"
	StateMissingBranch = "missing-branch"
)

// Status returns one entry per lockfile path, in path order. When paths is
// non-empty only those entries are reported; unknown paths are an error.
func (e *StatusEngine) Status(lf *lock.Lockfile, paths []string) ([]ProjectStatus, error) {
	if len(paths) == 0 {
		paths = sortedKeys(lf)
	}

	statuses := make([]ProjectStatus, 0, len(paths))
	for _, p := range paths {
		entry, ok := lf.Entries[p]
		if !ok {
			return nil, &lock.Error{Kind: lock.KindPathNotFound, Path: p}
		}
		statuses = append(statuses, statusOf(p, entry))
	}
	return statuses, nil
}

func statusOf(path string, entry *lock.Entry) ProjectStatus {
	s := ProjectStatus{
		Path:       path,
		Revision:   entry.Project.RepoRef.Revision,
		Categories: categoriesString(entry.Project.Categories),
		PinnedAt:   "(not locked)",
	}
	if entry.Lock != nil {
		s.PinnedAt = shortCommit(entry.Lock.Commit)
	}

	switch {
	case !entry.Project.Active:
		s.State = StateInactive
	case entry.Project.LineageDeps.Is(manifest.DepsMissingBranch):
		s.State = StateMissingBranch
	case entry.Lock == nil:
		s.State = StateUnlocked
	default:
		s.State = StateLocked
	}
	return s
}

func categoriesString(cs manifest.Categories) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

// CountStates tallies statuses by state.
func CountStates(statuses []ProjectStatus) map[string]int {
	counts := make(map[string]int)
	for _, s := range statuses {
		counts[s.State]++
	}
	return counts
}

func sortedKeys(lf *lock.Lockfile) []string {
	return slices.Sorted(maps.Keys(lf.Entries))
}
