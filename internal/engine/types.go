package engine

import (
	"github.com/bianoble/repolock/internal/discovery"
	"github.com/bianoble/repolock/internal/lock"
)

// ProjectError represents an error associated with a specific project path.
type ProjectError struct {
	Path string
	Err  error
}

func (e ProjectError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e ProjectError) Unwrap() error {
	return e.Err
}

// ProjectDelta represents a pin that no longer matches upstream.
type ProjectDelta struct {
	Path   string
	Before string
	After  string
}

// UpdateResult holds the outcome of an update operation.
type UpdateResult struct {
	// Diff compares the lockfile before and after the run.
	Diff lock.DiffStats
	// Preview is a unified diff of the lockfile, set for dry runs only.
	Preview string

	Tagged         []string
	SkippedDevices []string
	Discovery      *discovery.Result // nil when discovery did not run
	Pins           *lock.UpdateAllResult
}

// ProjectStatus describes one lockfile entry.
type ProjectStatus struct {
	Path       string
	Revision   string
	PinnedAt   string
	Categories string
	State      string // "locked", "unlocked", "inactive", "missing-branch"
}

// VerifyResult holds the outcome of a verify operation.
type VerifyResult struct {
	UpToDate []string
	Changed  []ProjectDelta
	// Missing lists pins whose content path no longer exists.
	Missing []string
	// Corrupt lists pins whose content no longer hashes to the pinned value.
	Corrupt  []ProjectDelta
	Unlocked []string
	Errors   []ProjectError
}

// Clean reports whether verification found nothing to act on.
func (r *VerifyResult) Clean() bool {
	return len(r.Changed) == 0 && len(r.Missing) == 0 && len(r.Corrupt) == 0 &&
		len(r.Unlocked) == 0 && len(r.Errors) == 0
}

// PruneResult holds the outcome of a prune operation.
type PruneResult struct {
	Removed []string
	// Cleaned lists content paths released through the fetcher.
	Cleaned []string
	Errors  []ProjectError
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
