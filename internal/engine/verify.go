package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/source"
	"github.com/bianoble/repolock/internal/store"
)

// VerifyEngine checks pins against upstream refs and, optionally, against
// the fetched content they point to.
type VerifyEngine struct {
	// Refs resolves the current upstream commit. Nil skips the upstream
	// check.
	Refs source.RefResolver
	// CheckContent reports pins whose content path is gone.
	CheckContent bool
	// HashContent rehashes content paths and compares with the pinned hash.
	// Only hashes produced by the git fetcher can be recomputed.
	HashContent bool
	Logger      *slog.Logger
}

// Verify checks the named paths, or every active entry when paths is empty.
func (e *VerifyEngine) Verify(ctx context.Context, lf *lock.Lockfile, paths []string) (*VerifyResult, error) {
	log := orDiscard(e.Logger)
	result := &VerifyResult{}

	if len(paths) == 0 {
		paths = activePaths(lf)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, ok := lf.Entries[p]
		if !ok {
			result.Errors = append(result.Errors, ProjectError{Path: p, Err: &lock.Error{Kind: lock.KindPathNotFound, Path: p}})
			continue
		}
		if entry.Lock == nil {
			result.Unlocked = append(result.Unlocked, p)
			continue
		}

		clean := true
		if e.CheckContent || e.HashContent {
			exists, delta, err := e.checkContent(p, entry.Lock)
			switch {
			case err != nil:
				result.Errors = append(result.Errors, ProjectError{Path: p, Err: err})
				clean = false
			case !exists:
				result.Missing = append(result.Missing, p)
				clean = false
			case delta != nil:
				result.Corrupt = append(result.Corrupt, *delta)
				clean = false
			}
		}

		if e.Refs != nil {
			delta, err := e.checkUpstream(ctx, entry)
			switch {
			case err != nil:
				result.Errors = append(result.Errors, ProjectError{Path: p, Err: err})
				clean = false
			case delta != nil:
				result.Changed = append(result.Changed, *delta)
				clean = false
			}
		}

		if clean {
			result.UpToDate = append(result.UpToDate, p)
		}
		log.Debug("verified", slog.String("path", p), slog.Bool("clean", clean))
	}

	return result, nil
}

// checkContent reports whether the content path exists and, when hashing,
// how its hash differs from the pin.
func (e *VerifyEngine) checkContent(path string, l *lock.Lock) (bool, *ProjectDelta, error) {
	if _, err := os.Stat(l.ContentPath); os.IsNotExist(err) {
		return false, nil, nil
	} else if err != nil {
		return false, nil, err
	}
	if !e.HashContent {
		return true, nil, nil
	}
	got, err := store.HashTree(l.ContentPath)
	if err != nil {
		return true, nil, err
	}
	if got != l.ContentHash {
		return true, &ProjectDelta{Path: path, Before: l.ContentHash, After: got}, nil
	}
	return true, nil, nil
}

func (e *VerifyEngine) checkUpstream(ctx context.Context, entry *lock.Entry) (*ProjectDelta, error) {
	ref := entry.Project.RepoRef
	current := ref.Revision
	if !source.IsCommitID(current) {
		var err error
		current, err = e.Refs.ResolveRef(ctx, ref.RepoURL, ref.Revision)
		if err != nil {
			return nil, err
		}
	}
	if source.SameCommit(current, entry.Lock.Commit) {
		return nil, nil
	}
	return &ProjectDelta{
		Path:   entry.Project.Path,
		Before: shortCommit(entry.Lock.Commit),
		After:  shortCommit(current),
	}, nil
}

func activePaths(lf *lock.Lockfile) []string {
	var out []string
	for _, p := range sortedKeys(lf) {
		if lf.Entries[p].Project.Active {
			out = append(out, p)
		}
	}
	return out
}
