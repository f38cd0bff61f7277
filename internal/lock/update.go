package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

// UpdateLock pins project to the commit its revision currently points at.
//
// A revision that is already a commit id is used as-is without asking refs.
// When prev already holds the target commit it is returned unchanged and
// fetcher is not called. Otherwise the commit is fetched and the fetcher's
// reported commit must equal the target.
func UpdateLock(ctx context.Context, project manifest.Project, prev *Lock, refs source.RefResolver, fetcher source.Fetcher) (*Lock, bool, error) {
	ref := project.RepoRef

	target := ref.Revision
	if !source.IsCommitID(target) {
		if refs == nil {
			return nil, false, fmt.Errorf("no ref resolver configured to resolve '%s'", ref.Revision)
		}
		commit, err := refs.ResolveRef(ctx, ref.RepoURL, ref.Revision)
		if err != nil {
			return nil, false, err
		}
		target = commit
	}
	target = strings.ToLower(target)

	if prev != nil && source.SameCommit(prev.Commit, target) {
		return prev, false, nil
	}

	if fetcher == nil {
		return nil, false, fmt.Errorf("no fetcher configured to fetch %s", target)
	}
	res, err := fetcher.Fetch(ctx, source.FetchRequest{
		URL:             ref.RepoURL,
		Revision:        target,
		FetchLFS:        ref.FetchLFS,
		FetchSubmodules: ref.FetchSubmodules,
	})
	if err != nil {
		return nil, false, err
	}
	if !source.SameCommit(res.Commit, target) {
		return nil, false, &CommitMismatchError{Revision: ref.Revision, Expected: target, Got: res.Commit}
	}

	return &Lock{
		Commit:      strings.ToLower(res.Commit),
		ContentHash: res.ContentHash,
		ContentPath: res.ContentPath,
		Timestamp:   res.Timestamp,
	}, true, nil
}

// Update pins the project at path and, when the pin changed, saves the
// lockset right away so an interrupted run keeps its progress.
func (ls *Lockset) Update(ctx context.Context, path string) (bool, error) {
	e, ok := ls.entries[path]
	if !ok {
		return false, &Error{Kind: KindPathNotFound, Path: path}
	}

	l, changed, err := UpdateLock(ctx, e.Project, e.Lock, ls.opts.Refs, ls.opts.Fetcher)
	if err != nil {
		return false, &Error{Kind: KindUpdateLock, Path: path, Err: err}
	}
	if !changed {
		return false, nil
	}

	e.Lock = l
	ls.log.Info("pinned", slog.String("path", path), slog.String("commit", l.Commit))
	if err := ls.Save(false); err != nil {
		return true, err
	}
	return true, nil
}

// UpdateAllOptions tunes UpdateAll.
type UpdateAllOptions struct {
	// DropBroken removes projects whose revision no longer exists at the
	// remote instead of failing.
	DropBroken bool
	// Cleanup, when set, releases the fetched content of every changed pin
	// right after it is recorded. EnsureStorePath brings it back on demand.
	Cleanup source.Cleaner
}

// UpdateAllResult lists the outcome of UpdateAll per project path.
type UpdateAllResult struct {
	Updated   []string
	Unchanged []string
	Broken    []string
}

// UpdateAll pins every active project in path order. Each changed pin is
// persisted before moving on, so a failed run can be resumed.
func (ls *Lockset) UpdateAll(ctx context.Context, opts UpdateAllOptions) (*UpdateAllResult, error) {
	paths := ls.ActivePaths()
	result := &UpdateAllResult{}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ls.log.Debug("updating lock",
			slog.String("path", path),
			slog.Int("index", i+1),
			slog.Int("total", len(paths)))

		changed, err := ls.Update(ctx, path)
		switch {
		case err != nil && opts.DropBroken && errors.Is(err, source.ErrRevNotFound):
			ls.log.Warn("revision not found, dropping project",
				slog.String("path", path),
				slog.String("revision", ls.entries[path].Project.RepoRef.Revision))
			ls.Remove(path)
			result.Broken = append(result.Broken, path)
		case err != nil:
			return result, err
		case changed:
			result.Updated = append(result.Updated, path)
			if opts.Cleanup != nil {
				if err := ls.release(ctx, opts.Cleanup, path); err != nil {
					return result, err
				}
			}
		default:
			result.Unchanged = append(result.Unchanged, path)
		}
	}

	if len(result.Broken) > 0 {
		if err := ls.Save(false); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (ls *Lockset) release(ctx context.Context, c source.Cleaner, path string) error {
	cp := ls.entries[path].Lock.ContentPath
	if cp == "" {
		return nil
	}
	ls.log.Debug("releasing content", slog.String("path", path), slog.String("content", cp))
	if err := c.Cleanup(ctx, cp); err != nil {
		return &Error{Kind: KindStorePath, Path: path, Err: fmt.Errorf("releasing %s: %w", cp, err)}
	}
	return nil
}

// EnsureStorePath makes sure the pinned content of the project at path is
// present, fetching its locked commit again when the content path is gone.
func (ls *Lockset) EnsureStorePath(ctx context.Context, path string) error {
	e, ok := ls.entries[path]
	if !ok {
		return &Error{Kind: KindPathNotFound, Path: path}
	}
	if e.Lock == nil {
		return &Error{Kind: KindProjectNotLocked, Path: path}
	}
	if e.Lock.ContentPath != "" {
		if _, err := os.Stat(e.Lock.ContentPath); err == nil {
			return nil
		}
	}

	if ls.opts.Fetcher == nil {
		return &Error{Kind: KindStorePath, Path: path, Err: errors.New("no fetcher configured")}
	}
	ref := e.Project.RepoRef
	ls.log.Info("restoring content", slog.String("path", path), slog.String("commit", e.Lock.Commit))
	res, err := ls.opts.Fetcher.Fetch(ctx, source.FetchRequest{
		URL:             ref.RepoURL,
		Revision:        e.Lock.Commit,
		FetchLFS:        ref.FetchLFS,
		FetchSubmodules: ref.FetchSubmodules,
	})
	if err != nil {
		return &Error{Kind: KindStorePath, Path: path, Err: err}
	}
	if !source.SameCommit(res.Commit, e.Lock.Commit) {
		return &Error{Kind: KindStorePath, Path: path, Err: &CommitMismatchError{
			Revision: e.Lock.Commit, Expected: e.Lock.Commit, Got: res.Commit,
		}}
	}
	if res.ContentHash != e.Lock.ContentHash {
		ls.log.Warn("restored content hash differs from lock",
			slog.String("path", path),
			slog.String("locked", e.Lock.ContentHash),
			slog.String("fetched", res.ContentHash))
	}

	if res.ContentPath != e.Lock.ContentPath {
		e.Lock.ContentPath = res.ContentPath
		return ls.Save(false)
	}
	return nil
}
