package engine

import (
	"context"
	"log/slog"

	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/source"
)

// PruneEngine removes inactive entries from a lockfile: projects that left
// the manifest or were not rediscovered by the last update.
type PruneEngine struct {
	// Cleaner, when set, releases the fetched content of removed entries
	// that no remaining entry shares.
	Cleaner source.Cleaner
	Logger  *slog.Logger
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// Prune removes inactive entries from the lockfile at lockPath. The
// lockfile keeps its completed flag.
func (e *PruneEngine) Prune(ctx context.Context, lockPath string, opts PruneOptions) (*PruneResult, error) {
	log := orDiscard(e.Logger)
	ls, completed, err := lock.Load(lockPath, lock.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	active := make(map[string]bool)
	live := make(map[string]bool)
	for _, p := range ls.ActivePaths() {
		active[p] = true
		if entry, _ := ls.Get(p); entry.Lock != nil {
			live[entry.Lock.ContentPath] = true
		}
	}

	result := &PruneResult{}
	cleaned := make(map[string]bool)
	for _, p := range ls.SortedPaths() {
		if active[p] {
			continue
		}
		entry, _ := ls.Get(p)
		result.Removed = append(result.Removed, p)

		if e.Cleaner != nil && entry.Lock != nil {
			cp := entry.Lock.ContentPath
			if cp != "" && !live[cp] && !cleaned[cp] {
				cleaned[cp] = true
				if opts.DryRun {
					result.Cleaned = append(result.Cleaned, cp)
				} else if err := e.Cleaner.Cleanup(ctx, cp); err != nil {
					result.Errors = append(result.Errors, ProjectError{Path: p, Err: err})
				} else {
					result.Cleaned = append(result.Cleaned, cp)
				}
			}
		}

		if !opts.DryRun {
			ls.Remove(p)
			log.Info("pruned", slog.String("path", p))
		}
	}

	if opts.DryRun || len(result.Removed) == 0 {
		return result, nil
	}
	if err := ls.Save(completed); err != nil {
		return nil, err
	}
	return result, nil
}
