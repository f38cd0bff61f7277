package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

// Engine discovers the dependency projects of a set of device projects and
// adds them to a lockset.
type Engine struct {
	Lockset  *lock.Lockset
	Manifest *manifest.Manifest
	Options  Options
	Logger   *slog.Logger
}

// Result lists project paths touched by a discovery run.
type Result struct {
	// Visited holds every processed path in processing order.
	Visited []string
	// Discovered holds dependency paths added to the work list.
	Discovered []string
	// MissingBranches holds paths whose revision is absent at the remote.
	MissingBranches []string
	// Removed holds paths dropped from the lockset after the run.
	Removed []string
}

// Run adds seeds to the lockset and scans them and everything they depend
// on, transitively. Every visited project is pinned. Projects whose revision
// does not exist are marked as missing a branch instead of failing the run.
func (e *Engine) Run(ctx context.Context, seeds []manifest.Project) (*Result, error) {
	log := e.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts := e.Options.withDefaults()
	ls := e.Lockset
	result := &Result{}

	var queue []string
	queued := make(map[string]bool)
	enqueue := func(path string) bool {
		if queued[path] {
			return false
		}
		queued[path] = true
		queue = append(queue, path)
		return true
	}

	roots := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if err := ls.AddProject(s); err != nil {
			return nil, err
		}
		roots = append(roots, s.Path)
		enqueue(s.Path)
	}

	log.Info("discovering dependencies", slog.Int("seeds", len(seeds)))

	// The queue grows while it is walked, so it is indexed rather than
	// ranged over.
	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := queue[i]
		result.Visited = append(result.Visited, path)
		entry, _ := ls.Get(path)

		log.Debug("probing", slog.String("path", path), slog.Int("index", i+1), slog.Int("queued", len(queue)))

		if _, err := ls.Update(ctx, path); err != nil {
			if errors.Is(err, source.ErrRevNotFound) {
				log.Warn("branch missing at remote",
					slog.String("path", path),
					slog.String("revision", entry.Project.RepoRef.Revision))
				entry.Project.LineageDeps = manifest.MissingBranch()
				result.MissingBranches = append(result.MissingBranches, path)
				continue
			}
			return result, err
		}
		if err := ls.EnsureStorePath(ctx, path); err != nil {
			return result, err
		}

		declared, found, err := readDependencies(entry.Lock.ContentPath, opts.DependenciesFile)
		if err != nil {
			var de *Error
			if errors.As(err, &de) {
				de.Path = path
			}
			return result, err
		}
		if !found {
			entry.Project.LineageDeps = manifest.NoDependenciesFile()
			continue
		}

		deps, err := ResolveDependencies(e.Manifest, declared, entry.Project.Categories.DeviceSpecific(), opts)
		if err != nil {
			return result, &Error{Kind: KindResolve, Path: path, Err: err}
		}

		paths := make([]string, 0, len(deps))
		for _, dep := range deps {
			if err := ls.AddProject(dep); err != nil {
				if lock.IsKind(err, lock.KindDuplicateProject) {
					return result, &Error{Kind: KindConflictingEntries, Path: dep.Path, Err: err}
				}
				return result, err
			}
			paths = append(paths, dep.Path)
			if enqueue(dep.Path) {
				result.Discovered = append(result.Discovered, dep.Path)
			}
		}
		entry.Project.LineageDeps = manifest.SomeDependencies(paths)
		log.Debug("dependencies found", slog.String("path", path), slog.Any("dependencies", paths))
	}

	Propagate(ls, roots)

	if !opts.KeepMissingBranches {
		result.Removed = RemoveMissingBranches(ls)
		for _, p := range result.Removed {
			log.Info("removed project with missing branch", slog.String("path", p))
		}
	}

	if err := ls.Save(false); err != nil {
		return result, err
	}
	log.Info("discovery finished",
		slog.Int("visited", len(result.Visited)),
		slog.Int("discovered", len(result.Discovered)),
		slog.Int("missing_branches", len(result.MissingBranches)))
	return result, nil
}

// readDependencies reads the dependencies file of a fetched repository. The
// bool is false when the file does not exist.
func readDependencies(contentPath, name string) ([]Dependency, bool, error) {
	data, err := os.ReadFile(filepath.Join(contentPath, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &Error{Kind: KindReadDependencies, File: name, Err: err}
	}

	var deps []Dependency
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, false, &Error{Kind: KindParseDependencies, File: name, Err: err}
	}
	for i, d := range deps {
		if d.TargetPath == "" {
			return nil, false, &Error{Kind: KindParseDependencies, File: name, Err: fmt.Errorf("entry %d has an empty target_path", i)}
		}
	}
	return deps, true, nil
}
