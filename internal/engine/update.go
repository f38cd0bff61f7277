package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/devices"
	"github.com/bianoble/repolock/internal/discovery"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
	"github.com/pmezard/go-difflib/difflib"
)

// UpdateEngine reconciles the lockfile with the manifest and device
// metadata, discovers device dependencies and pins every active project.
type UpdateEngine struct {
	Config *config.Config
	// Dir is the directory relative paths in Config are resolved against.
	Dir     string
	Fetcher source.Fetcher
	Refs    source.RefResolver
	Logger  *slog.Logger
}

// UpdateOptions configures an update operation.
type UpdateOptions struct {
	// DryRun reconciles in memory without fetching or writing, and reports
	// the lockfile change as a unified diff.
	DryRun bool
	// DropBroken removes projects whose revision no longer exists instead
	// of failing.
	DropBroken    bool
	SkipDiscovery bool
	// Cleanup releases the content of each newly pinned project once its
	// pin is saved. It is also enabled by fetch.cleanup in the config.
	Cleanup bool
}

// Update runs a full update pass. The lockfile is written after
// reconciliation, after discovery and after every changed pin, and is
// marked completed at the end.
func (e *UpdateEngine) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	log := e.logger()
	cfg := e.Config
	result := &UpdateResult{}

	pinOpts := lock.UpdateAllOptions{DropBroken: opts.DropBroken}
	if !opts.DryRun && (opts.Cleanup || cfg.Fetch.Cleanup) {
		c, ok := e.Fetcher.(source.Cleaner)
		if !ok {
			return nil, fmt.Errorf("fetcher %s cannot release fetched content", cfg.Fetch.Fetcher)
		}
		pinOpts.Cleanup = c
	}

	m, err := ResolveManifest(e.Dir, cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest: %w", err)
	}
	log.Info("manifest resolved", slog.Int("projects", len(m.Projects)), slog.Int("remotes", len(m.Remotes)))

	lockPath := e.path(cfg.Lockfile)
	ls, completed, err := lock.Open(lockPath, lock.Options{Fetcher: e.Fetcher, Refs: e.Refs, Logger: log})
	if err != nil {
		return nil, err
	}
	if !completed && ls.Len() > 0 {
		log.Info("resuming interrupted update", slog.String("lockfile", lockPath))
	}
	before := ls.Lockfile(completed)
	if opts.DryRun {
		ls = ls.Detached()
	}

	if err := Reconcile(ls, m); err != nil {
		return nil, err
	}
	result.Tagged = devices.TagByGroup(ls, cfg.Devices.GroupPrefix, log)

	if opts.DryRun {
		after := ls.Lockfile(completed)
		result.Diff = lock.Diff(before, after)
		result.Preview, err = unifiedDiff(lockPath, before, after)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := ls.Save(false); err != nil {
		return nil, err
	}

	if !opts.SkipDiscovery && len(cfg.Devices.Files) > 0 {
		seeds, skipped, err := e.seeds()
		if err != nil {
			return nil, err
		}
		result.SkippedDevices = skipped
		for _, name := range skipped {
			log.Warn("device has no matching branch", slog.String("device", name), slog.String("branch", cfg.Devices.Branch))
		}

		eng := &discovery.Engine{Lockset: ls, Manifest: m, Options: discoveryOptions(cfg.Discovery), Logger: log}
		result.Discovery, err = eng.Run(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("discovering dependencies: %w", err)
		}
	}

	result.Pins, err = ls.UpdateAll(ctx, pinOpts)
	if err != nil {
		return nil, err
	}
	if err := ls.Save(true); err != nil {
		return nil, err
	}

	result.Diff = lock.Diff(before, ls.Lockfile(true))
	return result, nil
}

// Reconcile marks every entry inactive and adds the manifest projects back,
// so that only projects still in the manifest stay active.
func Reconcile(ls *lock.Lockset, m *manifest.Manifest) error {
	ls.DeactivateAll()
	for _, p := range m.SortedProjects() {
		if err := ls.AddProject(p); err != nil {
			return fmt.Errorf("adding manifest project: %w", err)
		}
	}
	return nil
}

func (e *UpdateEngine) seeds() ([]manifest.Project, []string, error) {
	cfg := e.Config
	files := make([]string, len(cfg.Devices.Files))
	for i, f := range cfg.Devices.Files {
		files[i] = e.path(f)
	}
	devs, err := devices.LoadFiles(files)
	if err != nil {
		return nil, nil, err
	}
	devs = devices.Filter(devs, cfg.Devices.Allow, cfg.Devices.Block)

	remap := cfg.Discovery.BranchRemap
	if remap == nil {
		remap = discovery.DefaultOptions().BranchRemap
	}
	seeds, skipped := devices.Seeds(devs, cfg.Devices.Branch, remap)
	return seeds, skipped, nil
}

func discoveryOptions(d config.Discovery) discovery.Options {
	return discovery.Options{
		DependenciesFile:    d.DependenciesFile,
		VendorPrefix:        d.VendorPrefix,
		OrgPrefix:           d.OrgPrefix,
		BranchRemap:         d.BranchRemap,
		KeepMissingBranches: d.KeepMissingBranches,
	}
}

func unifiedDiff(name string, before, after *lock.Lockfile) (string, error) {
	a, err := lock.Marshal(before)
	if err != nil {
		return "", err
	}
	b, err := lock.Marshal(after)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "a/" + filepath.Base(name),
		ToFile:   "b/" + filepath.Base(name),
		Context:  3,
	})
}

func (e *UpdateEngine) path(p string) string {
	return resolvePath(e.Dir, p)
}

func (e *UpdateEngine) logger() *slog.Logger {
	return orDiscard(e.Logger)
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
