// Package repolock provides the public Go library API for repolock.
//
// repolock pins every repository of a repo manifest, plus the dependency
// repositories discovered for each configured device, to an exact commit
// and content hash in a JSON lockfile. This package exposes a Client for
// embedding repolock in other Go programs.
//
// # Basic Usage
//
//	client, err := repolock.New(repolock.Options{
//	    ConfigPath: "/path/to/checkout/repolock.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Reconcile with the manifest, discover dependencies and pin
//	result, err := client.Update(ctx, repolock.UpdateOptions{})
//
//	// Check pins against upstream
//	verifyResult, err := client.Verify(ctx, nil)
package repolock

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

// Updater reconciles the lockfile with the manifest and pins every project.
type Updater interface {
	Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error)
}

// Verifier checks whether pinned revisions have moved upstream.
type Verifier interface {
	Verify(ctx context.Context, paths []string) (*VerifyResult, error)
}

// Pruner removes inactive projects from the lockfile.
type Pruner interface {
	Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error)
}

// Options configures a repolock client.
type Options struct {
	// ProjectRoot is the directory relative config paths are resolved
	// against. If empty, defaults to the directory containing ConfigPath.
	ProjectRoot string

	// ConfigPath is the path to the config file. Default: "repolock.yaml".
	ConfigPath string

	// LockfilePath overrides the lockfile named in the config.
	LockfilePath string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// Fetcher and Refs replace the collaborators named in the config.
	Fetcher source.Fetcher
	Refs    source.RefResolver

	Logger *slog.Logger
}

// Client is the main entry point for the repolock library.
// It implements Updater, Verifier and Pruner.
type Client struct {
	projectRoot  string
	configPath   string
	lockfilePath string
	noInherit    bool
	fetcher      source.Fetcher
	refs         source.RefResolver
	logger       *slog.Logger
}

// New creates a new repolock Client. Collaborators are created lazily from
// the config unless given in opts.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "repolock.yaml"
	}

	root := opts.ProjectRoot
	if root == "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		root = filepath.Dir(abs)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		projectRoot:  root,
		configPath:   opts.ConfigPath,
		lockfilePath: opts.LockfilePath,
		noInherit:    opts.NoInherit,
		fetcher:      opts.Fetcher,
		refs:         opts.Refs,
		logger:       logger,
	}, nil
}

func (c *Client) loadConfig() (*config.Config, error) {
	hr, err := config.LoadHierarchical(config.HierarchicalOptions{
		ProjectPath: c.configPath,
		NoInherit:   c.noInherit,
	})
	if err != nil {
		return nil, err
	}
	cfg := hr.Config
	if c.lockfilePath != "" {
		cfg.Lockfile = c.lockfilePath
	}
	return cfg, nil
}

func (c *Client) lockPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Lockfile) {
		return cfg.Lockfile
	}
	return filepath.Join(c.projectRoot, cfg.Lockfile)
}

func (c *Client) collaborators(cfg *config.Config) (source.Fetcher, source.RefResolver, error) {
	if c.fetcher != nil && c.refs != nil {
		return c.fetcher, c.refs, nil
	}
	f, r, err := engine.Collaborators(cfg.Fetch)
	if err != nil {
		return nil, nil, err
	}
	if c.fetcher != nil {
		f = c.fetcher
	}
	if c.refs != nil {
		r = c.refs
	}
	return f, r, nil
}

// Resolve reads and resolves the configured manifest tree.
func (c *Client) Resolve() (*manifest.Manifest, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.ResolveManifest(c.projectRoot, cfg.Manifest)
}

// Update reconciles the lockfile with the manifest, discovers device
// dependencies and pins every active project.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Lockfile = c.lockPath(cfg)

	eng := &engine.UpdateEngine{Config: cfg, Dir: c.projectRoot, Logger: c.logger}
	if !opts.DryRun {
		eng.Fetcher, eng.Refs, err = c.collaborators(cfg)
		if err != nil {
			return nil, err
		}
	}
	return eng.Update(ctx, opts)
}

// Status reports the state of all or the named lockfile entries.
func (c *Client) Status(paths []string) ([]ProjectStatus, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ls, completed, err := lock.Load(c.lockPath(cfg), lock.Options{Logger: c.logger})
	if err != nil {
		return nil, err
	}
	return (&engine.StatusEngine{}).Status(ls.Lockfile(completed), paths)
}

// Verify checks the pins of all active or the named projects against
// upstream refs.
func (c *Client) Verify(ctx context.Context, paths []string) (*VerifyResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ls, completed, err := lock.Load(c.lockPath(cfg), lock.Options{Logger: c.logger})
	if err != nil {
		return nil, err
	}
	_, refs, err := c.collaborators(cfg)
	if err != nil {
		return nil, err
	}

	eng := &engine.VerifyEngine{Refs: refs, CheckContent: true, Logger: c.logger}
	return eng.Verify(ctx, ls.Lockfile(completed), paths)
}

// Prune removes inactive projects from the lockfile.
func (c *Client) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	eng := &engine.PruneEngine{Logger: c.logger}
	if cfg.Fetch.Cleanup {
		f, _, err := c.collaborators(cfg)
		if err != nil {
			return nil, err
		}
		if cl, ok := f.(source.Cleaner); ok {
			eng.Cleaner = cl
		}
	}
	return eng.Prune(ctx, c.lockPath(cfg), opts)
}
