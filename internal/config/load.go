package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults and validates a repolock.yaml configuration file.
func Load(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg = WithDefaults(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// HierarchicalOptions controls LoadHierarchical.
type HierarchicalOptions struct {
	// ProjectPath is the project-level config path (required).
	ProjectPath string

	// SystemConfigPath and UserConfigPath override the OS defaults.
	SystemConfigPath string
	UserConfigPath   string

	// NoInherit loads only the project config. REPOLOCK_NO_INHERIT has the
	// same effect.
	NoInherit bool
}

// HierarchicalResult is a merged config with the layers it came from.
type HierarchicalResult struct {
	Config *Config
	Layers []ConfigLayerInfo
}

// LoadHierarchical loads the system, user and project configs, merges them
// from lowest to highest precedence, and validates the result. Missing
// system and user configs are skipped; the project config must exist.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	if opts.NoInherit || EnvNoInherit() {
		cfg, err := Load(opts.ProjectPath)
		if err != nil {
			return nil, err
		}
		return &HierarchicalResult{
			Config: cfg,
			Layers: []ConfigLayerInfo{{Path: opts.ProjectPath, Level: LevelProject, Loaded: true}},
		}, nil
	}

	layers := DiscoverPaths(DiscoverOptions{
		ProjectPath:      opts.ProjectPath,
		SystemConfigPath: opts.SystemConfigPath,
		UserConfigPath:   opts.UserConfigPath,
	})

	var configs []*Config
	for i := range layers {
		l := &layers[i]
		cfg, err := parseFile(l.Path)
		if err != nil {
			if l.Level != LevelProject && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			l.Err = err
			return nil, err
		}
		l.Loaded = true
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, err
	}
	cfg, err := finish(merged)
	if err != nil {
		return nil, err
	}
	return &HierarchicalResult{Config: cfg, Layers: layers}, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", cfg.Version))
	}

	if cfg.Manifest.File == "" {
		errs = append(errs, "manifest: 'file' is required, add 'file: default.xml' to the manifest section")
	}
	if cfg.Manifest.URL == "" {
		errs = append(errs, "manifest: 'url' is required, add the address the manifest repository was cloned from")
	}
	for i, lm := range cfg.Manifest.LocalManifests {
		if lm == "" {
			errs = append(errs, fmt.Sprintf("manifest: local_manifests[%d] is empty", i))
		}
	}

	for i, f := range cfg.Devices.Files {
		if f == "" {
			errs = append(errs, fmt.Sprintf("devices: files[%d] is empty", i))
		}
	}

	for _, from := range slices.Sorted(maps.Keys(cfg.Discovery.BranchRemap)) {
		if to := cfg.Discovery.BranchRemap[from]; from == "" || to == "" {
			errs = append(errs, fmt.Sprintf("discovery: branch_remap entry '%s: %s' must name both branches", from, to))
		}
	}

	switch cfg.Fetch.Fetcher {
	case FetcherNix, FetcherGit:
		// valid
	case "":
		errs = append(errs, "fetch: 'fetcher' is required, must be one of: nix, git")
	default:
		errs = append(errs, fmt.Sprintf("fetch: unknown fetcher '%s', must be one of: nix, git", cfg.Fetch.Fetcher))
	}

	switch cfg.Fetch.Resolver {
	case ResolverCLI, ResolverNative:
		// valid
	case "":
		errs = append(errs, "fetch: 'resolver' is required, must be one of: cli, native")
	default:
		errs = append(errs, fmt.Sprintf("fetch: unknown resolver '%s', must be one of: cli, native", cfg.Fetch.Resolver))
	}

	if cfg.Fetch.StoreDir != "" && cfg.Fetch.Fetcher != FetcherGit {
		errs = append(errs, "fetch: 'store_dir' is only used by the git fetcher")
	}

	return errs
}
