package config

// Config represents the repolock.yaml configuration file.
type Config struct {
	Version   int       `yaml:"version"`
	Manifest  Manifest  `yaml:"manifest"`
	Lockfile  string    `yaml:"lockfile,omitempty"`
	Devices   Devices   `yaml:"devices,omitempty"`
	Discovery Discovery `yaml:"discovery,omitempty"`
	Fetch     Fetch     `yaml:"fetch,omitempty"`
}

// Manifest locates the repo manifest tree.
type Manifest struct {
	// Root is the directory holding the manifest files. Include names and
	// local manifests are resolved against it.
	Root string `yaml:"root,omitempty"`
	File string `yaml:"file"`
	// URL is the address the manifest repository was fetched from.
	// Relative remote fetch URLs are resolved against it.
	URL            string   `yaml:"url"`
	LocalManifests []string `yaml:"local_manifests,omitempty"`
}

// Devices selects the device metadata that seeds dependency discovery.
type Devices struct {
	Files       []string `yaml:"files,omitempty"`
	Branch      string   `yaml:"branch,omitempty"`
	Allow       []string `yaml:"allow,omitempty"`
	Block       []string `yaml:"block,omitempty"`
	GroupPrefix string   `yaml:"group_prefix,omitempty"`
}

// Discovery tunes how dependencies files are interpreted.
type Discovery struct {
	DependenciesFile    string            `yaml:"dependencies_file,omitempty"`
	VendorPrefix        string            `yaml:"vendor_prefix,omitempty"`
	OrgPrefix           string            `yaml:"org_prefix,omitempty"`
	BranchRemap         map[string]string `yaml:"branch_remap,omitempty"`
	KeepMissingBranches bool              `yaml:"keep_missing_branches,omitempty"`
}

// Fetch selects the collaborators used to pin projects.
type Fetch struct {
	Fetcher  string `yaml:"fetcher,omitempty"`  // "nix", "git"
	Resolver string `yaml:"resolver,omitempty"` // "cli", "native"
	StoreDir string `yaml:"store_dir,omitempty"`
	// Cleanup releases fetched content once a pin is saved during update,
	// and the content of pruned projects.
	Cleanup bool `yaml:"cleanup,omitempty"`
}

// Fetcher and resolver names.
const (
	FetcherNix     = "nix"
	FetcherGit     = "git"
	ResolverCLI    = "cli"
	ResolverNative = "native"
)

// DefaultLockfile is the lockfile name used when none is configured.
const DefaultLockfile = "repolock.lock"

// Defaults returns the values used for unset fields.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Manifest: Manifest{Root: ".", File: "default.xml"},
		Lockfile: DefaultLockfile,
		Fetch:    Fetch{Fetcher: FetcherNix, Resolver: ResolverCLI},
	}
}

// WithDefaults returns a copy of cfg with unset fields filled from Defaults.
// The version is left alone so that validation still sees what was written.
func WithDefaults(cfg *Config) *Config {
	d := Defaults()
	out := clone(cfg)
	if out.Manifest.Root == "" {
		out.Manifest.Root = d.Manifest.Root
	}
	if out.Manifest.File == "" {
		out.Manifest.File = d.Manifest.File
	}
	if out.Lockfile == "" {
		out.Lockfile = d.Lockfile
	}
	if out.Fetch.Fetcher == "" {
		out.Fetch.Fetcher = d.Fetch.Fetcher
	}
	if out.Fetch.Resolver == "" {
		out.Fetch.Resolver = d.Fetch.Resolver
	}
	return out
}
