package discovery

import (
	"strings"

	"github.com/bianoble/repolock/internal/manifest"
)

// Dependency is one entry of a dependencies file.
type Dependency struct {
	TargetPath string `json:"target_path"`
	Repository string `json:"repository"`
	Remote     string `json:"remote,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

// Options controls how declared dependencies are turned into projects.
// Zero fields take the values of DefaultOptions.
type Options struct {
	// DependenciesFile is the path of the dependencies file inside a
	// fetched repository.
	DependenciesFile string
	// VendorPrefix marks remotes whose repository names are used as-is.
	VendorPrefix string
	// OrgPrefix is prepended to repository names on every other remote.
	OrgPrefix string
	// BranchRemap translates inherited branch names.
	BranchRemap map[string]string
	// KeepMissingBranches keeps projects whose branch does not exist in
	// the lockset after discovery.
	KeepMissingBranches bool
}

// DefaultOptions returns the LineageOS conventions.
func DefaultOptions() Options {
	return Options{
		DependenciesFile: "lineage.dependencies",
		VendorPrefix:     "aosp-",
		OrgPrefix:        "LineageOS/",
		BranchRemap:      map[string]string{"lineage-21.0": "lineage-21"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DependenciesFile == "" {
		o.DependenciesFile = d.DependenciesFile
	}
	if o.VendorPrefix == "" {
		o.VendorPrefix = d.VendorPrefix
	}
	if o.OrgPrefix == "" {
		o.OrgPrefix = d.OrgPrefix
	}
	if o.BranchRemap == nil {
		o.BranchRemap = d.BranchRemap
	}
	return o
}

// RemapBranch returns the name branch is known under in device and
// dependency repositories.
func RemapBranch(table map[string]string, branch string) string {
	if to, ok := table[branch]; ok {
		return to
	}
	return branch
}

const headsPrefix = "refs/heads/"

// ResolveDependencies turns declared dependencies into projects carrying
// categories.
//
// This follows LineageOS roomservice, including where it is wrong: a
// dependency without a branch inherits the revision of its remote rather
// than that of the repository it belongs to, and every remote not named
// with the vendor prefix gets the organization prefix on its repository
// names.
func ResolveDependencies(m *manifest.Manifest, declared []Dependency, categories manifest.Categories, opts Options) ([]manifest.Project, error) {
	opts = opts.withDefaults()

	projects := make([]manifest.Project, 0, len(declared))
	for _, dep := range declared {
		var remote manifest.Remote
		switch {
		case dep.Remote != "":
			r, ok := m.Remotes[dep.Remote]
			if !ok {
				return nil, &Error{Kind: KindUnknownRemote, Remote: dep.Remote, Path: dep.TargetPath}
			}
			remote = r
		case m.DefaultRemote != nil:
			remote = *m.DefaultRemote
		default:
			return nil, &Error{Kind: KindMissingRemote, Path: dep.TargetPath}
		}

		var revision string
		if dep.Branch != "" {
			revision = headsPrefix + dep.Branch
		} else {
			if remote.Revision == "" {
				return nil, &Error{Kind: KindRemoteMissingRevision, Remote: remote.Name, Path: dep.TargetPath}
			}
			revision = remote.Revision
			if branch, ok := strings.CutPrefix(revision, headsPrefix); ok {
				revision = headsPrefix + RemapBranch(opts.BranchRemap, branch)
			}
		}

		repo := dep.Repository
		if !strings.HasPrefix(remote.Name, opts.VendorPrefix) {
			repo = opts.OrgPrefix + repo
		}
		repoURL, err := manifest.JoinRepoURL(remote.URL, repo)
		if err != nil {
			return nil, &Error{Kind: KindResolve, Path: dep.TargetPath, Err: err}
		}

		projects = append(projects, manifest.Project{
			Path: dep.TargetPath,
			RepoRef: manifest.GitRepoRef{
				RepoURL:  repoURL,
				Revision: revision,
				FetchLFS: true,
			},
			Categories: manifest.NewCategories(categories...),
			Active:     true,
		})
	}
	return projects, nil
}
