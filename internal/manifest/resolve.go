package manifest

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// Remote is a remote with its fetch URL made absolute.
type Remote struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// Manifest is a fully resolved manifest tree.
type Manifest struct {
	BaseURL       string             `json:"base_url" yaml:"base_url"`
	Remotes       map[string]Remote  `json:"remotes" yaml:"remotes"`
	DefaultRemote *Remote            `json:"default_remote,omitempty" yaml:"default_remote,omitempty"`
	Projects      map[string]Project `json:"projects" yaml:"projects"`
}

// SortedProjects returns the projects ordered by path.
func (m *Manifest) SortedProjects() []Project {
	out := make([]Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Resolve turns a flat fragment into a Manifest. baseURL is the URL the
// manifest repository was fetched from; relative remote fetch URLs are
// resolved against its parent directory.
func Resolve(frag *Fragment, baseURL string) (*Manifest, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &Error{Kind: KindParseURL, Value: baseURL, Err: err}
	}

	m := &Manifest{
		BaseURL:  baseURL,
		Remotes:  make(map[string]Remote, len(frag.Remotes)),
		Projects: make(map[string]Project, len(frag.Projects)),
	}

	for _, rr := range frag.Remotes {
		fetchURL, err := resolveFetchURL(base, rr)
		if err != nil {
			return nil, err
		}
		m.Remotes[rr.Name] = Remote{Name: rr.Name, URL: fetchURL, Revision: rr.Revision}
	}

	if d := frag.Default; d != nil {
		r, ok := m.Remotes[d.Remote]
		if !ok {
			return nil, &Error{Kind: KindDefaultRemoteNotFound, Remote: d.Remote}
		}
		if d.Revision != "" {
			r.Revision = d.Revision
		}
		m.DefaultRemote = &r
	}

	for _, rp := range frag.Projects {
		p, err := m.resolveProject(rp)
		if err != nil {
			return nil, err
		}
		m.Projects[p.Path] = p
	}

	return m, nil
}

func resolveFetchURL(base *url.URL, rr RemoteRef) (string, error) {
	u, err := url.Parse(rr.Fetch)
	if err != nil {
		return "", &Error{Kind: KindParseURL, Remote: rr.Name, Value: rr.Fetch, Err: err}
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	// Path join against the parent of the base path, not RFC 3986 reference
	// resolution: "https://host/a/b/" with ".." gives "https://host/a".
	basePath := strings.TrimSuffix(base.Path, "/")
	if basePath == "" {
		return "", &Error{Kind: KindInvalidRelativeURL, Remote: rr.Name, Value: rr.Fetch}
	}
	out := *base
	out.Path = path.Join(path.Dir(basePath), rr.Fetch)
	out.RawPath = ""
	out.RawQuery = ""
	out.Fragment = ""
	return out.String(), nil
}

func (m *Manifest) resolveProject(rp RawProject) (Project, error) {
	if rp.Path == "" {
		return Project{}, &Error{Kind: KindMissingPath, Project: rp.Name}
	}

	var remote Remote
	switch {
	case rp.Remote != "":
		r, ok := m.Remotes[rp.Remote]
		if !ok {
			return Project{}, &Error{Kind: KindRemoteNotFound, Project: rp.Name, Remote: rp.Remote}
		}
		remote = r
	case m.DefaultRemote != nil:
		remote = *m.DefaultRemote
	default:
		return Project{}, &Error{Kind: KindMissingRemote, Project: rp.Name}
	}

	revision := rp.Revision
	if revision == "" {
		revision = remote.Revision
	}
	if revision == "" {
		return Project{}, &Error{Kind: KindMissingRevision, Project: rp.Name}
	}

	repoURL, err := JoinRepoURL(remote.URL, rp.Name)
	if err != nil {
		return Project{}, &Error{Kind: KindParseURL, Project: rp.Name, Remote: remote.Name, Value: remote.URL, Err: err}
	}

	return Project{
		Path:      rp.Path,
		Groups:    SplitGroups(rp.Groups),
		LinkFiles: append([]FileCopy(nil), rp.LinkFiles...),
		CopyFiles: append([]FileCopy(nil), rp.CopyFiles...),
		RepoRef: GitRepoRef{
			RepoURL:         repoURL,
			Revision:        revision,
			FetchLFS:        true,
			FetchSubmodules: false,
		},
		Categories:  NewCategories(DefaultCategory),
		LineageDeps: NoDependenciesFile(),
		Active:      true,
	}, nil
}

// JoinRepoURL appends name to the path of base as path segments. name is
// not escaped, so "LineageOS/android_foo" adds two segments.
func JoinRepoURL(base, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, name)
	if u.Path != "" && !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	u.RawPath = ""
	return u.String(), nil
}

// SplitGroups splits a comma-separated groups attribute.
func SplitGroups(groups string) []string {
	var out []string
	for _, g := range strings.Split(groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
