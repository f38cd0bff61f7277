package manifest

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// GitRepoRef identifies what to fetch for a project. Two refs are equal only
// when every field is equal.
type GitRepoRef struct {
	RepoURL         string `json:"repo_url" yaml:"repo_url"`
	Revision        string `json:"revision" yaml:"revision"`
	FetchLFS        bool   `json:"fetch_lfs" yaml:"fetch_lfs"`
	FetchSubmodules bool   `json:"fetch_submodules" yaml:"fetch_submodules"`
}

// Category scopes a project to all builds (the zero value) or to a single
// device. It serializes as "default" or "device:<name>".
type Category struct {
	Device string
}

// DefaultCategory marks a project needed by every build.
var DefaultCategory = Category{}

const devicePrefix = "device:"

// DeviceCategory returns the category for projects needed by one device.
func DeviceCategory(name string) Category {
	return Category{Device: name}
}

// IsDefault reports whether c is the default category.
func (c Category) IsDefault() bool {
	return c.Device == ""
}

func (c Category) String() string {
	if c.IsDefault() {
		return "default"
	}
	return devicePrefix + c.Device
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	s := string(text)
	switch {
	case s == "default":
		*c = DefaultCategory
	case strings.HasPrefix(s, devicePrefix) && len(s) > len(devicePrefix):
		*c = DeviceCategory(strings.TrimPrefix(s, devicePrefix))
	default:
		return fmt.Errorf("invalid category %q: want \"default\" or \"device:<name>\"", s)
	}
	return nil
}

// Categories is a set of categories kept sorted with the default category
// first and devices in name order.
type Categories []Category

// NewCategories builds a set from cs, dropping duplicates.
func NewCategories(cs ...Category) Categories {
	out := make(Categories, 0, len(cs))
	for _, c := range cs {
		if !out.Contains(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Category) bool {
	if a.IsDefault() != b.IsDefault() {
		return a.IsDefault()
	}
	return a.Device < b.Device
}

// Contains reports whether c is in the set.
func (cs Categories) Contains(c Category) bool {
	return slices.Contains(cs, c)
}

// Union returns a new set holding the members of both sets.
func (cs Categories) Union(other Categories) Categories {
	all := make([]Category, 0, len(cs)+len(other))
	all = append(all, cs...)
	all = append(all, other...)
	return NewCategories(all...)
}

// DeviceSpecific returns the device categories in the set.
func (cs Categories) DeviceSpecific() Categories {
	var out Categories
	for _, c := range cs {
		if !c.IsDefault() {
			out = append(out, c)
		}
	}
	return out
}

// OnlyDefault reports whether the set is exactly {default}.
func (cs Categories) OnlyDefault() bool {
	return len(cs) == 1 && cs[0].IsDefault()
}

// Equal reports whether both sets hold the same members.
func (cs Categories) Equal(other Categories) bool {
	return slices.Equal(NewCategories(cs...), NewCategories(other...))
}

// DependencyKind is the outcome of scanning a project for a dependencies file.
type DependencyKind string

const (
	DepsMissingBranch      DependencyKind = "missing_branch"
	DepsNoDependenciesFile DependencyKind = "no_dependencies_file"
	DepsSome               DependencyKind = "some"
)

// DependencyState records what probing a project found. A nil
// *DependencyState means the project has not been scanned.
type DependencyState struct {
	State DependencyKind `json:"state" yaml:"state"`
	Paths []string       `json:"paths,omitempty" yaml:"paths,omitempty"`
}

// MissingBranch is the state of a project whose revision is absent at its
// remote.
func MissingBranch() *DependencyState {
	return &DependencyState{State: DepsMissingBranch}
}

// NoDependenciesFile is the state of a project without a dependencies file.
func NoDependenciesFile() *DependencyState {
	return &DependencyState{State: DepsNoDependenciesFile}
}

// SomeDependencies is the state of a project whose dependencies file lists
// the given project paths.
func SomeDependencies(paths []string) *DependencyState {
	return &DependencyState{State: DepsSome, Paths: slices.Clone(paths)}
}

// Is reports whether s is non-nil and of the given kind.
func (s *DependencyState) Is(kind DependencyKind) bool {
	return s != nil && s.State == kind
}

// Project is a resolved project. Path identifies it across the whole system.
type Project struct {
	Path        string           `json:"path" yaml:"path"`
	Groups      []string         `json:"groups,omitempty" yaml:"groups,omitempty"`
	LinkFiles   []FileCopy       `json:"linkfiles,omitempty" yaml:"linkfiles,omitempty"`
	CopyFiles   []FileCopy       `json:"copyfiles,omitempty" yaml:"copyfiles,omitempty"`
	RepoRef     GitRepoRef       `json:"repo_ref" yaml:"repo_ref"`
	Categories  Categories       `json:"categories" yaml:"categories"`
	LineageDeps *DependencyState `json:"lineage_deps" yaml:"lineage_deps"`
	Active      bool             `json:"active" yaml:"active"`
}

// Clone returns a deep copy of p.
func (p Project) Clone() Project {
	out := p
	out.Groups = slices.Clone(p.Groups)
	out.LinkFiles = slices.Clone(p.LinkFiles)
	out.CopyFiles = slices.Clone(p.CopyFiles)
	out.Categories = slices.Clone(p.Categories)
	if p.LineageDeps != nil {
		deps := *p.LineageDeps
		deps.Paths = slices.Clone(p.LineageDeps.Paths)
		out.LineageDeps = &deps
	}
	return out
}
