package lock

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/bianoble/repolock/internal/manifest"
)

// Lockset is the set of known projects keyed by path, each with an optional
// pin. A lockset with an empty storage path is never written to disk.
type Lockset struct {
	entries map[string]*Entry
	path    string
	opts    Options
	log     *slog.Logger
}

// New creates a lockset holding projects, none of them pinned.
func New(projects []manifest.Project, path string, opts Options) *Lockset {
	ls := &Lockset{
		entries: make(map[string]*Entry, len(projects)),
		path:    path,
		opts:    opts,
		log:     opts.logger(),
	}
	for _, p := range projects {
		ls.entries[p.Path] = &Entry{Project: p.Clone()}
	}
	return ls
}

func fromLockfile(lf *Lockfile, path string, opts Options) *Lockset {
	ls := New(nil, path, opts)
	for k, e := range lf.Entries {
		if len(e.Project.Categories) > 0 {
			e.Project.Categories = manifest.NewCategories(e.Project.Categories...)
		}
		ls.entries[k] = e
	}
	return ls
}

// Path returns the storage path of the lockfile.
func (ls *Lockset) Path() string {
	return ls.path
}

// Len returns the number of entries, active or not.
func (ls *Lockset) Len() int {
	return len(ls.entries)
}

// Get returns the entry stored at path. The entry is shared with the
// lockset.
func (ls *Lockset) Get(path string) (*Entry, bool) {
	e, ok := ls.entries[path]
	return e, ok
}

// SortedPaths returns all entry paths in sorted order.
func (ls *Lockset) SortedPaths() []string {
	paths := make([]string, 0, len(ls.entries))
	for p := range ls.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ActivePaths returns the sorted paths of active entries.
func (ls *Lockset) ActivePaths() []string {
	var paths []string
	for _, p := range ls.SortedPaths() {
		if ls.entries[p].Project.Active {
			paths = append(paths, p)
		}
	}
	return paths
}

// Remove deletes the entry at path, if any.
func (ls *Lockset) Remove(path string) {
	delete(ls.entries, path)
}

// DeactivateAll marks every entry inactive. It starts a reconciliation
// pass: entries re-added with AddProject become active again.
func (ls *Lockset) DeactivateAll() {
	for _, e := range ls.entries {
		e.Project.Active = false
	}
}

// AddProject merges p into the lockset by path.
//
// A path not yet present is inserted unpinned. An inactive entry is replaced
// by p, dropping its pin when the repo ref changed. An active entry was
// already declared during this pass, so the two declarations must agree on
// the repo ref and may not both set different groups, linkfiles or copyfiles;
// their categories are unioned.
func (ls *Lockset) AddProject(p manifest.Project) error {
	p = p.Clone()
	p.Active = true

	existing, ok := ls.entries[p.Path]
	if !ok {
		ls.entries[p.Path] = &Entry{Project: p}
		return nil
	}

	if !existing.Project.Active {
		if existing.Project.RepoRef != p.RepoRef {
			if existing.Lock != nil {
				ls.log.Debug("dropping stale lock",
					slog.String("path", p.Path),
					slog.String("old_revision", existing.Project.RepoRef.Revision),
					slog.String("new_revision", p.RepoRef.Revision))
			}
			existing.Lock = nil
		}
		existing.Project = p
		return nil
	}

	cur := &existing.Project
	if cur.RepoRef != p.RepoRef {
		return &Error{Kind: KindDuplicateProject, Path: p.Path, Field: "repo_ref"}
	}
	groups, err := amend(p.Path, "groups", cur.Groups, p.Groups)
	if err != nil {
		return err
	}
	linkFiles, err := amend(p.Path, "linkfiles", cur.LinkFiles, p.LinkFiles)
	if err != nil {
		return err
	}
	copyFiles, err := amend(p.Path, "copyfiles", cur.CopyFiles, p.CopyFiles)
	if err != nil {
		return err
	}

	cur.Groups = groups
	cur.LinkFiles = linkFiles
	cur.CopyFiles = copyFiles
	cur.Categories = cur.Categories.Union(p.Categories)
	if cur.LineageDeps == nil {
		cur.LineageDeps = p.LineageDeps
	}
	return nil
}

// amend returns whichever of a and b is set. Both may be set only when they
// are equal.
func amend[T comparable](path, field string, a, b []T) ([]T, error) {
	switch {
	case len(b) == 0:
		return a, nil
	case len(a) == 0:
		return b, nil
	case slices.Equal(a, b):
		return a, nil
	}
	return nil, &Error{Kind: KindDuplicateProject, Path: path, Field: field}
}

// Lockfile returns a deep copy of the lockset in its on-disk form.
func (ls *Lockset) Lockfile(completed bool) *Lockfile {
	lf := &Lockfile{Completed: completed, Entries: make(map[string]*Entry, len(ls.entries))}
	for k, e := range ls.entries {
		lf.Entries[k] = e.clone()
	}
	return lf
}

// Detached returns a deep copy of the lockset that is never saved.
func (ls *Lockset) Detached() *Lockset {
	return fromLockfile(ls.Lockfile(false), "", ls.opts)
}
