package manifest

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/repolock/internal/sandbox"
)

// ReadFile parses a single manifest file without following includes.
func ReadFile(path string) (*Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindReadFile, File: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes manifest XML. name identifies the document in errors.
func Parse(data []byte, name string) (*Fragment, error) {
	var frag Fragment
	if err := xml.Unmarshal(data, &frag); err != nil {
		return nil, &Error{Kind: KindParse, File: name, Err: err}
	}
	return &frag, nil
}

// ReadRecursive reads file from root and expands its <include> elements
// depth-first in declaration order. Includes are resolved against root, not
// against the including file. The returned fragment has no includes.
func ReadRecursive(root, file string) (*Fragment, error) {
	r := &reader{root: root, active: make(map[string]bool)}
	return r.read(file)
}

// ReadWithLocal reads the manifest tree rooted at file and merges each local
// manifest into it. Relative local manifest paths are resolved against root.
func ReadWithLocal(root, file string, locals []string) (*Fragment, error) {
	frag, err := ReadRecursive(root, file)
	if err != nil {
		return nil, err
	}
	for _, local := range locals {
		localRoot, localFile := root, local
		if filepath.IsAbs(local) {
			localRoot, localFile = filepath.Dir(local), filepath.Base(local)
		}
		sub, err := ReadRecursive(localRoot, localFile)
		if err != nil {
			return nil, fmt.Errorf("reading local manifest %s: %w", local, err)
		}
		if err := Merge(frag, sub); err != nil {
			return nil, withFile(err, local)
		}
	}
	return frag, nil
}

type reader struct {
	root   string
	active map[string]bool // files on the current include stack
}

func (r *reader) read(file string) (*Fragment, error) {
	key := filepath.Clean(file)
	if r.active[key] {
		return nil, &Error{Kind: KindIncludeCycle, File: file}
	}
	r.active[key] = true
	defer delete(r.active, key)

	frag, err := ReadFile(filepath.Join(r.root, file))
	if err != nil {
		return nil, err
	}

	for _, p := range frag.Projects {
		if p.Path == "" {
			return nil, &Error{Kind: KindMissingPath, File: file, Project: p.Name}
		}
	}

	// Merging into an empty accumulator applies the duplicate rules within
	// the file itself and drops its includes.
	acc := &Fragment{}
	if err := Merge(acc, frag); err != nil {
		return nil, withFile(err, file)
	}

	for _, inc := range frag.Includes {
		if _, err := sandbox.ValidatePath(r.root, inc.Name); err != nil {
			return nil, &Error{Kind: KindIncludeOutsideRoot, File: file, Value: inc.Name, Err: err}
		}
		sub, err := r.read(inc.Name)
		if err != nil {
			return nil, err
		}
		if err := Merge(acc, sub); err != nil {
			return nil, withFile(err, inc.Name)
		}
	}

	return acc, nil
}

// Merge folds sub into acc. A second <default> or <contactinfo>, a remote
// name already present, or a project path already present is an error. acc
// is left partially merged when an error is returned.
func Merge(acc, sub *Fragment) error {
	if sub.Default != nil {
		if acc.Default != nil {
			return &Error{Kind: KindDuplicateDefaultRemote}
		}
		d := *sub.Default
		acc.Default = &d
	}

	remotes := make(map[string]bool, len(acc.Remotes))
	for _, r := range acc.Remotes {
		remotes[r.Name] = true
	}
	for _, r := range sub.Remotes {
		if remotes[r.Name] {
			return &Error{Kind: KindDuplicateRemote, Remote: r.Name}
		}
		remotes[r.Name] = true
		acc.Remotes = append(acc.Remotes, r)
	}

	paths := make(map[string]bool, len(acc.Projects))
	for _, p := range acc.Projects {
		paths[p.Path] = true
	}
	for _, p := range sub.Projects {
		if paths[p.Path] {
			return &Error{Kind: KindDuplicatePath, Path: p.Path}
		}
		paths[p.Path] = true
		acc.Projects = append(acc.Projects, p)
	}

	if sub.ContactInfo != nil {
		if acc.ContactInfo != nil {
			return &Error{Kind: KindDuplicateContactinfo}
		}
		ci := *sub.ContactInfo
		acc.ContactInfo = &ci
	}

	return nil
}
