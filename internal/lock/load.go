package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bianoble/repolock/internal/sandbox"
	"github.com/bianoble/repolock/internal/source"
)

// Load reads and validates a lockfile. The returned bool reports whether the
// lockfile was saved after a finished update pass.
func Load(path string, opts Options) (*Lockset, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, &Error{Kind: KindReadLockfile, Path: path, Err: err}
	}

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, false, &Error{Kind: KindParseLockfile, Path: path, Err: err}
	}

	if errs := Validate(&lf); len(errs) > 0 {
		return nil, false, &Error{Kind: KindParseLockfile, Path: path, Err: &ValidationError{Errors: errs}}
	}

	return fromLockfile(&lf, path, opts), lf.Completed, nil
}

// Open is like Load but returns an empty lockset when path does not exist.
func Open(path string, opts Options) (*Lockset, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(nil, path, opts), false, nil
	}
	return Load(path, opts)
}

// Save writes the lockset atomically: the JSON document goes to a temp file
// that is synced and then renamed over the lockfile.
func (ls *Lockset) Save(completed bool) error {
	if ls.path == "" {
		return nil
	}

	data, err := Marshal(ls.Lockfile(completed))
	if err != nil {
		return &Error{Kind: KindWriteLockfile, Path: ls.path, Err: err}
	}

	if err := sandbox.WriteFileAtomic(ls.path, data, 0644); err != nil {
		return &Error{Kind: KindWriteLockfile, Path: ls.path, Err: err}
	}
	return nil
}

// Marshal renders a lockfile the way Save writes it. Entries come out in
// path order.
func Marshal(lf *Lockfile) ([]byte, error) {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling lockfile: %w", err)
	}
	return append(data, '\n'), nil
}

// Validate checks a Lockfile for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(lf *Lockfile) []string {
	var errs []string

	keys := make([]string, 0, len(lf.Entries))
	for k := range lf.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := lf.Entries[k]
		prefix := fmt.Sprintf("entry '%s'", k)
		if e == nil {
			errs = append(errs, fmt.Sprintf("%s: entry is null", prefix))
			continue
		}
		if e.Project.Path != k {
			errs = append(errs, fmt.Sprintf("%s: project path '%s' does not match its key", prefix, e.Project.Path))
		}
		if e.Project.RepoRef.RepoURL == "" {
			errs = append(errs, fmt.Sprintf("%s: 'repo_url' is required", prefix))
		}
		if e.Project.RepoRef.Revision == "" {
			errs = append(errs, fmt.Sprintf("%s: 'revision' is required", prefix))
		}
		if e.Lock != nil && !source.IsCommitID(e.Lock.Commit) {
			errs = append(errs, fmt.Sprintf("%s: locked commit '%s' is not a 40 character hex id", prefix, e.Lock.Commit))
		}
	}

	return errs
}
