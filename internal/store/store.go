package store

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bianoble/repolock/internal/sandbox"
)

// Store is a content-addressed directory store. Each object is a directory
// tree under objects/<key[:2]>/<key>, optionally with a JSON sidecar at
// <object>.json. Objects are immutable once committed.
type Store struct {
	dir string
}

// New creates a Store at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Store, error) {
	for _, sub := range []string{"objects", "tmp"} {
		p := filepath.Join(dir, sub)
		if err := os.MkdirAll(p, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", p, err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving store directory %s: %w", dir, err)
	}
	return &Store{dir: abs}, nil
}

// DefaultDir returns the default store directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/repolock.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "repolock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "repolock-store")
		}
		return filepath.Join("/tmp", "repolock-store")
	}
	return filepath.Join(home, ".cache", "repolock")
}

// Key derives an object key from its identifying parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = io.WriteString(h, p)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the object for key lives, whether or not it exists.
func (s *Store) Path(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.dir, "objects", key)
	}
	return filepath.Join(s.dir, "objects", key[:2], key)
}

// Has reports whether an object with the given key is committed.
func (s *Store) Has(key string) bool {
	fi, err := os.Stat(s.Path(key))
	return err == nil && fi.IsDir()
}

// Stage creates an empty staging directory inside the store. Staged
// directories live on the same filesystem as objects so Commit can rename.
func (s *Store) Stage() (string, error) {
	dir, err := os.MkdirTemp(filepath.Join(s.dir, "tmp"), "stage-*")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}

// Commit moves a staged directory into place as the object for key and
// returns its path. If the object already exists the staged copy is
// discarded.
func (s *Store) Commit(staged, key string) (string, error) {
	dest := s.Path(key)
	if s.Has(key) {
		_ = os.RemoveAll(staged)
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		_ = os.RemoveAll(staged)
		return "", fmt.Errorf("creating store subdirectory: %w", err)
	}

	if err := os.Rename(staged, dest); err != nil {
		_ = os.RemoveAll(staged)
		if s.Has(key) {
			return dest, nil
		}
		return "", fmt.Errorf("committing %s: %w", key, err)
	}
	return dest, nil
}

// WriteMeta atomically writes v as the JSON sidecar of key.
func (s *Store) WriteMeta(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", key, err)
	}

	if err := sandbox.WriteFileAtomic(s.Path(key)+".json", data, 0644); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", key, err)
	}
	return nil
}

// ReadMeta decodes the JSON sidecar of key into v. It returns false when
// there is no sidecar.
func (s *Store) ReadMeta(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(key) + ".json")
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading metadata for %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing metadata for %s: %w", key, err)
	}
	return true, nil
}

// RemovePath deletes an object directory and its sidecar given its path.
// Paths outside the object tree are rejected.
func (s *Store) RemovePath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	objects := filepath.Join(s.dir, "objects") + string(filepath.Separator)
	if !strings.HasPrefix(abs, objects) {
		return fmt.Errorf("refusing to remove %s: not inside %s", path, objects)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing %s: %w", abs, err)
	}
	if err := os.Remove(abs + ".json"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing metadata of %s: %w", abs, err)
	}
	return nil
}

// Size returns the total size of the store in bytes.
func (s *Store) Size() (int64, error) {
	var total int64
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// HashTree hashes a directory tree into an SRI-style "sha256-<base64>"
// string. Entries are visited in lexical order; file modes other than the
// executable bit and directories named .git are ignored.
func HashTree(root string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == ".git" && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			fmt.Fprintf(h, "dir\x00%s\x00", rel)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(h, "link\x00%s\x00%s\x00", rel, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			exec := info.Mode()&0111 != 0
			fmt.Fprintf(h, "file\x00%s\x00%t\x00%d\x00", rel, exec, info.Size())
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			_ = f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", root, err)
	}
	return "sha256-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
