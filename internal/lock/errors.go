package lock

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies lockset failures.
type ErrorKind int

const (
	KindDuplicateProject ErrorKind = iota + 1
	KindPathNotFound
	KindProjectNotLocked
	KindUpdateLock
	KindStorePath
	KindReadLockfile
	KindParseLockfile
	KindWriteLockfile
)

var kindNames = map[ErrorKind]string{
	KindDuplicateProject: "DuplicateProject",
	KindPathNotFound:     "PathNotFound",
	KindProjectNotLocked: "ProjectNotLocked",
	KindUpdateLock:       "UpdateLock",
	KindStorePath:        "StorePath",
	KindReadLockfile:     "ReadLockfile",
	KindParseLockfile:    "ParseLockfile",
	KindWriteLockfile:    "WriteLockfile",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a lockset failure for one project path or lockfile.
type Error struct {
	Kind  ErrorKind
	Path  string
	Field string // conflicting project field, for DuplicateProject
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDuplicateProject:
		return fmt.Sprintf("project '%s' declared twice with conflicting %s", e.Path, e.Field)
	case KindPathNotFound:
		return fmt.Sprintf("no project at path '%s'", e.Path)
	case KindProjectNotLocked:
		return fmt.Sprintf("project '%s' has not been locked yet", e.Path)
	case KindUpdateLock:
		return fmt.Sprintf("updating lock for '%s': %v", e.Path, e.Err)
	case KindStorePath:
		return fmt.Sprintf("restoring content of '%s': %v", e.Path, e.Err)
	case KindReadLockfile:
		return fmt.Sprintf("reading lockfile %s: %v", e.Path, e.Err)
	case KindParseLockfile:
		return fmt.Sprintf("parsing lockfile %s: %v", e.Path, e.Err)
	case KindWriteLockfile:
		return fmt.Sprintf("writing lockfile %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is a lock *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == kind
}

// CommitMismatchError reports that the fetcher materialized a different
// commit than the one the revision resolved to.
type CommitMismatchError struct {
	Revision string
	Expected string
	Got      string
}

func (e *CommitMismatchError) Error() string {
	return fmt.Sprintf("commit mismatch for revision '%s': ref resolved to %s but fetch returned %s", e.Revision, e.Expected, e.Got)
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lockfile validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}
