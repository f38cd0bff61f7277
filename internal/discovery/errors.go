package discovery

import (
	"errors"
	"fmt"
)

// ErrorKind classifies discovery failures.
type ErrorKind int

const (
	KindUnknownRemote ErrorKind = iota + 1
	KindMissingRemote
	KindRemoteMissingRevision
	KindConflictingEntries
	KindReadDependencies
	KindParseDependencies
	KindResolve
)

var kindNames = map[ErrorKind]string{
	KindUnknownRemote:         "UnknownRemote",
	KindMissingRemote:         "MissingRemote",
	KindRemoteMissingRevision: "RemoteMissingRevision",
	KindConflictingEntries:    "ConflictingEntries",
	KindReadDependencies:      "ReadDependencies",
	KindParseDependencies:     "ParseDependencies",
	KindResolve:               "Resolve",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a discovery failure. Path is the dependency target path, or the
// discovering project for KindResolve and the file kinds.
type Error struct {
	Kind   ErrorKind
	Path   string
	Remote string
	File   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownRemote:
		return fmt.Sprintf("unknown remote '%s' for dependency '%s'", e.Remote, e.Path)
	case KindMissingRemote:
		return fmt.Sprintf("dependency '%s' names no remote and the manifest has no default remote", e.Path)
	case KindRemoteMissingRevision:
		return fmt.Sprintf("remote '%s' has no revision, cannot infer the branch of dependency '%s'", e.Remote, e.Path)
	case KindConflictingEntries:
		return fmt.Sprintf("project '%s' is declared by several dependencies files with conflicting repositories or branches: %v", e.Path, e.Err)
	case KindReadDependencies:
		return fmt.Sprintf("reading %s of '%s': %v", e.File, e.Path, e.Err)
	case KindParseDependencies:
		return fmt.Sprintf("parsing %s of '%s': %v", e.File, e.Path, e.Err)
	case KindResolve:
		return fmt.Sprintf("resolving dependencies of '%s': %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is a discovery *Error
// of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	for {
		if de.Kind == kind {
			return true
		}
		var inner *Error
		if !errors.As(de.Err, &inner) {
			return false
		}
		de = inner
	}
}
