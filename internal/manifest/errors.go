package manifest

import (
	"errors"
	"fmt"
)

// ErrorKind classifies manifest read and resolve failures.
type ErrorKind int

const (
	KindReadFile ErrorKind = iota + 1
	KindParse
	KindMissingPath
	KindDuplicateDefaultRemote
	KindDuplicateRemote
	KindDuplicatePath
	KindDuplicateContactinfo
	KindIncludeCycle
	KindParseURL
	KindInvalidRelativeURL
	KindDefaultRemoteNotFound
	KindRemoteNotFound
	KindMissingRemote
	KindMissingRevision
	KindIncludeOutsideRoot
)

var kindNames = map[ErrorKind]string{
	KindReadFile:               "ReadFile",
	KindParse:                  "Parse",
	KindMissingPath:            "MissingPath",
	KindDuplicateDefaultRemote: "DuplicateDefaultRemote",
	KindDuplicateRemote:        "DuplicateRemote",
	KindDuplicatePath:          "DuplicatePath",
	KindDuplicateContactinfo:   "DuplicateContactinfo",
	KindIncludeCycle:           "IncludeCycle",
	KindParseURL:               "ParseURL",
	KindInvalidRelativeURL:     "InvalidRelativeURL",
	KindDefaultRemoteNotFound:  "DefaultRemoteNotFound",
	KindRemoteNotFound:         "RemoteNotFound",
	KindMissingRemote:          "MissingRemote",
	KindMissingRevision:        "MissingRevision",
	KindIncludeOutsideRoot:     "IncludeOutsideRoot",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by every function in this package. The populated fields
// depend on Kind.
type Error struct {
	Kind    ErrorKind
	File    string // manifest file, relative to the manifest root when known
	Project string // project name
	Remote  string // remote name
	Path    string // project path
	Value   string // offending attribute value
	Err     error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindReadFile:
		return fmt.Sprintf("reading manifest %s: %v", e.File, e.Err)
	case KindParse:
		return fmt.Sprintf("parsing manifest %s: %v", e.File, e.Err)
	case KindMissingPath:
		msg = fmt.Sprintf("project '%s' has no 'path' attribute", e.Project)
	case KindDuplicateDefaultRemote:
		msg = "duplicate <default> element"
	case KindDuplicateRemote:
		msg = fmt.Sprintf("duplicate remote '%s'", e.Remote)
	case KindDuplicatePath:
		msg = fmt.Sprintf("duplicate project path '%s'", e.Path)
	case KindDuplicateContactinfo:
		msg = "duplicate <contactinfo> element"
	case KindIncludeCycle:
		msg = "include cycle"
	case KindIncludeOutsideRoot:
		msg = fmt.Sprintf("include '%s' is outside the manifest root: %v", e.Value, e.Err)
	case KindParseURL:
		msg = fmt.Sprintf("parsing URL '%s' of remote '%s': %v", e.Value, e.Remote, e.Err)
	case KindInvalidRelativeURL:
		msg = fmt.Sprintf("relative fetch URL '%s' of remote '%s' has no parent directory to resolve against", e.Value, e.Remote)
	case KindDefaultRemoteNotFound:
		msg = fmt.Sprintf("unknown remote '%s' in <default> element", e.Remote)
	case KindRemoteNotFound:
		msg = fmt.Sprintf("unknown remote '%s' for project '%s'", e.Remote, e.Project)
	case KindMissingRemote:
		msg = fmt.Sprintf("no remote defined for project '%s' and no <default> remote", e.Project)
	case KindMissingRevision:
		msg = fmt.Sprintf("no revision set for project '%s'", e.Project)
	default:
		msg = e.Kind.String()
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is a manifest *Error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == kind
}

// withFile records the manifest file an error was raised in, unless a more
// specific file is already set.
func withFile(err error, file string) error {
	var me *Error
	if errors.As(err, &me) && me.File == "" {
		me.File = file
	}
	return err
}
