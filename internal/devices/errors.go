package devices

import "fmt"

// ErrorKind classifies device metadata failures.
type ErrorKind int

const (
	KindReadFile ErrorKind = iota + 1
	KindParse
	KindInconsistentDeviceInfo
	KindDuplicateBranch
)

// Error is a device metadata failure.
type Error struct {
	Kind   ErrorKind
	File   string
	Device string
	Branch string
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindReadFile:
		msg = fmt.Sprintf("reading device file: %v", e.Err)
	case KindParse:
		msg = "parsing device file"
		if e.Device != "" {
			msg += fmt.Sprintf(": device '%s'", e.Device)
		}
		msg += fmt.Sprintf(": %v", e.Err)
	case KindInconsistentDeviceInfo:
		msg = fmt.Sprintf("device info for '%s' is inconsistent across device files", e.Device)
	case KindDuplicateBranch:
		msg = fmt.Sprintf("branch '%s' of device '%s' is defined several times in device files", e.Branch, e.Device)
	default:
		msg = fmt.Sprintf("device error %d: %v", int(e.Kind), e.Err)
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
