package api

import (
	"errors"
	"fmt"
)

// Status is the outcome class of a code object manager operation.
type Status int

const (
	// StatusSuccess means the operation completed.
	StatusSuccess Status = iota
	// StatusError is a generic failure, including stage processor failures
	// and failed lookups.
	StatusError
	// StatusErrorInvalidArgument is a contract violation by the caller.
	StatusErrorInvalidArgument
	// StatusErrorOutOfResources means an internal allocation failed.
	StatusErrorOutOfResources
)

var (
	// ErrError is wrapped by every generic failure (stage failures, absent
	// metadata keys or symbols, visitor aborts).
	ErrError = errors.New("comgr: error")

	// ErrInvalidArgument is wrapped by every contract violation.
	ErrInvalidArgument = errors.New("comgr: invalid argument")

	// ErrOutOfResources is wrapped when a handle table or buffer cannot grow.
	ErrOutOfResources = errors.New("comgr: out of resources")
)

// Valid reports whether s is one of the defined status codes.
func (s Status) Valid() bool {
	return s >= StatusSuccess && s <= StatusErrorOutOfResources
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	case StatusErrorInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusErrorOutOfResources:
		return "OUT_OF_RESOURCES"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusString returns the description of a status code.
// It fails with ErrInvalidArgument for an unknown status.
func StatusString(s Status) (string, error) {
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %d", ErrInvalidArgument, int(s))
	}
	return s.String(), nil
}

// StatusOf maps an error returned by a Manager to its status code.
// A nil error is StatusSuccess; errors that wrap none of the sentinels are
// reported as StatusError.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidArgument):
		return StatusErrorInvalidArgument
	case errors.Is(err, ErrOutOfResources):
		return StatusErrorOutOfResources
	default:
		return StatusError
	}
}

// Invalidf builds an ErrInvalidArgument error with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Errorf builds an ErrError error with a formatted detail.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrError, fmt.Sprintf(format, args...))
}
