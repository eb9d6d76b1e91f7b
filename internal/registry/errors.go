package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no repository lists the requested identifier.
	ErrNotFound = errors.New("plugin not found")
	// ErrUnsupportedFormat means no installer handles the descriptor's format.
	ErrUnsupportedFormat = errors.New("unsupported plugin format")
	// ErrAlreadyUpToDate is informational: the installed version already
	// satisfies the remote one.
	ErrAlreadyUpToDate = errors.New("plugin already up to date")
)

// UnsupportedFormatError carries the raw format string of the descriptor.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("format %s is not supported", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }
