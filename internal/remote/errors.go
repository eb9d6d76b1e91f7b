package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every NetworkError via errors.Is.
	ErrNetwork = errors.New("network error")
	// ErrRemoteFormat matches every FormatError via errors.Is.
	ErrRemoteFormat = errors.New("unexpected remote format")
)

// NetworkError indicates a connection failure, a timeout, or a non-200 reply.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: server returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// FormatError indicates a reply whose body did not have the expected shape.
type FormatError struct {
	URL string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("parsing response from %s: %v", e.URL, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrRemoteFormat }
