package places

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the lookup returned no results
	ErrNotFound = errors.New("place not found")

	// ErrBadStatus means the lookup answered with a non-success status
	ErrBadStatus = errors.New("lookup status not ok")

	// ErrMalformed means the response could not be decoded or lacked required fields
	ErrMalformed = errors.New("malformed lookup response")
)

// ResolutionError records why a candidate could not be resolved
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
