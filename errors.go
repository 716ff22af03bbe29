package lfmap

import "github.com/pkg/errors"

// Sentinel errors of the API boundary. The core itself never returns
// these from the hot slot-walking paths; NewMap's argument validation
// is the only place that returns one.
var (
	// ErrInvalidArgument wraps every NewMap construction failure: a
	// missing hasher, a negative initial capacity, or a non-positive
	// chunk size.
	ErrInvalidArgument = errors.New("lfmap: invalid argument")

	// ErrTableAllocation names a failed successor-table allocation. No
	// function of the package returns it: allocateTable always reports
	// success, and PutIfMatch and GetOrAdd have no error result.
	ErrTableAllocation = errors.New("lfmap: successor table allocation failed")
)

// invalidArgf wraps ErrInvalidArgument with additional context: a
// single sentinel per failure family rather than one error type per
// case.
func invalidArgf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
