// Package ddserr defines the sentinel error kinds shared by every
// operator package: domain errors, sort errors, unspecified-index
// errors and upstream errors.
package ddserr

import "errors"

var (
	// ErrIndexOutOfRange is returned by change-aware list mutators
	// (insert, remove_at, refresh_at, ...) when the supplied index is
	// outside the valid range for the operation.
	ErrIndexOutOfRange = errors.New("ddserr: index out of range")

	// ErrNegativeIndex is returned when a caller supplies a negative
	// start index or length to a range operation.
	ErrNegativeIndex = errors.New("ddserr: negative index or length")

	// ErrItemNotFound is returned when an operation expects an item to
	// be present (refresh by value, remove by value) and it is absent.
	ErrItemNotFound = errors.New("ddserr: item not found")

	// ErrSortAmbiguous is returned by binary-search lookup mode when
	// the comparer does not order stored items uniquely.
	ErrSortAmbiguous = errors.New("ddserr: comparer does not uniquely order items")

	// ErrUnspecifiedIndex is returned when a positional change (Moved)
	// arrives without a usable current or previous index.
	ErrUnspecifiedIndex = errors.New("ddserr: change arrived without a usable index")

	// ErrUpstream wraps an error surfaced by an upstream source; it
	// terminates the derived stream once propagated.
	ErrUpstream = errors.New("ddserr: upstream terminated abnormally")

	// ErrClosed is returned by operations attempted on a stream or
	// source list whose subscription has already been released.
	ErrClosed = errors.New("ddserr: stream is closed")
)
