package blockfetch

import (
	"errors"
	"fmt"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

// CountMismatchError is returned when a peer answered with a different number of items
// than requested.
type CountMismatchError struct {
	Expected int
	Actual   int
}

func NewCountMismatchError(expected int, actual int) error {
	return CountMismatchError{
		Expected: expected,
		Actual:   actual,
	}
}

func (e CountMismatchError) Error() string {
	return fmt.Sprintf("expected %d item(s) in response, got %d", e.Expected, e.Actual)
}

// IsCountMismatchError returns whether err is a CountMismatchError
func IsCountMismatchError(err error) bool {
	var e CountMismatchError
	return errors.As(err, &e)
}

// InvalidHeaderError is returned when a peer answered a single header request with a header
// that is not the requested one.
type InvalidHeaderError struct {
	Requested block.Identifier
	err       error
}

func NewInvalidHeaderErrorf(requested block.Identifier, msg string, args ...interface{}) error {
	return InvalidHeaderError{
		Requested: requested,
		err:       fmt.Errorf(msg, args...),
	}
}

func (e InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid header for block %s: %s", e.Requested, e.err.Error())
}

func (e InvalidHeaderError) Unwrap() error {
	return e.err
}

// IsInvalidHeaderError returns whether err is an InvalidHeaderError
func IsInvalidHeaderError(err error) bool {
	var e InvalidHeaderError
	return errors.As(err, &e)
}
