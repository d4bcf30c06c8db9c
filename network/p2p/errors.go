package p2p

import (
	"errors"
	"fmt"
)

// ErrClientUnavailable is returned when a fetch client is requested from, or a request is
// issued through, a node which has shut down.
var ErrClientUnavailable = NewNetworkErrorf("fetch client unavailable: p2p node has shut down")

// NetworkError indicates that the p2p node could not be started or is no longer running.
type NetworkError struct {
	err error
}

func NewNetworkErrorf(msg string, args ...interface{}) error {
	return NetworkError{fmt.Errorf(msg, args...)}
}

func (e NetworkError) Error() string {
	return e.err.Error()
}

func (e NetworkError) Unwrap() error {
	return e.err
}

// IsNetworkError returns whether err is a NetworkError
func IsNetworkError(err error) bool {
	var e NetworkError
	return errors.As(err, &e)
}
