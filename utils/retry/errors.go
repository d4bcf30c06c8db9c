package retry

import (
	"errors"
	"fmt"
)

// ExhaustedError is returned when every attempt allowed by a policy failed.
type ExhaustedError struct {
	Attempts uint
	Err      error
}

func NewExhaustedError(attempts uint, err error) error {
	return ExhaustedError{
		Attempts: attempts,
		Err:      err,
	}
}

func (e ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %s", e.Attempts, e.Err.Error())
}

func (e ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhaustedError returns whether err is an ExhaustedError
func IsExhaustedError(err error) bool {
	var e ExhaustedError
	return errors.As(err, &e)
}

// permanentError marks an error which must not be retried.
type permanentError struct {
	err error
}

// Permanent wraps err so that Do returns it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// IsPermanent returns whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var e permanentError
	return errors.As(err, &e)
}
