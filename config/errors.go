package config

import (
	"errors"
	"fmt"
)

// ErrNoTrustedPeers is returned when trusted-only mode is requested without any trusted peer:
// such a node could never connect to anyone.
var ErrNoTrustedPeers = NewConfigurationErrorf(
	"no trusted nodes. Set trusted peer with `--trusted-peers <enode record>` or set `--trusted-only` to `false`")

// ConfigurationError indicates that the node was configured with invalid or inconsistent
// parameters. It is never retried.
type ConfigurationError struct {
	err error
}

func NewConfigurationErrorf(msg string, args ...interface{}) error {
	return ConfigurationError{fmt.Errorf(msg, args...)}
}

func (e ConfigurationError) Error() string { return e.err.Error() }
func (e ConfigurationError) Unwrap() error { return e.err }

// IsConfigurationError returns whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var e ConfigurationError
	return errors.As(err, &e)
}
