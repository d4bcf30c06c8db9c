package keyutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
)

// IdentityError indicates that the node key could not be loaded or persisted.
type IdentityError struct {
	Path string
	Err  error
}

func NewIdentityErrorf(path string, msg string, args ...interface{}) error {
	return IdentityError{
		Path: path,
		Err:  fmt.Errorf(msg, args...),
	}
}

func (e IdentityError) Error() string {
	return fmt.Sprintf("node key %s: %s", e.Path, e.Err.Error())
}

func (e IdentityError) Unwrap() error {
	return e.Err
}

// IsIdentityError returns whether err is an IdentityError
func IsIdentityError(err error) bool {
	var e IdentityError
	return errors.As(err, &e)
}

// LoadOrGenerateSecretKey returns the hex encoded secp256k1 key stored at path. When the file
// does not exist, a new key is generated and written to path, creating parent directories.
// Expected errors:
//   - IdentityError if the file holds malformed key material or the key cannot be written
func LoadOrGenerateSecretKey(path string) (*ecdsa.PrivateKey, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		key, err := crypto.LoadECDSA(path)
		if err != nil {
			return nil, NewIdentityErrorf(path, "could not load key: %w", err)
		}
		return key, nil
	case errors.Is(err, fs.ErrNotExist):
		return generateSecretKey(path)
	default:
		return nil, NewIdentityErrorf(path, "could not access key file: %w", err)
	}
}

func generateSecretKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, NewIdentityErrorf(path, "could not generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, NewIdentityErrorf(path, "could not create key directory: %w", err)
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, NewIdentityErrorf(path, "could not persist key: %w", err)
	}
	return key, nil
}
