package unittest

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireCloseBefore requires that the given channel closes before the
// duration expires.
func RequireCloseBefore(t testing.TB, c <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
		require.Fail(t, "could not close done channel on time: "+message)
	case <-c:
		return
	}
}

func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "p2p-fetch-testing-temp-")
	require.NoError(t, err)
	return dir
}

func RunWithTempDir(t testing.TB, f func(string)) {
	dir := TempDir(t)
	defer os.RemoveAll(dir)
	f(dir)
}
