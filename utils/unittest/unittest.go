package unittest

import (
	"flag"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var verbose = flag.Bool("vv", false, "print debugging logs")

// Logger returns a zerolog logger for tests. Use the -vv flag to print
// debugging logs.
func Logger() zerolog.Logger {
	writer := io.Discard
	if *verbose {
		writer = os.Stderr
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// TempDir returns a fresh temporary directory.
func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "register-store-temp-")
	require.NoError(t, err)
	return dir
}

// RunWithTempDir runs the function with a temporary directory that is
// removed afterwards.
func RunWithTempDir(t testing.TB, f func(string)) {
	dir := TempDir(t)
	defer os.RemoveAll(dir)
	f(dir)
}
