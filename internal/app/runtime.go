package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches binaries into a no-side-effect mode; see internal/testing/guard.
const TestModeEnv = "BACKOFFICE_TEST_MODE"

// InTestMode reports whether binaries should skip opening connections and
// listeners. The environment is read once per process.
var InTestMode = sync.OnceValue(func() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
})
