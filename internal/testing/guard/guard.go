// Package guard forces test mode for any test binary that imports it, so
// application constructors skip side effects such as request logging.
//
//	import _ "github.com/tradedesk/backoffice/internal/testing/guard"
package guard

import "os"

func init() {
	// Mirrors app.TestModeEnv; importing app here would cycle with its tests.
	if os.Getenv("BACKOFFICE_TEST_MODE") == "" {
		_ = os.Setenv("BACKOFFICE_TEST_MODE", "1")
	}
}
