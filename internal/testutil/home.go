// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir sets the appropriate HOME environment variable based on platform
// and returns a cleanup function to restore the original value.
//
// Platform handling:
//   - Windows: Sets USERPROFILE
//   - Linux/macOS: Sets HOME
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
//	    // Test code that uses the home directory...
//	}
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		return MustSetenv(t, "USERPROFILE", dir)
	default:
		return MustSetenv(t, "HOME", dir)
	}
}

// SetConfigHome points the platform's user configuration root at dir
// (APPDATA on Windows, XDG_CONFIG_HOME elsewhere) so config lookups stay
// inside the test's temporary tree.
func SetConfigHome(t testing.TB, dir string) func() {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		return MustSetenv(t, "APPDATA", dir)
	default:
		return MustSetenv(t, "XDG_CONFIG_HOME", dir)
	}
}
