// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when non-empty.
// Tests use it because os.UserHomeDir ignores HOME on some platforms.
var configDirOverride string

// Reset clears the config directory override.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride points ConfigDir at dir until Reset is called.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
