// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"bytes"
	"os"
	"path/filepath"
)

const (
	// ManifestFile is the build manifest whose presence marks a Rust crate.
	ManifestFile = "Cargo.toml"

	// binTargetMarker declares an explicit binary target in the manifest.
	binTargetMarker = "[[bin]]"
)

// EntryPoint is the canonical binary entry point, relative to the crate root.
//
//nolint:gochecknoglobals // Derived path constant.
var EntryPoint = filepath.Join("src", "main.rs")

// IsBuildableCLI reports whether root looks like a crate that produces a
// binary: either the manifest and the canonical entry point both exist, or
// the manifest declares a [[bin]] target. Library-only crates report false.
func IsBuildableCLI(root string) bool {
	if hasManifestAndEntryPoint(root) {
		return true
	}

	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte(binTargetMarker))
}

// ShouldAutoCapture reports whether a capture should run without being
// requested. A [[bin]] declaration alone only makes a forced capture valid;
// automatic capture also requires the manifest and the canonical entry point.
func ShouldAutoCapture(root string) bool {
	return IsBuildableCLI(root) && hasManifestAndEntryPoint(root)
}

func hasManifestAndEntryPoint(root string) bool {
	return exists(filepath.Join(root, ManifestFile)) && exists(filepath.Join(root, EntryPoint))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
