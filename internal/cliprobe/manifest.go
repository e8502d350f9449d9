// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Manifest holds the parts of a Cargo manifest recorded in reference metadata.
	Manifest struct {
		// Name is the package name; empty for virtual workspace manifests.
		Name string
		// Version is the package version when declared literally. Versions
		// inherited from a workspace (version.workspace = true) are left empty.
		Version string
		// Bins lists the names of explicit [[bin]] targets in declaration order.
		Bins []string
	}

	cargoManifest struct {
		Package *cargoPackage `toml:"package"`
		Bin     []cargoBin    `toml:"bin"`
	}

	cargoPackage struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	}

	cargoBin struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	}
)

// ReadManifest decodes the Cargo manifest at the root of a snapshot.
func ReadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}

	var raw cargoManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}

	m := &Manifest{}
	if raw.Package != nil {
		m.Name = raw.Package.Name
		if v, ok := raw.Package.Version.(string); ok {
			m.Version = v
		}
	}
	for _, b := range raw.Bin {
		if b.Name != "" {
			m.Bins = append(m.Bins, b.Name)
		}
	}
	return m, nil
}
