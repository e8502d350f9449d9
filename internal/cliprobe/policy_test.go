// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"path/filepath"
	"testing"

	"github.com/ragstrap/ragstrap/internal/testutil"
)

func TestEligibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         map[string]string
		wantBuildable bool
		wantAuto      bool
	}{
		{
			name:          "manifest and entry point",
			files:         map[string]string{"Cargo.toml": "[package]\nname = \"x\"\n", "src/main.rs": "fn main() {}"},
			wantBuildable: true,
			wantAuto:      true,
		},
		{
			name:          "bin marker only",
			files:         map[string]string{"Cargo.toml": "[package]\nname = \"x\"\n\n[[bin]]\nname = \"x\"\npath = \"cli/x.rs\"\n"},
			wantBuildable: true,
			wantAuto:      false,
		},
		{
			name:          "library crate",
			files:         map[string]string{"Cargo.toml": "[package]\nname = \"x\"\n", "src/lib.rs": ""},
			wantBuildable: false,
			wantAuto:      false,
		},
		{
			name:          "entry point without manifest",
			files:         map[string]string{"src/main.rs": "fn main() {}"},
			wantBuildable: false,
			wantAuto:      false,
		},
		{
			name:          "empty snapshot",
			files:         map[string]string{},
			wantBuildable: false,
			wantAuto:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			testutil.WriteTree(t, root, tt.files)

			if got := IsBuildableCLI(root); got != tt.wantBuildable {
				t.Errorf("IsBuildableCLI() = %v, want %v", got, tt.wantBuildable)
			}
			if got := ShouldAutoCapture(root); got != tt.wantAuto {
				t.Errorf("ShouldAutoCapture() = %v, want %v", got, tt.wantAuto)
			}
		})
	}
}

func TestEligibility_RemovingEitherFileDisablesAutoCapture(t *testing.T) {
	t.Parallel()

	for _, remove := range []string{"Cargo.toml", "src/main.rs"} {
		t.Run(remove, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			files := map[string]string{
				"Cargo.toml":  "[package]\nname = \"x\"\n[[bin]]\nname = \"x\"\n",
				"src/main.rs": "fn main() {}",
			}
			delete(files, remove)
			testutil.WriteTree(t, root, files)

			if ShouldAutoCapture(root) {
				t.Errorf("ShouldAutoCapture() = true after removing %s", remove)
			}

			wantForced := remove == "src/main.rs"
			if got := IsBuildableCLI(root); got != wantForced {
				t.Errorf("IsBuildableCLI() = %v, want %v", got, wantForced)
			}
		})
	}
}

func TestEntryPointPath(t *testing.T) {
	t.Parallel()

	if EntryPoint != filepath.Join("src", "main.rs") {
		t.Errorf("EntryPoint = %q", EntryPoint)
	}
}
