// SPDX-License-Identifier: MPL-2.0

// Package cliprobe decides whether a snapshot is a buildable command-line tool,
// builds it with the project's toolchain, and captures the help text of the
// resulting binary and of its first-level subcommands.
//
// The package is organized into these concerns:
//   - policy.go: static eligibility checks (no execution)
//   - manifest.go: Cargo manifest decoding for reference metadata
//   - runner.go: the process-spawn capability and its os/exec implementation
//   - build.go: release build and executable discovery
//   - capture.go: help capture and subcommand discovery
package cliprobe
