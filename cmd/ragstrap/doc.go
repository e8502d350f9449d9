// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the ragstrap command-line interface.
//
// Every command is built by a constructor that receives the App composition
// root, so tests can run the full command tree against temporary reference
// directories and fake collaborators. Failures are returned as errors and
// rendered once, by the fang error handler installed in run, together
// with the matching issue catalog entry.
package cmd
