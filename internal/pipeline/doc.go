// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences the stages that build a reference: download the
// repository snapshot, detect its languages, optionally build it and capture
// CLI help, harvest shell examples, then write meta.json and INDEX.md.
//
// Stages run strictly one after another. Each stage reads the snapshot in
// raw/ and writes only its own output directory.
package pipeline
