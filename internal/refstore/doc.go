// SPDX-License-Identifier: MPL-2.0

// Package refstore manages the on-disk layout of references:
//
//	<root>/<name>/
//	    meta.json       reference metadata
//	    INDEX.md        generated index
//	    raw/            repository snapshot
//	    cli/            <command>.help.txt captures
//	    examples/       harvested example documents
//
// It also provides the destructive directory operations the pipeline stages
// rely on: reset, removal, and staged replacement of a whole directory.
package refstore
