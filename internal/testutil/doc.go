// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv, MustUnsetenv,
// SetHomeDir, SetConfigHome), file tree fixtures (WriteTree, ReadTree, ListTree),
// and in-memory archive construction (BuildTarball) for extraction tests.
package testutil
