// SPDX-License-Identifier: MPL-2.0

// Command ragstrap snapshots GitHub repositories into local reference material.
package main

import cmd "github.com/ragstrap/ragstrap/cmd/ragstrap"

func main() {
	cmd.Execute()
}
