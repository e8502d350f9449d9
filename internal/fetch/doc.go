// SPDX-License-Identifier: MPL-2.0

// Package fetch materializes a GitHub repository snapshot on local disk.
//
// The package is organized into three concerns:
//   - github.go: HTTP client for the GitHub tarball endpoint, including rate-limit detection
//   - extract.go: tar stream extraction with synthetic-root stripping and path confinement
//   - repo_url.go: parsing of github.com repository URLs into owner and repository name
package fetch
