// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/ragstrap/config.cue (or $XDG_CONFIG_HOME on Linux,
// ~/Library/Application Support/ragstrap/config.cue on macOS, %APPDATA%\ragstrap\config.cue
// on Windows), falling back to ./config.cue. Environment variables prefixed with RAGSTRAP_
// override file values, and GITHUB_TOKEN is honored for the GitHub token. A .env file in the
// working directory is loaded before the environment is consulted.
//
// Configuration files are validated against an embedded CUE schema (config_schema.cue).
package config
