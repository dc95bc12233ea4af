// SPDX-License-Identifier: MPL-2.0

// Package packaging declares the coral-server Python distribution: its
// metadata, long description, packages and package data (the staged server
// JAR). Declarations can be rendered as JSON, YAML, TOML or CUE, and written
// out as a zip archive or directory tree with a SHA256SUMS manifest.
package packaging
