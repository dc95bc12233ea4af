// SPDX-License-Identifier: MPL-2.0

// Package launcher runs the staged coral-server JAR with a local Java
// runtime. It backs the coral-server console entry point.
package launcher
