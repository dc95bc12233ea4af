// SPDX-License-Identifier: MPL-2.0

// Package provision stages the prebuilt coral-server JAR into the Python
// package directory so it can be shipped as package data.
//
// The flow is single-shot: if the staged JAR already exists nothing happens;
// otherwise the Gradle wrapper is run when the build output is missing, and
// the build output is copied into place with its permissions and
// modification time preserved. A failing build is reported as a
// *BuildToolError and nothing is copied.
package provision
