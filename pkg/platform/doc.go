// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// It answers the few questions provisioning needs about the host: which
// platform family is running (and therefore which Gradle wrapper to invoke),
// whether the process sits inside an application sandbox that requires host
// commands to be spawned through a helper, and whether a file name is reserved
// on Windows.
package platform
