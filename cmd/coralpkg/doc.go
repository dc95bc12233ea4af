// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the coralpkg command line: provisioning the
// coral-server JAR, declaring and distributing the Python package, managing
// configuration and launching the staged server.
package cmd
