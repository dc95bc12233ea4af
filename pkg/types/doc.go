// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the provisioning, packaging
// and launcher packages. Each type carries its own validation and returns a typed
// error wrapping a sentinel so callers can classify failures with errors.Is.
//
// This package is a leaf dependency: it imports only the standard library.
package types
