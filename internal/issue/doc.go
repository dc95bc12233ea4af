// SPDX-License-Identifier: MPL-2.0

// Package issue carries the user-facing side of coralpkg failures: errors that
// know which step failed and how to recover, plus a catalog of Markdown
// guidance pages rendered with glamour when a command exits non-zero.
package issue
