// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error, plus a
// fixture for laying out a coral-server project tree.
package testutil
