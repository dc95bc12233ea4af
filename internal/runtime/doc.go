// SPDX-License-Identifier: MPL-2.0

// Package runtime runs host processes for coralpkg: the Gradle wrapper during
// provisioning and the JVM for `coralpkg run`.
//
// Runner is the seam callers depend on. ExecRunner is the os/exec backed
// implementation; tests substitute a fake. A non-zero exit is reported in
// Result.ExitCode rather than as an error, so callers decide what a failing
// child means.
package runtime
