// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

// Sandbox type constants.
const (
	// SandboxNone indicates no sandbox environment detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak indicates a Flatpak sandbox environment.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap indicates a Snap sandbox environment.
	SandboxSnap SandboxType = "snap"
)

// detectOnce caches the sandbox detection result for the lifetime of the process.
//
// INVARIANT: detectSandboxFrom MUST NOT panic; sync.OnceValue re-panics on every call.
var detectOnce = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, statFile)
})

// SandboxType identifies the type of application sandbox, if any.
type SandboxType string

// DetectSandbox returns the type of application sandbox the current process is running in.
//
// Detection methods:
//   - Flatpak: Checks for existence of /.flatpak-info
//   - Snap: Checks for SNAP_NAME environment variable
func DetectSandbox() SandboxType {
	return detectOnce()
}

// HostCommand rewrites argv so that it runs on the host when the process is
// confined by st. Outside a sandbox argv is returned unchanged.
//
//	HostCommand(SandboxFlatpak, []string{"./gradlew", "build"})
//	// => ["flatpak-spawn", "--host", "./gradlew", "build"]
func HostCommand(st SandboxType, argv []string) []string {
	spawn := SpawnCommandFor(st)
	if spawn == "" {
		return argv
	}
	spawnArgs := SpawnArgsFor(st)
	out := make([]string, 0, 1+len(spawnArgs)+len(argv))
	out = append(out, spawn)
	out = append(out, spawnArgs...)
	return append(out, argv...)
}

// SpawnCommandFor returns the spawn command for a given sandbox type.
func SpawnCommandFor(st SandboxType) string {
	switch st {
	case SandboxFlatpak:
		return "flatpak-spawn"
	case SandboxSnap:
		return "snap"
	default:
		return ""
	}
}

// SpawnArgsFor returns the arguments placed between the spawn command and the
// host command for a given sandbox type.
func SpawnArgsFor(st SandboxType) []string {
	switch st {
	case SandboxFlatpak:
		return []string{"--host"}
	case SandboxSnap:
		return []string{"run", "--shell"}
	default:
		return nil
	}
}

// detectSandboxFrom performs sandbox detection using the provided lookup functions.
// Flatpak takes precedence over Snap.
func detectSandboxFrom(lookupEnv func(string) string, statFile func(string) error) SandboxType {
	if err := statFile("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

// statFile is the production adapter for detectSandboxFrom.
func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
