// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

const (
	// JarName is the server JAR file name used by the fixtures.
	JarName = "coral-server-1.0-SNAPSHOT.jar"
	// TargetRel is the staged JAR location relative to the project root.
	TargetRel = "python/coral_server/jar/" + JarName
	// BuildOutputRel is the Gradle output location relative to the project root.
	BuildOutputRel = "build/libs/" + JarName
)

// JarBytes is the content of every fixture JAR.
var JarBytes = []byte("PK\x03\x04coral-server")

// Project describes a fixture project tree.
type Project struct {
	// Staged places a JAR at TargetRel.
	Staged bool
	// Built places a JAR at BuildOutputRel.
	Built bool
	// NoReadme omits README.md.
	NoReadme bool
}

// Write lays the project out in a fresh temp dir and returns its root.
func (p Project) Write(t testing.TB) string {
	t.Helper()

	files := map[string]string{
		"python/coral_server/__init__.py": "",
		"python/coral_server/cli.py":      "def main():\n    pass\n",
		"settings.gradle.kts":             "rootProject.name = \"coral-server\"\n",
	}
	if !p.NoReadme {
		files["README.md"] = "# Coral Server\n"
	}
	root := WriteTree(t, t.TempDir(), files)
	MustMkdirAll(t, filepath.Join(root, "python", "coral_server", "jar"), 0o755)
	if p.Staged {
		MustWriteFile(t, filepath.Join(root, filepath.FromSlash(TargetRel)), JarBytes, 0o644)
	}
	if p.Built {
		MustWriteFile(t, filepath.Join(root, filepath.FromSlash(BuildOutputRel)), JarBytes, 0o644)
	}
	return root
}
