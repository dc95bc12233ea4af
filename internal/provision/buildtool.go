// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"path/filepath"
	"slices"

	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"
)

// BuildArgv returns the argv used to build the artifact:
//
//   - Command, split shell-style and expanded against environ, when set;
//   - otherwise the platform's Gradle wrapper, as an absolute path under
//     Root, followed by Args.
//
// Inside a Flatpak or Snap sandbox the result is prefixed with the host
// spawn command.
func BuildArgv(cfg *Config, environ []string) ([]string, error) {
	var argv []string
	if cfg.Command != "" {
		fields, err := runtime.SplitCommand(cfg.Command, environ)
		if err != nil {
			return nil, err
		}
		argv = fields
	} else {
		wrapper, err := wrapperPath(cfg)
		if err != nil {
			return nil, err
		}
		argv = append([]string{wrapper}, cfg.Args...)
	}

	return platform.HostCommand(cfg.Sandbox, slices.Clip(argv)), nil
}

// wrapperPath anchors the platform wrapper at the project root. A bare
// "gradlew.bat" is otherwise resolved against PATH, never against the
// child's working directory.
func wrapperPath(cfg *Config) (string, error) {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	name := filepath.FromSlash(platform.BuildCommandFor(cfg.Platform.OrCurrent()))
	return filepath.Abs(filepath.Join(root, name))
}
