// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/shell"
)

// EnvSpec describes a child environment built on top of a base environment.
type EnvSpec struct {
	// Base is the starting environment in KEY=value form (usually os.Environ()).
	Base []string
	// Files are dotenv files applied in order. Relative paths resolve against
	// BaseDir. A trailing '?' marks a file as optional.
	Files   []string
	BaseDir string
	// Vars are applied last and win over everything else.
	Vars map[string]string
}

// BuildEnv returns the merged environment as a sorted KEY=value slice.
func BuildEnv(spec EnvSpec) ([]string, error) {
	env := EnvToMap(spec.Base)

	for _, f := range spec.Files {
		if err := LoadEnvFile(env, f, spec.BaseDir); err != nil {
			return nil, err
		}
	}

	maps.Copy(env, spec.Vars)

	return MapToEnv(env), nil
}

// LoadEnvFile reads a dotenv file and merges it into env. Later files override
// earlier values for the same key.
func LoadEnvFile(env map[string]string, path, baseDir string) error {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(baseDir, filepath.FromSlash(path))
	}

	if _, err := os.Stat(fullPath); err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}

	vars, err := godotenv.Read(fullPath)
	if err != nil {
		return fmt.Errorf("failed to parse env file '%s': %w", path, err)
	}
	maps.Copy(env, vars)
	return nil
}

// EnvToMap converts KEY=value pairs to a map. Entries without '=' are kept
// with an empty value; later duplicates win.
func EnvToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		if k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// MapToEnv converts a map to a KEY=value slice sorted by key.
func MapToEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// SplitCommand splits a shell-style command line into argv. Quotes are
// honored and $VAR references are expanded from env; no other shell syntax
// is interpreted.
func SplitCommand(line string, env []string) ([]string, error) {
	lookup := EnvToMap(env)
	fields, err := shell.Fields(line, func(name string) string { return lookup[name] })
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	return fields, nil
}
