// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/coralprotocol/coral-server-dist/internal/issue"
	"github.com/coralprotocol/coral-server-dist/pkg/cueutil"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "coralpkg"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectConfigFileName is the project-local config file.
	ProjectConfigFileName = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides (CORALPKG_PATHS_TARGET).
	EnvPrefix = "CORALPKG"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the coralpkg configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// UserConfigPath returns the per-user config file path.
func UserConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("paths.target", string(defaults.Paths.Target))
	v.SetDefault("paths.build_output", string(defaults.Paths.BuildOutput))
	v.SetDefault("paths.readme", string(defaults.Paths.Readme))
	v.SetDefault("build.command", defaults.Build.Command)
	v.SetDefault("build.args", defaults.Build.Args)
	v.SetDefault("build.env", defaults.Build.Env)
	v.SetDefault("build.env_files", []string{})
	v.SetDefault("provision.lock", defaults.Provision.Lock)
	v.SetDefault("launcher.java", defaults.Launcher.Java)
	v.SetDefault("launcher.jvm_args", []string{})
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadWithOptions performs option-driven config loading and returns the
// resolved file path ("" when only defaults and environment apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	var fileEnv map[string]string
	if resolvedPath != "" {
		if fileEnv, err = loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'coralpkg config init' to write a fresh default").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	// Viper folds map keys to lower case; environment names are case sensitive.
	if fileEnv != nil {
		cfg.Build.Env = fileEnv
	}
	if cfg.Build.Env == nil {
		cfg.Build.Env = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check CORALPKG_* environment overrides as well as the config file").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath applies the lookup order: explicit file, user config
// directory, then coralpkg.cue in the project root.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		p := string(opts.ConfigFilePath)
		if !fileExists(p) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(p).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'coralpkg config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", p)).
				BuildError()
		}
		return p, nil
	}

	cfgDir := string(opts.ConfigDirPath)
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, nil
	}

	if opts.ProjectRoot != "" {
		if p := filepath.Join(string(opts.ProjectRoot), ProjectConfigFileName); fileExists(p) {
			return p, nil
		}
	}

	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// This decodes to map[string]any instead of going through cueutil.ParseAndDecode
// so that fields absent from the file keep their Viper defaults. build.env is
// returned separately with its key case intact.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	buildEnv, _ := rawBuildEnv(configMap)

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return buildEnv, nil
}

// rawBuildEnv extracts build.env from the decoded file with its original key
// case.
func rawBuildEnv(raw map[string]any) (map[string]string, bool) {
	build, ok := raw["build"].(map[string]any)
	if !ok {
		return nil, false
	}
	envMap, ok := build["env"].(map[string]any)
	if !ok {
		return nil, false
	}
	env := make(map[string]string, len(envMap))
	for k, val := range envMap {
		env[k] = fmt.Sprint(val)
	}
	return env, true
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file to the user config
// directory unless one exists. It returns the path and whether it was created.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := UserConfigPath()
	if err != nil {
		return "", false, err
	}

	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// coralpkg configuration\n")
	sb.WriteString("// See https://github.com/Coral-Protocol/coral-server for documentation.\n\n")

	sb.WriteString("paths: {\n")
	fmt.Fprintf(&sb, "\ttarget:       %q\n", cfg.Paths.Target)
	fmt.Fprintf(&sb, "\tbuild_output: %q\n", cfg.Paths.BuildOutput)
	fmt.Fprintf(&sb, "\treadme:       %q\n", cfg.Paths.Readme)
	sb.WriteString("}\n")

	sb.WriteString("\nbuild: {\n")
	if cfg.Build.Command != "" {
		fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Build.Command)
	}
	fmt.Fprintf(&sb, "\targs: %s\n", cueList(cfg.Build.Args))
	if len(cfg.Build.Env) > 0 {
		sb.WriteString("\tenv: {\n")
		for _, k := range sortedKeys(cfg.Build.Env) {
			fmt.Fprintf(&sb, "\t\t%s: %q\n", k, cfg.Build.Env[k])
		}
		sb.WriteString("\t}\n")
	}
	if len(cfg.Build.EnvFiles) > 0 {
		files := make([]string, len(cfg.Build.EnvFiles))
		for i, f := range cfg.Build.EnvFiles {
			files[i] = string(f)
		}
		fmt.Fprintf(&sb, "\tenv_files: %s\n", cueList(files))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nprovision: {\n")
	fmt.Fprintf(&sb, "\tlock: %v\n", cfg.Provision.Lock)
	sb.WriteString("}\n")

	sb.WriteString("\nlauncher: {\n")
	if cfg.Launcher.Java != "" {
		fmt.Fprintf(&sb, "\tjava: %q\n", cfg.Launcher.Java)
	}
	fmt.Fprintf(&sb, "\tjvm_args: %s\n", cueList(cfg.Launcher.JVMArgs))
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
