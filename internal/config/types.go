// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTargetPath is where the server JAR is staged for packaging.
	DefaultTargetPath types.FilesystemPath = "python/coral_server/jar/coral-server-1.0-SNAPSHOT.jar"
	// DefaultBuildOutputPath is where the Gradle build deposits the server JAR.
	DefaultBuildOutputPath types.FilesystemPath = "build/libs/coral-server-1.0-SNAPSHOT.jar"
	// DefaultReadmePath holds the package long description.
	DefaultReadmePath types.FilesystemPath = "README.md"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidEnvName is returned when a build.env key is not a valid variable name.
	ErrInvalidEnvName = errors.New("invalid environment variable name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidEnvNameError is returned for a malformed build.env key.
	InvalidEnvNameError struct {
		Name string
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Paths     PathsConfig     `json:"paths" mapstructure:"paths"`
		Build     BuildConfig     `json:"build" mapstructure:"build"`
		Provision ProvisionConfig `json:"provision" mapstructure:"provision"`
		Launcher  LauncherConfig  `json:"launcher" mapstructure:"launcher"`
		UI        UIConfig        `json:"ui" mapstructure:"ui"`
	}

	// PathsConfig locates the artifact on both sides of the copy. Relative
	// paths are resolved against the project root.
	PathsConfig struct {
		Target      types.FilesystemPath `json:"target" mapstructure:"target"`
		BuildOutput types.FilesystemPath `json:"build_output" mapstructure:"build_output"`
		Readme      types.FilesystemPath `json:"readme" mapstructure:"readme"`
	}

	// BuildConfig configures the external build tool invocation.
	BuildConfig struct {
		// Command replaces the platform Gradle wrapper when non-empty. It is
		// split shell-style, so quoting and $VAR expansion work.
		Command string `json:"command" mapstructure:"command"`
		// Args are appended to the wrapper when Command is empty.
		Args []string `json:"args" mapstructure:"args"`
		// Env is overlaid on the inherited environment.
		Env map[string]string `json:"env" mapstructure:"env"`
		// EnvFiles are dotenv files loaded before Env, relative to the project root.
		EnvFiles []types.FilesystemPath `json:"env_files" mapstructure:"env_files"`
	}

	// ProvisionConfig tunes the provisioner.
	ProvisionConfig struct {
		// Lock serializes concurrent provisioning runs with a file lock.
		Lock bool `json:"lock" mapstructure:"lock"`
	}

	// LauncherConfig configures `coralpkg run`.
	LauncherConfig struct {
		// Java overrides the java executable lookup.
		Java    string   `json:"java" mapstructure:"java"`
		JVMArgs []string `json:"jvm_args" mapstructure:"jvm_args"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Target:      DefaultTargetPath,
			BuildOutput: DefaultBuildOutputPath,
			Readme:      DefaultReadmePath,
		},
		Build: BuildConfig{
			Args: []string{"build"},
			Env:  map[string]string{},
		},
		Provision: ProvisionConfig{Lock: true},
		UI:        UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// Validate returns an error if the ColorScheme is not one of the defined schemes.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// GlamourStyle maps the scheme to a glamour style name.
func (c ColorScheme) GlamourStyle() string {
	switch c {
	case ColorSchemeDark:
		return "dark"
	case ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (e *InvalidEnvNameError) Error() string {
	return fmt.Sprintf("invalid environment variable name %q", e.Name)
}

func (e *InvalidEnvNameError) Unwrap() error { return ErrInvalidEnvName }

func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and any field sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate checks the fields CUE cannot fully express once environment
// overrides have been applied.
func (c *Config) Validate() error {
	var errs []error

	for _, f := range []struct {
		name string
		path types.FilesystemPath
	}{
		{"paths.target", c.Paths.Target},
		{"paths.build_output", c.Paths.BuildOutput},
		{"paths.readme", c.Paths.Readme},
	} {
		if err := f.path.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	if c.Paths.Target != "" && c.Paths.Target == c.Paths.BuildOutput {
		errs = append(errs, fmt.Errorf("paths.target: must differ from paths.build_output (%s)", c.Paths.Target))
	}

	if strings.TrimSpace(c.Build.Command) == "" && len(c.Build.Args) == 0 {
		errs = append(errs, errors.New("build.args: must not be empty when build.command is unset"))
	}
	for name := range c.Build.Env {
		if !validEnvName(name) {
			errs = append(errs, fmt.Errorf("build.env: %w", &InvalidEnvNameError{Name: name}))
		}
	}
	for i, f := range c.Build.EnvFiles {
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("build.env_files[%d]: %w", i, err))
		}
	}

	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ui.color_scheme: %w", err))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
