// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

const (
	// FamilyUnix covers Linux, macOS, the BSDs and every other non-Windows host.
	FamilyUnix Family = "unix"
	// FamilyWindows covers Windows hosts.
	FamilyWindows Family = "windows"
)

const (
	// UnixBuildCommand is the Gradle wrapper invoked from the project root on
	// non-Windows hosts.
	UnixBuildCommand = "./gradlew"
	// WindowsBuildCommand is the Gradle wrapper batch file invoked on Windows.
	WindowsBuildCommand = "gradlew.bat"
)

// ErrInvalidFamily is the sentinel error wrapped by InvalidFamilyError.
var ErrInvalidFamily = errors.New("invalid platform family")

type (
	// Family is the coarse platform classification that decides which build
	// command is used. The zero value means "detect from the running host".
	Family string

	// InvalidFamilyError is returned when a Family value is not recognized.
	InvalidFamilyError struct {
		Value Family
	}
)

// CurrentFamily returns the family of the running host.
func CurrentFamily() Family {
	return FamilyFor(runtime.GOOS)
}

// FamilyFor maps a GOOS value to its platform family.
func FamilyFor(goos string) Family {
	if goos == Windows {
		return FamilyWindows
	}
	return FamilyUnix
}

// ParseFamily parses a user-supplied family name. The empty string resolves to
// the current host's family.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return CurrentFamily(), nil
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate returns an error if the family is not a known value.
// The zero value is valid and means "detect".
func (f Family) Validate() error {
	switch f {
	case "", FamilyUnix, FamilyWindows:
		return nil
	default:
		return &InvalidFamilyError{Value: f}
	}
}

// OrCurrent returns f, or the running host's family when f is the zero value.
func (f Family) OrCurrent() Family {
	if f == "" {
		return CurrentFamily()
	}
	return f
}

// String returns the string representation of the Family.
func (f Family) String() string { return string(f) }

// BuildCommandFor returns the Gradle wrapper executable for a platform family.
// Windows hosts use the batch wrapper; every other family uses the shell script
// in the project root.
func BuildCommandFor(f Family) string {
	if f == FamilyWindows {
		return WindowsBuildCommand
	}
	return UnixBuildCommand
}

// Error implements the error interface for InvalidFamilyError.
func (e *InvalidFamilyError) Error() string {
	return fmt.Sprintf("invalid platform family %q (expected %q or %q)", e.Value, FamilyUnix, FamilyWindows)
}

// Unwrap returns ErrInvalidFamily for errors.Is() compatibility.
func (e *InvalidFamilyError) Unwrap() error { return ErrInvalidFamily }
