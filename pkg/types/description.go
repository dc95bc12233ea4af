// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptionText is the sentinel error wrapped by InvalidDescriptionTextError.
var ErrInvalidDescriptionText = errors.New("invalid description text")

type (
	// DescriptionText is a human-readable one-line description, such as the
	// short package description. The zero value ("") is valid. Non-zero values
	// must not be whitespace-only and must fit on one line.
	DescriptionText string

	// InvalidDescriptionTextError is returned when a DescriptionText value is
	// whitespace-only or spans several lines.
	InvalidDescriptionTextError struct {
		Value  DescriptionText
		Reason string
	}
)

// String returns the string representation of the DescriptionText.
func (d DescriptionText) String() string { return string(d) }

// Validate returns an error if the description is whitespace-only or multiline.
func (d DescriptionText) Validate() error {
	if d == "" {
		return nil
	}
	if strings.TrimSpace(string(d)) == "" {
		return &InvalidDescriptionTextError{Value: d, Reason: "must not be whitespace-only"}
	}
	if strings.ContainsAny(string(d), "\r\n") {
		return &InvalidDescriptionTextError{Value: d, Reason: "must be a single line"}
	}
	return nil
}

// Error implements the error interface for InvalidDescriptionTextError.
func (e *InvalidDescriptionTextError) Error() string {
	return fmt.Sprintf("invalid description text %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidDescriptionText for errors.Is() compatibility.
func (e *InvalidDescriptionTextError) Unwrap() error { return ErrInvalidDescriptionText }
