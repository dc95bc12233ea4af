// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// ErrInvalidFormat is returned for an unknown render format.
var ErrInvalidFormat = errors.New("invalid format")

// Format selects the metadata encoding.
type Format string

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTOML, FormatCUE}
}

// ParseFormat accepts a format name case-insensitively; "yml" is an alias
// for yaml.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case slices.Contains(Formats(), f):
		return f, nil
	case f == "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w %q (valid: %s)", ErrInvalidFormat, s, FormatNames())
	}
}

// FormatNames is the comma-separated list of Formats.
func FormatNames() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

func (f Format) String() string { return string(f) }

// Render encodes md. Every encoding ends with a newline.
func Render(md *Metadata, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(md); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(md)
	case FormatCUE:
		return renderCUE(md)
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidFormat, string(f))
	}
}

func renderCUE(md *Metadata) ([]byte, error) {
	v := cuecontext.New().Encode(md)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode cue: %w", err)
	}
	out, err := format.Node(v.Syntax(cue.Final(), cue.Concrete(true)))
	if err != nil {
		return nil, fmt.Errorf("format cue: %w", err)
	}
	return append(bytes.TrimSpace(out), '\n'), nil
}
