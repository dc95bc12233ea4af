// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" toml ", FormatTOML, false},
		{"cue", FormatCUE, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if tt.err {
				if !errors.Is(err, ErrInvalidFormat) {
					t.Errorf("ParseFormat(%q) error = %v, want ErrInvalidFormat", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestRenderDecodesBack(t *testing.T) {
	t.Parallel()

	md := DefaultMetadata()
	decoders := map[Format]func([]byte, any) error{
		FormatJSON: json.Unmarshal,
		FormatYAML: yaml.Unmarshal,
		FormatTOML: toml.Unmarshal,
	}
	for f, decode := range decoders {
		t.Run(f.String(), func(t *testing.T) {
			t.Parallel()

			out, err := Render(md, f)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !strings.HasSuffix(string(out), "\n") {
				t.Error("output does not end with a newline")
			}
			var got Metadata
			if err := decode(out, &got); err != nil {
				t.Fatalf("decode: %v\n%s", err, out)
			}
			if got.Name != md.Name || got.Version != md.Version || got.ConsoleScripts["coral-server"] != md.ConsoleScripts["coral-server"] {
				t.Errorf("decoded %+v", got)
			}
			if len(got.Classifiers) != len(md.Classifiers) {
				t.Errorf("classifiers = %v", got.Classifiers)
			}
		})
	}
}

func TestRenderCUEIsValidManifest(t *testing.T) {
	t.Parallel()

	md := DefaultMetadata()
	md.Version = "1.2.3"
	out, err := Render(md, FormatCUE)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), `"coral-server"`) {
		t.Errorf("cue output missing name:\n%s", out)
	}
	// the CUE rendering must round-trip through the manifest schema
	back, err := ParseManifest(out, "rendered.cue")
	if err != nil {
		t.Fatalf("ParseManifest(rendered): %v\n%s", err, out)
	}
	if back.Version != "1.2.3" {
		t.Errorf("version = %q", back.Version)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := Render(DefaultMetadata(), "xml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Render(xml) = %v", err)
	}
}

func TestFormatNames(t *testing.T) {
	t.Parallel()

	if got, want := FormatNames(), "json, yaml, toml, cue"; got != want {
		t.Errorf("FormatNames() = %q, want %q", got, want)
	}
}
