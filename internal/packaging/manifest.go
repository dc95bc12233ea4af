// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	_ "embed"
	"fmt"

	"github.com/coralprotocol/coral-server-dist/pkg/cueutil"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// ManifestFileName is the optional manifest in the project root.
const ManifestFileName = "coral.cue"

//go:embed manifest_schema.cue
var manifestSchema []byte

// manifest mirrors Metadata with every field optional.
type manifest struct {
	Name            *string             `json:"name,omitempty"`
	Version         *string             `json:"version,omitempty"`
	Description     *string             `json:"description,omitempty"`
	Readme          *string             `json:"readme,omitempty"`
	ContentType     *string             `json:"long_description_content_type,omitempty"`
	Author          *string             `json:"author,omitempty"`
	AuthorEmail     *string             `json:"author_email,omitempty"`
	URL             *string             `json:"url,omitempty"`
	PythonRequires  *string             `json:"python_requires,omitempty"`
	Classifiers     []string            `json:"classifiers,omitempty"`
	PackageDir      *string             `json:"package_dir,omitempty"`
	Packages        []string            `json:"packages,omitempty"`
	PackageData     map[string][]string `json:"package_data,omitempty"`
	InstallRequires []string            `json:"install_requires,omitempty"`
	ConsoleScripts  map[string]string   `json:"console_scripts,omitempty"`
}

// LoadManifest reads a coral.cue manifest and overlays the fields it sets on
// DefaultMetadata. The result is validated.
func LoadManifest(path string) (*Metadata, error) {
	res, err := cueutil.ParseFile[manifest](manifestSchema, path, "#Manifest")
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return res.Value.metadata(path)
}

// ParseManifest is LoadManifest for in-memory data; filename is used in
// error messages.
func ParseManifest(data []byte, filename string) (*Metadata, error) {
	res, err := cueutil.ParseAndDecode[manifest](manifestSchema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return res.Value.metadata(filename)
}

func (m *manifest) metadata(source string) (*Metadata, error) {
	md := DefaultMetadata()
	m.applyTo(md)
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", source, err)
	}
	return md, nil
}

func (m *manifest) applyTo(md *Metadata) {
	setString(&md.Name, m.Name)
	setString(&md.Version, m.Version)
	if m.Description != nil {
		md.Description = types.DescriptionText(*m.Description)
	}
	setString(&md.Readme, m.Readme)
	setString(&md.ContentType, m.ContentType)
	setString(&md.Author, m.Author)
	setString(&md.AuthorEmail, m.AuthorEmail)
	setString(&md.URL, m.URL)
	setString(&md.PythonRequires, m.PythonRequires)
	setString(&md.PackageDir, m.PackageDir)

	// Lists and maps replace the defaults wholesale.
	if m.Classifiers != nil {
		md.Classifiers = m.Classifiers
	}
	if m.Packages != nil {
		md.Packages = m.Packages
	}
	if m.PackageData != nil {
		md.PackageData = m.PackageData
	}
	if m.InstallRequires != nil {
		md.InstallRequires = m.InstallRequires
	}
	if m.ConsoleScripts != nil {
		md.ConsoleScripts = m.ConsoleScripts
	}
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}
