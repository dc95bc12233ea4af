// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"errors"
	"fmt"
	"maps"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coralprotocol/coral-server-dist/pkg/platform"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// ContentTypeMarkdown is the long-description content type for README.md.
const ContentTypeMarkdown = "text/markdown"

var (
	// ErrInvalidMetadata is the sentinel error wrapped by InvalidMetadataError.
	ErrInvalidMetadata = errors.New("invalid package metadata")

	namePattern        = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)
	versionPattern     = regexp.MustCompile(`^\d+(\.\d+)*((a|b|rc)\d+)?(\.post\d+)?(\.dev\d+)?$`)
	specifierPattern   = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>)\s*[0-9][0-9A-Za-z.*+!]*$`)
	identifierPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	entryTargetPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*:[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

type (
	// Metadata is the declared distribution metadata.
	Metadata struct {
		Name            string                `json:"name" yaml:"name" toml:"name"`
		Version         string                `json:"version" yaml:"version" toml:"version"`
		Description     types.DescriptionText `json:"description" yaml:"description" toml:"description"`
		Readme          string                `json:"readme" yaml:"readme" toml:"readme"`
		ContentType     string                `json:"long_description_content_type" yaml:"long_description_content_type" toml:"long_description_content_type"`
		Author          string                `json:"author" yaml:"author" toml:"author"`
		AuthorEmail     string                `json:"author_email" yaml:"author_email" toml:"author_email"`
		URL             string                `json:"url" yaml:"url" toml:"url"`
		PythonRequires  string                `json:"python_requires" yaml:"python_requires" toml:"python_requires"`
		Classifiers     []string              `json:"classifiers" yaml:"classifiers" toml:"classifiers"`
		PackageDir      string                `json:"package_dir" yaml:"package_dir" toml:"package_dir"`
		Packages        []string              `json:"packages,omitempty" yaml:"packages,omitempty" toml:"packages,omitempty"`
		PackageData     map[string][]string   `json:"package_data" yaml:"package_data" toml:"package_data"`
		InstallRequires []string              `json:"install_requires" yaml:"install_requires" toml:"install_requires"`
		ConsoleScripts  map[string]string     `json:"console_scripts" yaml:"console_scripts" toml:"console_scripts"`
	}

	// InvalidMetadataError collects field-level validation errors.
	InvalidMetadataError struct {
		FieldErrors []error
	}
)

// DefaultMetadata returns the coral-server distribution metadata.
func DefaultMetadata() *Metadata {
	return &Metadata{
		Name:           "coral-server",
		Version:        "0.1.0",
		Description:    "Python wrapper for Coral Protocol Server",
		Readme:         "README.md",
		ContentType:    ContentTypeMarkdown,
		Author:         "Coral Protocol",
		AuthorEmail:    "hello@coralprotocol.org",
		URL:            "https://github.com/Coral-Protocol/coral-server",
		PythonRequires: ">=3.7",
		Classifiers: []string{
			"Development Status :: 3 - Alpha",
			"Intended Audience :: Developers",
			"Programming Language :: Python :: 3",
			"Programming Language :: Python :: 3.7",
			"Programming Language :: Python :: 3.8",
			"Programming Language :: Python :: 3.9",
			"Programming Language :: Python :: 3.10",
		},
		PackageDir: "python",
		PackageData: map[string][]string{
			"coral_server": {"jar/*.jar"},
		},
		InstallRequires: []string{},
		ConsoleScripts: map[string]string{
			"coral-server": "coral_server.cli:main",
		},
	}
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.Classifiers = slices.Clone(m.Classifiers)
	c.Packages = slices.Clone(m.Packages)
	c.InstallRequires = slices.Clone(m.InstallRequires)
	c.PackageData = make(map[string][]string, len(m.PackageData))
	for k, v := range m.PackageData {
		c.PackageData[k] = slices.Clone(v)
	}
	c.ConsoleScripts = make(map[string]string, len(m.ConsoleScripts))
	for k, v := range m.ConsoleScripts {
		c.ConsoleScripts[k] = v
	}
	return &c
}

// ArchiveBase returns "<name>-<version>".
func (m *Metadata) ArchiveBase() string {
	return m.Name + "-" + m.Version
}

// Validate checks every field that ends up in the published metadata.
func (m *Metadata) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	if !namePattern.MatchString(m.Name) {
		add("name", "%q is not a valid distribution name", m.Name)
	}
	if !versionPattern.MatchString(m.Version) {
		add("version", "%q is not a valid version", m.Version)
	}
	if err := m.Description.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("description: %w", err))
	}
	if strings.TrimSpace(m.Readme) == "" {
		add("readme", "must not be empty")
	}
	switch m.ContentType {
	case ContentTypeMarkdown, "text/x-rst", "text/plain":
	default:
		add("long_description_content_type", "unsupported content type %q", m.ContentType)
	}
	if strings.TrimSpace(m.Author) == "" {
		add("author", "must not be empty")
	}
	if _, err := mail.ParseAddress(m.AuthorEmail); err != nil {
		add("author_email", "%q: %v", m.AuthorEmail, err)
	}
	if u, err := url.Parse(m.URL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		add("url", "%q is not an http(s) URL", m.URL)
	}
	for _, spec := range strings.Split(m.PythonRequires, ",") {
		if !specifierPattern.MatchString(strings.TrimSpace(spec)) {
			add("python_requires", "%q is not a version specifier", m.PythonRequires)
			break
		}
	}
	for i, c := range m.Classifiers {
		if !strings.Contains(c, " :: ") {
			add(fmt.Sprintf("classifiers[%d]", i), "%q is not a trove classifier", c)
		}
	}
	if strings.TrimSpace(m.PackageDir) == "" {
		add("package_dir", "must not be empty")
	}
	for _, p := range m.Packages {
		if !validPackageName(p) {
			add("packages", "%q is not a dotted package name", p)
		}
	}
	if len(m.PackageData) == 0 {
		add("package_data", "must declare the server JAR")
	}
	for _, pkg := range slices.Sorted(maps.Keys(m.PackageData)) {
		if !validPackageName(pkg) {
			add("package_data", "%q is not a dotted package name", pkg)
		}
		for _, pat := range m.PackageData[pkg] {
			if pat == "" || !doublestar.ValidatePattern(pat) {
				add("package_data."+pkg, "invalid pattern %q", pat)
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(m.ConsoleScripts)) {
		if !namePattern.MatchString(name) {
			add("console_scripts", "%q is not a valid script name", name)
		}
		if target := m.ConsoleScripts[name]; !entryTargetPattern.MatchString(target) {
			add("console_scripts."+name, "%q is not module:function", target)
		}
	}

	if len(errs) > 0 {
		return &InvalidMetadataError{FieldErrors: errs}
	}
	return nil
}

func (e *InvalidMetadataError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		msgs[i] = fe.Error()
	}
	return ErrInvalidMetadata.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *InvalidMetadataError) Unwrap() error { return ErrInvalidMetadata }

func validPackageName(name string) bool {
	for part := range strings.SplitSeq(name, ".") {
		if !identifierPattern.MatchString(part) || platform.IsWindowsReservedName(part) {
			return false
		}
	}
	return name != ""
}
