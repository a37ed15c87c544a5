// Package installation locates CMS installations on disk, reads their site
// configuration and lists the extensions they contain.
package installation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/schema"
)

// DefaultArchiveName is used when no extension name is known.
const DefaultArchiveName = "joomla_package.zip"

// ErrExtensionNotFound is returned when a named extension is not installed.
var ErrExtensionNotFound = errors.New("extension not found")

var extensionPrefix = regexp.MustCompile(`(?i)^(?:com|mod|plg|pkg)_(.*)$`)

// Installation is one site found on disk.
type Installation struct {
	// Name is the display name, e.g. "Pro Computer - v4.4.2 - source folder: public_html".
	Name string `json:"name" yaml:"name"`

	// Element is the base name of the web root.
	Element string `json:"element" yaml:"element"`

	WebRoot string `json:"web_root" yaml:"web_root"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Config  Config `json:"-" yaml:"-"`

	files fileaccess.Provider
}

// Load reads the installation rooted at webRoot.
func Load(files fileaccess.Provider, webRoot string) (*Installation, error) {
	file := filepath.Join(webRoot, ConfigFile)
	if !files.IsFile(file) {
		return nil, &builder.SourceNotFoundError{Kind: "configuration", Path: file}
	}
	data, err := files.ReadFile(file)
	if err != nil {
		return nil, err
	}
	cfg := ParseConfig(string(data))
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, &ConfigError{File: file, Missing: missing}
	}

	inst := &Installation{
		Element: filepath.Base(webRoot),
		WebRoot: webRoot,
		Config:  cfg,
		files:   files,
	}
	if v, ok := DetectVersion(files, webRoot); ok {
		inst.Version = v
	}
	inst.Name = displayName(cfg.Get("sitename"), inst.Version, inst.Element)
	return inst, nil
}

func displayName(sitename, version, element string) string {
	var names []string
	if s := strings.TrimSpace(sitename); s != "" {
		names = append(names, s)
	}
	if version != "" {
		names = append(names, "v"+version)
	}
	if len(names) > 1 {
		names = append(names, "source folder: "+element)
	}
	if len(names) == 0 {
		return element
	}
	return strings.Join(names, " - ")
}

// Files returns the provider the installation is read through.
func (i *Installation) Files() fileaccess.Provider {
	return i.files
}

// Site returns the build source for this installation. exporter may be nil
// when no table export is wanted.
func (i *Installation) Site(exporter schema.DataExporter) builder.Site {
	return builder.Site{
		WebRoot:  i.WebRoot,
		Files:    fileaccess.NewReconnecting(i.files, nil),
		Exporter: exporter,
	}
}

// Builder opens the builder for an installed extension.
func (i *Installation) Builder(name string, exporter schema.DataExporter, opts ...builder.Option) (*builder.Builder, error) {
	ext, err := i.Extension(name)
	if err != nil {
		return nil, err
	}
	return builder.Open(i.Site(exporter), ext.Manifest, opts...)
}

// ArchiveName returns the download name for an extension archive:
// "com_pccevents" gives "pccevents.zip".
func ArchiveName(extension string) string {
	base := strings.TrimSpace(extension)
	if m := extensionPrefix.FindStringSubmatch(base); m != nil {
		base = strings.TrimSpace(m[1])
	}
	if base == "" {
		return DefaultArchiveName
	}
	return base + ".zip"
}

// SplitRoots splits a web root list separated by semicolons or newlines.
func SplitRoots(roots ...string) []string {
	var out []string
	for _, r := range roots {
		for _, part := range strings.FieldsFunc(r, func(c rune) bool {
			return c == ';' || c == '\n' || c == '\r'
		}) {
			if p := strings.Trim(part, " \t\v\x00"); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
}
