package installation

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
)

// Clients an extension can be installed for.
const (
	ClientSite          = "site"
	ClientAdministrator = "administrator"
)

// Extension is an installed extension with a manifest the builders can
// read.
type Extension struct {
	Type     string `json:"type" yaml:"type" toml:"type"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	Client   string `json:"client" yaml:"client" toml:"client"`
	Manifest string `json:"manifest" yaml:"manifest" toml:"manifest"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
}

// Extensions lists the components, modules and packages of the
// installation ordered by type and name.
func (i *Installation) Extensions() ([]Extension, error) {
	if !i.files.IsDir(i.WebRoot) {
		return nil, &builder.SourceNotFoundError{Kind: "web root", Path: i.WebRoot}
	}

	var out []Extension
	out = append(out, i.components()...)
	out = append(out, i.modules(ClientSite, filepath.Join(i.WebRoot, "modules"))...)
	out = append(out, i.modules(ClientAdministrator, filepath.Join(i.WebRoot, "administrator", "modules"))...)
	out = append(out, i.packages()...)

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Type != out[b].Type {
			return out[a].Type < out[b].Type
		}
		return strings.ToLower(out[a].Name) < strings.ToLower(out[b].Name)
	})
	return out, nil
}

// Extension finds an installed extension by name. The type prefix may be
// left off: "pccevents" finds com_pccevents.
func (i *Installation) Extension(name string) (*Extension, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, notFound(name)
	}
	all, err := i.Extensions()
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if strings.EqualFold(e.Name, name) {
			return &e, nil
		}
	}
	for _, e := range all {
		desc, ok := builder.DescriptorFor(e.Type)
		if ok && strings.EqualFold(builder.RemovePrefix(e.Name, desc.Prefix), name) {
			return &e, nil
		}
	}
	return nil, notFound(name)
}

func (i *Installation) components() []Extension {
	dir := filepath.Join(i.WebRoot, "administrator", "components")
	var out []Extension
	for _, name := range i.subdirs(dir, "com_") {
		m := filepath.Join(dir, name, builder.RemovePrefix(name, "com_")+".xml")
		if !i.files.IsFile(m) {
			continue
		}
		out = append(out, i.extension(builder.TypeComponent, name, ClientAdministrator, m))
	}
	return out
}

func (i *Installation) modules(client, dir string) []Extension {
	var out []Extension
	for _, name := range i.subdirs(dir, "mod_") {
		m := filepath.Join(dir, name, name+".xml")
		if !i.files.IsFile(m) {
			continue
		}
		out = append(out, i.extension(builder.TypeModule, name, client, m))
	}
	return out
}

func (i *Installation) packages() []Extension {
	dir := filepath.Join(i.WebRoot, "administrator", "manifests", "packages")
	entries, err := afero.ReadDir(i.files.Fs(), dir)
	if err != nil {
		return nil
	}
	var out []Extension
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !hasPrefixFold(name, "pkg_") || !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		name = strings.TrimSuffix(name, filepath.Ext(name))
		out = append(out, i.extension(builder.TypePackage, name, ClientSite, filepath.Join(dir, e.Name())))
	}
	return out
}

func (i *Installation) subdirs(dir, prefix string) []string {
	entries, err := afero.ReadDir(i.files.Fs(), dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && hasPrefixFold(e.Name(), prefix) && len(e.Name()) > len(prefix) {
			out = append(out, e.Name())
		}
	}
	return out
}

func (i *Installation) extension(typ, name, client, manifestFile string) Extension {
	ext := Extension{Type: typ, Name: name, Client: client, Manifest: manifestFile}
	data, err := i.files.ReadFile(manifestFile)
	if err != nil {
		return ext
	}
	m, err := manifest.Parse(data, manifestFile)
	if err != nil {
		logging.Get("installation").Debug("unreadable manifest", "file", manifestFile, "error", err)
		return ext
	}
	ext.Version = m.Text("version")
	return ext
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
