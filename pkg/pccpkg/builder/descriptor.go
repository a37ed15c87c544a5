package builder

import (
	"regexp"
	"sort"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
)

// Extension types.
const (
	TypeComponent = "component"
	TypeModule    = "module"
	TypePackage   = "package"
)

// Section is one manifest section a builder processes.
type Section struct {
	Name     string
	Required bool
}

// Descriptor is the static identity of a builder variant.
type Descriptor struct {
	// Type is the manifest type attribute this variant handles.
	Type string

	// Prefix is prepended to extension names, e.g. "com_".
	Prefix string

	// Required lists the top-level manifest elements that must be present
	// and non-empty.
	Required []string

	// Sections are processed in order.
	Sections []Section

	// DefaultFolder is the language folder used when a languages section
	// has no folder attribute.
	DefaultFolder string

	// Composite variants build sub-packages from their files section.
	Composite bool
}

var (
	componentDescriptor = &Descriptor{
		Type:   TypeComponent,
		Prefix: "com_",
		Required: []string{
			"name", "creationDate", "author", "authorEmail", "authorUrl",
			"copyright", "license", "version", "files", "administration", "media",
		},
		Sections: []Section{
			{"files", true},
			{"administration", true},
			{"languages", false},
			{"scriptfile", false},
			{"media", false},
		},
		DefaultFolder: "admin",
	}

	moduleDescriptor = &Descriptor{
		Type:   TypeModule,
		Prefix: "mod_",
		Required: []string{
			"files", "name", "author", "creationDate", "copyright",
			"license", "authorEmail", "authorUrl", "version", "description",
		},
		Sections: []Section{
			{"files", true},
			{"languages", true},
			{"media", false},
		},
		DefaultFolder: "site",
	}

	packageDescriptor = &Descriptor{
		Type:   TypePackage,
		Prefix: "pkg_",
		Required: []string{
			"author", "authorEmail", "authorUrl", "copyright", "creationDate",
			"files", "license", "name", "packagename", "version",
		},
		Sections: []Section{
			{"files", true},
			{"administration", false},
			{"languages", false},
			{"scriptfile", false},
			{"media", false},
		},
		DefaultFolder: "site",
		Composite:     true,
	}
)

// Factory constructs a builder for one manifest.
type Factory func(site Site, m *manifest.Manifest, opts ...Option) *Builder

var registry map[string]Factory

func init() {
	registry = map[string]Factory{
		TypeComponent: NewComponent,
		TypeModule:    NewModule,
		TypePackage:   NewPackage,
	}
}

// childTypes are the types a package may contain.
var childTypes = map[string]bool{
	TypeComponent: true,
	TypeModule:    true,
}

// Lookup returns the factory for an extension type.
func Lookup(typ string) (Factory, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(typ))]
	if !ok {
		return nil, &UnsupportedTypeError{Type: typ}
	}
	return f, nil
}

// Types returns the supported extension types sorted.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DescriptorFor returns the descriptor of a supported type.
func DescriptorFor(typ string) (*Descriptor, bool) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case TypeComponent:
		return componentDescriptor, true
	case TypeModule:
		return moduleDescriptor, true
	case TypePackage:
		return packageDescriptor, true
	}
	return nil, false
}

// RemovePrefix strips prefix from name, ignoring case and leading blanks.
func RemovePrefix(name, prefix string) string {
	if prefix == "" {
		return strings.TrimSpace(name)
	}
	re := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(prefix) + `(.*)$`)
	if m := re.FindStringSubmatch(name); m != nil {
		return strings.TrimSpace(m[1])
	}
	return name
}

// AddPrefix prepends prefix unless name already starts with it.
func AddPrefix(name, prefix string) string {
	if strings.TrimSpace(name) == "" || prefix == "" {
		return name
	}
	re := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(prefix))
	if re.MatchString(name) {
		return name
	}
	return prefix + name
}

// ResolveName derives the extension name from a manifest file name:
// "pccevents.xml" with prefix "com_" gives "com_pccevents".
func ResolveName(manifestFile, prefix string) (string, error) {
	base := fileBase(manifestFile)
	name := RemovePrefix(base, prefix)
	if name == "" {
		return "", ErrEmptyName
	}
	return AddPrefix(name, prefix), nil
}
