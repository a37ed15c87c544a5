package manifest

import (
	"path"
	"strings"
)

// Manifest is a parsed extension descriptor bound to the file it came from.
type Manifest struct {
	// File is the path the descriptor was read from.
	File string

	// Root is the <extension> element.
	Root *Node
}

// Parse parses descriptor text read from file. The root element must carry
// a type attribute.
func Parse(data []byte, file string) (*Manifest, error) {
	root, err := ParseTree(data)
	if err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	if strings.TrimSpace(root.Attr("type")) == "" {
		return nil, &ParseError{File: file, Err: ErrMissingType}
	}
	return &Manifest{File: file, Root: root}, nil
}

// Type returns the extension type declared on the root element.
func (m *Manifest) Type() string {
	return strings.ToLower(strings.TrimSpace(m.Root.Attr("type")))
}

// Attrs returns a copy of the root element attributes.
func (m *Manifest) Attrs() map[string]string {
	return ExtractAttributes(m.Root, map[string]string{"type": ""})
}

// Section returns a top-level child slot.
func (m *Manifest) Section(name string) Value {
	return m.Root.Child(name)
}

// Has reports whether a top-level child is present.
func (m *Manifest) Has(name string) bool {
	return m.Root.Has(name)
}

// Text returns the trimmed text of a top-level scalar such as name or
// version. Repeated elements yield the first one.
func (m *Manifest) Text(name string) string {
	v := m.Root.Child(name)
	if v.Kind() == KindGroup {
		return strings.TrimSpace(v.Nodes()[0].Text)
	}
	return strings.TrimSpace(v.Text())
}

// LanguageFiles lists the language files the descriptor declares, keyed by
// location ("admin" for the administration section, "site" for the top
// level, or the section's folder attribute when set). Paths that start with
// admin/languages/ or site/languages/ are rewritten to language/.
func (m *Manifest) LanguageFiles() map[string][]string {
	out := make(map[string][]string)
	sources := []struct {
		location string
		value    Value
	}{
		{"admin", m.Root.Child("administration").Node().Child("languages")},
		{"site", m.Root.Child("languages")},
	}
	for _, src := range sources {
		for _, g := range ExtractGroups(src.value) {
			folder := strings.TrimSpace(g.Attrs["folder"])
			if folder == "" {
				folder = src.location
			}
			for _, lang := range ExtractGroups(g.Node.Child("language")) {
				file := strings.TrimSpace(lang.Node.Text)
				if file == "" {
					continue
				}
				out[folder] = append(out[folder], languagePath(file))
			}
		}
	}
	return out
}

func languagePath(p string) string {
	normalized := strings.ReplaceAll(p, "\\", "/")
	lower := strings.ToLower(normalized)
	for _, prefix := range []string{"admin/languages/", "site/languages/"} {
		if len(lower) > len(prefix) && strings.HasPrefix(lower, prefix) {
			return path.Join("language", normalized[len(prefix):])
		}
	}
	return p
}
