package builder

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
)

// DefaultLocale is used when a language file's locale cannot be inferred.
const DefaultLocale = "en-GB"

var localePattern = regexp.MustCompile(`(?i)^(.*?)\.(.*?)\.ini$`)

// groups normalizes a section and warns about repetition and empty
// elements. It returns nil after recording an error when nothing is left.
func (b *Builder) groups(v manifest.Value, tag string) []manifest.ExtractedGroup {
	groups := manifest.ExtractGroups(v)
	total := min(len(v.Nodes()), manifest.MaxGroups)
	if len(groups) > 1 {
		b.warnf("multiple '%s' elements", tag)
	}
	for i := len(groups); i < total; i++ {
		b.warnf("a '%s' element is empty", tag)
	}
	return groups
}

// extensionDir is the directory name of the extension in the installation,
// taken from the folder holding the manifest.
func (b *Builder) extensionDir() string {
	return filepath.Base(filepath.Dir(b.manifest.File))
}

// processFiles handles a <files> section. Each group's folder attribute
// selects the site or administrator tree and is the destination folder.
func (b *Builder) processFiles(v manifest.Value, tag string, admin bool) error {
	groups := b.groups(v, tag)
	if len(groups) == 0 {
		b.errorf("%s section is empty", tag)
		return ErrSectionMissing
	}

	var errs []error
	for _, g := range groups {
		destDir := strings.TrimSpace(g.Attrs["folder"])
		client := ""
		switch {
		case destDir != "" && destDir != "site":
			client = "administrator"
		case destDir == "" && admin:
			client = "administrator"
		}
		sourceDir := filepath.Join(b.site.WebRoot, client, b.desc.Type+"s", b.extensionDir())
		if !b.site.Files.IsDir(sourceDir) {
			b.errorf("Source folder not found: %s", sourceDir)
			errs = append(errs, &SourceNotFoundError{Kind: "folder", Path: sourceDir})
			continue
		}

		elements := manifest.ExtractElements(g.Node, "filename", "folder")
		if len(elements) == 0 {
			b.warnf("SKIPPED: %s section contains no file nor folder entries.", tag)
			continue
		}
		b.checkpoint("files")
		if tag == "administration" && b.adminFolder == "" {
			b.adminFolder = destDir
		}
		if err := b.addFiles(elements, sourceDir, destDir, tag); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// addFiles registers filename and folder elements found under sourceDir.
func (b *Builder) addFiles(elements []manifest.Element, sourceDir, destDir, tag string) error {
	var errs []error
	for _, el := range elements {
		for _, n := range el.Value.Nodes() {
			file := strings.TrimSpace(n.Text)
			if file == "" {
				b.errorf("A %s '%s' element has an empty value", tag, el.Key)
				errs = append(errs, &SourceNotFoundError{Kind: el.Key, Path: sourceDir})
				continue
			}

			source := filepath.Join(sourceDir, file)
			found := false
			if el.Key == "folder" {
				found = b.site.Files.IsDir(source)
			} else if resolved, ok := b.site.Files.Realpath(source); ok {
				found = b.site.Files.IsFile(resolved)
			}
			if !found {
				b.errorf("%s %s '%s' not found: %s", tag, el.Key, file, source)
				errs = append(errs, &SourceNotFoundError{Kind: el.Key, Path: source})
				continue
			}

			b.files.Add(source, path.Join(destDir, filepath.ToSlash(file)))
			b.checkpoint(tag)
		}
	}
	return joinErrors(errs)
}

// processMedia handles <media folder="media" destination="com_x">.
func (b *Builder) processMedia(v manifest.Value) error {
	const tag = "media"
	groups := b.groups(v, tag)
	if len(groups) == 0 {
		b.errorf("%s section is empty", tag)
		return ErrSectionMissing
	}

	var errs []error
	for _, g := range groups {
		attrs := manifest.FilterAttributes(g.Attrs, "folder", "destination")
		folder := strings.TrimSpace(attrs["folder"])
		destination := strings.TrimSpace(attrs["destination"])
		if destination == "" {
			destination = b.extensionDir()
		}

		dir := filepath.Join(b.site.WebRoot, folder, destination)
		sourceDir, ok := b.site.Files.Realpath(dir)
		if !ok || !b.site.Files.IsDir(sourceDir) {
			b.errorf("Media folder not found: %s", dir)
			errs = append(errs, &SourceNotFoundError{Kind: tag, Path: dir})
			continue
		}
		b.checkpoint(tag)

		elements := manifest.ExtractElements(g.Node, "filename", "folder")
		if len(elements) == 0 {
			b.warnf("SKIPPED: media section having path '%s/%s' contains no file nor folder entries.", folder, destination)
			continue
		}
		if err := b.addFiles(elements, sourceDir, folder, tag); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// processLanguages handles <languages folder="admin|site">. An unsupported
// folder fails only its own group.
func (b *Builder) processLanguages(v manifest.Value, defaultFolder string) error {
	const tag = "languages"
	groups := b.groups(v, tag)
	if len(groups) == 0 {
		b.errorf("%s section is empty", tag)
		return ErrSectionMissing
	}

	var errs []error
	for _, g := range groups {
		langFolder := strings.ToLower(strings.TrimSpace(g.Attrs["folder"]))
		if langFolder == "" {
			langFolder = defaultFolder
		}
		var client string
		switch langFolder {
		case "admin":
			client = "administrator"
		case "site":
			client = ""
		default:
			b.errorf("Unsupported language folder attribute '%s': expecting 'admin' or 'site'", langFolder)
			errs = append(errs, &UnsupportedTypeError{Type: "language folder " + langFolder})
			continue
		}

		languages := manifest.ExtractGroups(g.Node.Child("language"))
		if len(languages) == 0 {
			b.warnf("No 'language' tags found in '%s' element for folder '%s'", tag, langFolder)
			continue
		}
		for _, lang := range languages {
			if err := b.addLanguageFile(lang, langFolder, client); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return joinErrors(errs)
}

func (b *Builder) addLanguageFile(lang manifest.ExtractedGroup, langFolder, client string) error {
	file := strings.TrimSpace(lang.Node.Text)
	if file == "" {
		b.errorf("Language file value is empty in %s section", langFolder)
		return &SourceNotFoundError{Kind: "language", Path: langFolder}
	}
	pkgFile := path.Join(langFolder, filepath.ToSlash(file))

	attrs := manifest.ExtractAttributes(lang.Node, map[string]string{"tag": ""})
	locale := strings.TrimSpace(attrs["tag"])
	if locale == "" {
		b.warnf("Missing 'tag' language attribute")
		locale = ResolveLocale(file, DefaultLocale)
	}

	base := path.Base(filepath.ToSlash(file))
	source := filepath.Join(b.site.WebRoot, client, "language", locale, base)
	if !b.site.Files.FileExists(source) {
		b.errorf("Language file not found for '%s': %s", base, pkgFile)
		return &SourceNotFoundError{Kind: "language", Path: source}
	}

	b.checkpoint("languages")
	b.files.Add(source, pkgFile)
	return nil
}

// ResolveLocale infers the locale from a language file name such as
// "en-GB.com_x.ini", returning def when it cannot.
func ResolveLocale(file, def string) string {
	base := path.Base(filepath.ToSlash(file))
	if m := localePattern.FindStringSubmatch(base); m != nil && m[1] != "" {
		return m[1]
	}
	return def
}

// processAdministration handles <administration>: a required nested files
// section and an optional nested languages section.
func (b *Builder) processAdministration(v manifest.Value) error {
	const tag = "administration"
	groups := b.groups(v, tag)
	if len(groups) == 0 {
		b.errorf("%s section is empty", tag)
		return ErrSectionMissing
	}

	var errs []error
	for _, g := range groups {
		files := g.Node.Child("files")
		if files.IsEmpty() {
			b.errorf("required %s 'files' section is missing.", tag)
			errs = append(errs, &SectionError{Section: tag + "/files", Err: ErrSectionMissing})
			continue
		}
		if err := b.processFiles(files, tag, true); err != nil {
			errs = append(errs, err)
			continue
		}

		languages := g.Node.Child("languages")
		if languages.IsEmpty() {
			b.warnf("%s 'languages' section is missing.", tag)
			continue
		}
		if err := b.processLanguages(languages, "admin"); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// processScriptfile registers the install script stored next to the
// manifest.
func (b *Builder) processScriptfile(v manifest.Value) error {
	filename := strings.TrimSpace(v.Text())
	if filename == "" {
		if nodes := v.Nodes(); len(nodes) > 0 {
			filename = strings.TrimSpace(nodes[0].Text)
		}
	}
	if filename == "" {
		b.errorf("the 'scriptfile' section is empty")
		return ErrSectionMissing
	}

	source := filepath.Join(filepath.Dir(b.manifest.File), filename)
	if !b.site.Files.FileExists(source) {
		b.errorf("The script file specified in 'scriptfile' section is missing: %s", filename)
		return &SourceNotFoundError{Kind: "scriptfile", Path: source}
	}
	b.files.Add(source, filepath.ToSlash(filename))
	return nil
}
