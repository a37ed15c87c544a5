package builder

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/schema"
)

// sqlFile returns the script referenced by <install><sql><file> (or the
// uninstall equivalent). When several drivers are declared the mysql one
// wins.
func sqlFile(m *manifest.Manifest, section string) string {
	var files []manifest.ExtractedGroup
	for _, sec := range manifest.ExtractGroups(m.Section(section)) {
		for _, sql := range manifest.ExtractGroups(sec.Node.Child("sql")) {
			files = append(files, manifest.ExtractGroups(sql.Node.Child("file"))...)
		}
	}
	files = lo.Filter(files, func(f manifest.ExtractedGroup, _ int) bool {
		return strings.TrimSpace(f.Node.Text) != ""
	})
	if len(files) == 0 {
		return ""
	}
	for _, f := range files {
		if strings.EqualFold(strings.TrimSpace(f.Attrs["driver"]), "mysql") {
			return strings.TrimSpace(f.Node.Text)
		}
	}
	return strings.TrimSpace(files[0].Node.Text)
}

// extensionAdminDir is where an extension's administrator files, including
// its SQL scripts, are installed.
func (b *Builder) extensionAdminDir() string {
	return filepath.Join(b.site.WebRoot, "administrator", b.desc.Type+"s", b.name)
}

// exportSchema generates drop, create and sample-data scripts from the
// install script and registers them in the file list.
func (b *Builder) exportSchema(ctx context.Context) error {
	if b.site.Exporter == nil {
		b.warnf("Cannot import data tables as no database adapter is specified in the installation. The manifest file is: %s", b.manifest.File)
		return nil
	}

	install := sqlFile(b.manifest, "install")
	uninstall := sqlFile(b.manifest, "uninstall")
	if install == "" {
		b.warnf("The manifest XML script has no database 'install/sql/file' section."+
			" Normally files having CREATE TABLE scripts are specified in this section. The manifest file is: %s", b.manifest.File)
		return nil
	}
	if uninstall == "" {
		b.warnf("The manifest XML script has no database 'uninstall/sql/file' section."+
			" Normally a file having an install section also has an uninstall section. The manifest file is: %s", b.manifest.File)
	}

	exporter := schema.NewExporter(b.site.Files, b.site.Exporter)
	installPath := filepath.Join(b.extensionAdminDir(), install)
	bundle, err := exporter.Install(ctx, installPath)
	switch {
	case errors.Is(err, schema.ErrScriptNotFound):
		b.errorf("The database installation file specified in the manifest is not found in the extension: '%s'", installPath)
		return &SourceNotFoundError{Kind: "sql", Path: installPath}
	case errors.Is(err, schema.ErrEmptyScript):
		b.warnf("database table install file has no CREATE TABLE statements: '%s'", install)
		return nil
	case err != nil:
		var perr *schema.ParseError
		if errors.As(err, &perr) {
			b.errorf("No CREATE TABLES statements found in file: %s", installPath)
		} else {
			b.errorf("exporting tables from %s: %v", installPath, err)
		}
		return err
	case bundle == nil:
		b.log.Debug("install script is marked as having no data", "file", installPath)
		return nil
	}

	if uninstall != "" {
		b.checkUninstall(exporter, filepath.Join(b.extensionAdminDir(), uninstall), bundle.Tables)
	}
	return b.stageBundle(bundle)
}

// checkUninstall warns about created tables the uninstall script does not
// drop.
func (b *Builder) checkUninstall(exporter *schema.Exporter, file string, created []string) {
	dropped, err := exporter.Uninstall(file)
	if err != nil {
		b.warnf("The database uninstall file specified in the manifest cannot be read: '%s'", file)
		return
	}
	for _, t := range lo.Without(created, dropped...) {
		b.warnf("table '%s' is created by the install script but not dropped by the uninstall script", t)
	}
}

// stageBundle writes the generated scripts to the staging directory and
// registers them below the administrator destination folder.
func (b *Builder) stageBundle(bundle *schema.Bundle) error {
	stage, err := b.stageDir()
	if err != nil {
		b.errorf("%s", err.Error())
		return err
	}
	adminDir := filepath.ToSlash(b.extensionAdminDir())
	dest := b.adminFolder
	if dest == "" && b.desc.Type == TypeComponent {
		dest = "admin"
	}

	files := bundle.Files()
	staged := make([]schema.File, 0, len(files))
	for _, f := range files {
		rel := strings.TrimPrefix(strings.TrimPrefix(filepath.ToSlash(f.Path), adminDir), "/")
		staged = append(staged, schema.File{
			Path:    filepath.Join(stage, "sql", filepath.FromSlash(rel)),
			Content: f.Content,
		})
	}
	if err := schema.WriteFiles(b.site.Files.Fs(), staged); err != nil {
		b.errorf("%s", err.Error())
		return err
	}
	for i, f := range files {
		rel := strings.TrimPrefix(strings.TrimPrefix(filepath.ToSlash(f.Path), adminDir), "/")
		b.files.Add(staged[i].Path, path.Join(dest, rel))
	}
	b.log.Info("table scripts exported", "tables", len(bundle.Tables))
	return nil
}
