package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/diag"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
)

// PackagesFolder is where sub-package archives are stored in a package.
const PackagesFolder = "packages"

// processPackageFiles reads the <file type="..."> declarations of a
// composite package. Each declaration is checked and its manifest located;
// the sub-packages are built later by buildSubPackages.
//
//	<files folder="packages">
//	    <file type="module" id="pcceventslist" client="site">mod_pcceventslist.zip</file>
//	    <file type="component" id="pccevents">com_pccevents.zip</file>
//	</files>
func (b *Builder) processPackageFiles(v manifest.Value) error {
	const tag = "files"
	groups := b.groups(v, tag)
	if len(groups) == 0 {
		b.errorf("%s section is empty", tag)
		return ErrSectionMissing
	}

	var errs []error
	for _, g := range groups {
		decls := manifest.ExtractGroups(g.Node.Child("file"))
		if len(decls) == 0 {
			b.errorf("a 'files' section is empty: expecting package ZIP file declarations")
			errs = append(errs, ErrSectionMissing)
			continue
		}
		for _, d := range decls {
			b.checkpoint("packages")
			p, err := b.declare(d)
			if errors.Is(err, ErrMissingFromInstallation) {
				return err
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			b.declared = append(b.declared, p)
		}
	}
	return joinErrors(errs)
}

func (b *Builder) declare(d manifest.ExtractedGroup) (pending, error) {
	file := strings.TrimSpace(d.Node.Text)
	attrs := manifest.ExtractAttributes(d.Node, map[string]string{"type": "", "client": "", "id": ""})
	typ := strings.ToLower(strings.TrimSpace(attrs["type"]))
	if typ == "" {
		b.errorf("'file' node '%s' in the 'files' section is missing the 'type' attribute", file)
		return pending{}, &UnsupportedTypeError{Type: ""}
	}
	if !childTypes[typ] {
		b.errorf("package type '%s' not currently supported", typ)
		return pending{}, &UnsupportedTypeError{Type: typ}
	}

	manifestFile, err := b.resolveSource(typ, file, attrs["client"])
	if err != nil {
		if errors.Is(err, ErrMissingFromInstallation) {
			b.errorf("extension '%s' is not found in the installation. Are you sure the %s '%s' is installed in the installation folder?",
				fileBase(file), typ, fileBase(file))
		}
		return pending{}, err
	}
	return pending{typ: typ, file: file, manifest: manifestFile}, nil
}

// resolveSource finds the installed manifest of a declared sub-package.
func (b *Builder) resolveSource(typ, file, client string) (string, error) {
	source := diag.Context{File: b.manifest.File, Source: filepath.Base(b.site.WebRoot)}
	extName := fileBase(file)
	if extName == "" {
		b.sink.Errorf(source, "a '%s' file declaration has an empty value", typ)
		return "", &SourceNotFoundError{Kind: "manifest", Path: file}
	}

	var dir, base string
	switch typ {
	case TypeComponent:
		dir = filepath.Join(b.site.WebRoot, "administrator", "components", extName)
		base = RemovePrefix(extName, componentDescriptor.Prefix)
	case TypeModule:
		side := ""
		if c := strings.ToLower(strings.TrimSpace(client)); c == "admin" || c == "administrator" {
			side = "administrator"
		}
		dir = filepath.Join(b.site.WebRoot, side, "modules", extName)
		base = extName
	default:
		b.sink.Errorf(source, "unsupported or misspelled 'type' attribute '%s'", typ)
		return "", &UnsupportedTypeError{Type: typ}
	}

	manifestFile := filepath.Join(dir, base+".xml")
	if b.site.Files.IsFile(manifestFile) {
		return manifestFile, nil
	}
	b.sink.Errorf(source, "%s manifest file not found in installation '%s': %s", typ, extName, manifestFile)
	return "", fmt.Errorf("%w: %s", ErrMissingFromInstallation, manifestFile)
}

// buildSubPackages imports every declared sub-package into its own archive
// and registers it under packages/. Siblings are attempted even when one
// fails.
func (b *Builder) buildSubPackages(ctx context.Context) error {
	if len(b.declared) == 0 {
		return nil
	}
	stage, err := b.stageDir()
	if err != nil {
		b.errorf("%s", err.Error())
		return err
	}

	var errs []error
	for _, p := range b.declared {
		if err := ctx.Err(); err != nil {
			return err
		}
		child, err := b.buildChild(ctx, p, stage)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.children = append(b.children, child)
		b.files.Add(child.ArchivePath(), PackagesFolder+"/"+child.Name()+".zip")
		b.monitor.SectionDone("packages", b.site.Files)
	}
	if len(errs) > 0 {
		return &SectionError{Section: PackagesFolder, Err: joinErrors(errs)}
	}
	return nil
}

func (b *Builder) buildChild(ctx context.Context, p pending, stage string) (*Builder, error) {
	data, err := b.site.Files.ReadFile(p.manifest)
	if err != nil {
		b.errorf("cannot read %s manifest %s: %v", p.typ, p.manifest, err)
		return nil, err
	}
	m, err := manifest.Parse(data, p.manifest)
	if err != nil {
		b.errorf("%s", err.Error())
		return nil, err
	}
	factory, err := Lookup(p.typ)
	if err != nil {
		b.errorf("%s", err.Error())
		return nil, err
	}

	childSink := diag.NewSink(diag.WithLogger(b.log))
	childStage := filepath.Join(stage, fileBase(p.file))
	child := factory(b.site, m,
		WithSink(childSink),
		WithMonitor(b.monitor),
		WithLogger(b.opts.logger),
		WithExportSchema(b.opts.exportSchema),
		WithStageDir(childStage),
		WithOutput(filepath.Join(stage, fileBase(p.file)+".zip")),
		WithArchiveOptions(b.opts.archiveOpts...),
	)
	ok := child.Import(ctx)
	b.sink.Merge(childSink)
	if !ok {
		return nil, child.Err()
	}
	return child, nil
}
