package builder

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
)

// check verifies that every registered source still exists.
func (b *Builder) check() error {
	var errs []error
	for _, e := range b.files.Entries() {
		if !b.site.Files.FileExists(e.Source) {
			b.errorf("Source file not found: \n%s", e.Source)
			errs = append(errs, &SourceNotFoundError{Kind: "source", Path: e.Source})
		}
	}
	return joinErrors(errs)
}

// archive writes the file list to the output archive.
func (b *Builder) archive() error {
	if err := b.check(); err != nil {
		return err
	}

	out := b.opts.output
	if out == "" {
		stage, err := b.stageDir()
		if err != nil {
			b.errorf("%s", err.Error())
			return err
		}
		out = filepath.Join(stage, b.name+".zip")
	}

	opts := append([]archive.Option{
		archive.WithSourceFs(b.site.Files.Fs()),
		archive.WithProgress(func(string, int64) { b.checkpoint("archive") }),
	}, b.opts.archiveOpts...)
	w, err := archive.Open(b.opts.outputFs, out, opts...)
	if err != nil {
		b.errorf("cannot open archive %s: %v", out, err)
		return &ArchiveError{Op: "open", Path: out, Err: err}
	}
	if err := w.AddFromFileList(b.files.Entries()); err != nil {
		_ = w.Abort()
		b.errorf("cannot add files to archive %s: %v", out, err)
		return &ArchiveError{Op: "add", Path: out, Err: err}
	}
	if err := w.Close(); err != nil {
		_ = w.Abort()
		b.errorf("cannot write archive %s: %v", out, err)
		return &ArchiveError{Op: "close", Path: out, Err: err}
	}

	b.archivePath = out
	b.stats = w.Stats()
	b.monitor.SectionDone("archive", b.site.Files)
	return nil
}

// Copy writes the resolved files into dest on the output filesystem instead
// of an archive. Sub-packages are copied below dest/packages/{name}.
func (b *Builder) Copy(dest string) error {
	return b.copyTo(b.opts.outputFs, dest)
}

func (b *Builder) copyTo(fsys afero.Fs, dest string) error {
	if !b.imported {
		return ErrNotImported
	}
	for _, e := range b.files.Entries() {
		if b.desc.Composite && filepath.Dir(filepath.FromSlash(e.Destination)) == PackagesFolder {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(e.Destination))
		if err := fileaccess.Copy(b.site.Files.Fs(), fsys, e.Source, target); err != nil {
			if fileaccess.IsNotExist(err) {
				b.errorf("Source file not found: %s", e.Source)
				return &SourceNotFoundError{Kind: "file", Path: e.Source}
			}
			b.errorf("cannot copy %s to %s: %v", e.Source, target, err)
			return err
		}
		b.checkpoint("copy")
	}
	for _, child := range b.children {
		if err := child.copyTo(fsys, filepath.Join(dest, PackagesFolder, child.Name())); err != nil {
			return err
		}
	}
	return nil
}
