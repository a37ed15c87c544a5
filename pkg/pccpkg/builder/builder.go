// Package builder assembles an installable package archive for a component,
// module or composite package from its manifest and the live source tree of
// an installation.
//
// An import runs these steps in order and stops at the first hard failure:
// required elements are validated, the extension name is resolved, manifest
// sections are processed into a file list, table scripts are optionally
// exported, sub-packages are built and finally the archive is written.
// Diagnostics are collected in a diag.Sink; Import only reports success.
package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/diag"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/progress"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/schema"
)

// Site is the installation a build reads from.
type Site struct {
	// WebRoot is the installation root directory.
	WebRoot string

	// Files reads the installation tree.
	Files fileaccess.Provider

	// Exporter produces table statements. Nil means no database is
	// available and schema export is skipped with a warning.
	Exporter schema.DataExporter
}

type options struct {
	exportSchema bool
	output       string
	outputFs     afero.Fs
	stageDir     string
	sink         *diag.Sink
	monitor      *progress.Monitor
	archiveOpts  []archive.Option
	logger       *logging.Logger
}

// Option configures a Builder.
type Option func(*options)

// WithExportSchema enables the table export step.
func WithExportSchema(enabled bool) Option {
	return func(o *options) {
		o.exportSchema = enabled
	}
}

// WithOutput sets the archive path. Without it the archive is written to
// the staging directory.
func WithOutput(path string) Option {
	return func(o *options) {
		o.output = path
	}
}

// WithOutputFs writes the archive and copies to fsys instead of the
// installation filesystem.
func WithOutputFs(fsys afero.Fs) Option {
	return func(o *options) {
		o.outputFs = fsys
	}
}

// WithStageDir sets the directory for generated files and sub-package
// archives. It must be on the installation filesystem.
func WithStageDir(dir string) Option {
	return func(o *options) {
		o.stageDir = dir
	}
}

// WithSink also copies the diagnostics of every Import into sink.
func WithSink(sink *diag.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithMonitor shares a progress monitor, usually the parent's.
func WithMonitor(m *progress.Monitor) Option {
	return func(o *options) {
		o.monitor = m
	}
}

// WithArchiveOptions passes options to the archive writer.
func WithArchiveOptions(opts ...archive.Option) Option {
	return func(o *options) {
		o.archiveOpts = append(o.archiveOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// pending is a sub-package declaration resolved during the files section.
type pending struct {
	typ      string
	file     string
	manifest string
}

// Builder assembles one extension package.
type Builder struct {
	desc     *Descriptor
	site     Site
	manifest *manifest.Manifest
	opts     options
	sink     *diag.Sink
	out      *diag.Sink
	monitor  *progress.Monitor
	log      *logging.Logger

	name        string
	files       *FileList
	adminFolder string
	declared    []pending
	children    []*Builder
	archivePath string
	stats       archive.Stats
	imported    bool
	ownStage    bool
	err         error
}

// NewComponent creates a component builder.
func NewComponent(site Site, m *manifest.Manifest, opts ...Option) *Builder {
	return newBuilder(componentDescriptor, site, m, opts)
}

// NewModule creates a module builder.
func NewModule(site Site, m *manifest.Manifest, opts ...Option) *Builder {
	return newBuilder(moduleDescriptor, site, m, opts)
}

// NewPackage creates a composite package builder.
func NewPackage(site Site, m *manifest.Manifest, opts ...Option) *Builder {
	return newBuilder(packageDescriptor, site, m, opts)
}

func newBuilder(desc *Descriptor, site Site, m *manifest.Manifest, opts []Option) *Builder {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.monitor == nil {
		o.monitor = progress.New()
	}
	if o.logger == nil {
		o.logger = logging.Get("builder")
	}
	if o.outputFs == nil && site.Files != nil {
		o.outputFs = site.Files.Fs()
	}
	b := &Builder{
		desc:     desc,
		site:     site,
		manifest: m,
		opts:     o,
		out:      o.sink,
		monitor:  o.monitor,
		log:      o.logger.With("manifest", filepath.Base(m.File)),
		files:    NewFileList(),
	}
	b.sink = b.newSink()
	return b
}

func (b *Builder) newSink() *diag.Sink {
	return diag.NewSink(diag.WithLogger(b.log))
}

// New creates the builder matching the manifest type attribute.
func New(site Site, m *manifest.Manifest, opts ...Option) (*Builder, error) {
	f, err := Lookup(m.Type())
	if err != nil {
		return nil, err
	}
	return f(site, m, opts...), nil
}

// Open reads and parses a manifest from the installation and creates its
// builder.
func Open(site Site, manifestFile string, opts ...Option) (*Builder, error) {
	if !site.Files.IsFile(manifestFile) {
		return nil, &SourceNotFoundError{Kind: "manifest", Path: manifestFile}
	}
	data, err := site.Files.ReadFile(manifestFile)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data, manifestFile)
	if err != nil {
		return nil, err
	}
	return New(site, m, opts...)
}

// Import runs the whole build. It returns false on failure; details are in
// Messages and Err. On failure the file list is discarded and no archive is
// left behind.
func (b *Builder) Import(ctx context.Context) bool {
	b.sink = b.newSink()
	if b.out != nil {
		defer b.out.Merge(b.sink)
	}
	b.imported = false
	b.err = nil
	b.archivePath = ""
	b.files.Reset()
	b.children = nil
	b.declared = nil
	b.log.Info("import started", "type", b.desc.Type)

	err := b.run(ctx)
	if err != nil {
		b.err = err
		b.files.Reset()
		b.children = nil
		b.declared = nil
		if b.ownStage {
			_ = b.Cleanup()
		}
		b.log.Error("import failed", "error", err)
		return false
	}
	b.imported = true
	b.log.Info("import finished", "extension", b.name, "files", b.files.Len(), "archive", b.archivePath)
	return true
}

func (b *Builder) run(ctx context.Context) error {
	if err := b.validateRequired(); err != nil {
		return err
	}

	name, err := ResolveName(b.manifest.File, b.desc.Prefix)
	if err != nil {
		b.errorf("the module name cannot be interpreted from the file name '%s'", fileBase(b.manifest.File))
		return err
	}
	b.name = name
	b.files.Add(b.manifest.File, filepath.Base(b.manifest.File))

	if err := b.processSections(ctx); err != nil {
		return err
	}

	if b.opts.exportSchema {
		if err := b.exportSchema(ctx); err != nil {
			return err
		}
	}

	if b.desc.Composite {
		if err := b.buildSubPackages(ctx); err != nil {
			return err
		}
	}

	return b.archive()
}

// validateRequired checks every required element and reports all that are
// missing at once.
func (b *Builder) validateRequired() error {
	var missing []string
	for _, name := range b.desc.Required {
		if b.manifest.Section(name).IsEmpty() {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	err := &ValidationError{Missing: missing, Package: b.desc.Composite}
	b.errorf("%s", err.Error())
	return err
}

func (b *Builder) processSections(ctx context.Context) error {
	for _, sec := range b.desc.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}

		value := b.manifest.Section(sec.Name)
		if value.IsEmpty() {
			if sec.Required {
				b.errorf("required manifest XML '%s' is empty", sec.Name)
				return &SectionError{Section: sec.Name, Err: ErrSectionMissing}
			}
			b.warnf("manifest XML '%s' section is absent", sec.Name)
			continue
		}

		var err error
		if sec.Required {
			err = b.processSection(b.sink, sec.Name, value)
		} else {
			// Failures of optional sections are kept as warnings.
			scratch := diag.NewSink()
			err = b.processSection(scratch, sec.Name, value)
			b.sink.MergeAs(scratch, diag.Warning)
		}
		b.monitor.SectionDone(sec.Name, b.site.Files)

		if err == nil {
			continue
		}
		if sec.Required {
			return &SectionError{Section: sec.Name, Err: err}
		}
		b.log.Warn("optional section failed", "section", sec.Name, "error", err)
	}
	return nil
}

// processSection runs one section processor with its diagnostics recorded
// into sink.
func (b *Builder) processSection(sink *diag.Sink, name string, v manifest.Value) error {
	prev := b.sink
	b.sink = sink
	defer func() { b.sink = prev }()

	switch name {
	case "files":
		if b.desc.Composite {
			return b.processPackageFiles(v)
		}
		return b.processFiles(v, "files", b.adminClient())
	case "administration":
		return b.processAdministration(v)
	case "languages":
		return b.processLanguages(v, b.defaultLanguageFolder())
	case "scriptfile":
		return b.processScriptfile(v)
	case "media":
		return b.processMedia(v)
	}
	return fmt.Errorf("no processor for section '%s'", name)
}

// adminClient reports whether a module is installed on the administrator
// side.
func (b *Builder) adminClient() bool {
	client := strings.ToLower(strings.TrimSpace(b.manifest.Root.Attr("client")))
	return client == "administrator" || client == "admin"
}

func (b *Builder) defaultLanguageFolder() string {
	if b.desc.Type == TypeModule && b.adminClient() {
		return "admin"
	}
	return b.desc.DefaultFolder
}

func (b *Builder) diagContext() diag.Context {
	return diag.Context{File: b.manifest.File, Source: b.name}
}

func (b *Builder) errorf(format string, args ...any) {
	b.sink.Errorf(b.diagContext(), format, args...)
}

func (b *Builder) warnf(format string, args ...any) {
	b.sink.Warnf(b.diagContext(), format, args...)
}

func (b *Builder) checkpoint(name string) {
	b.monitor.Checkpoint(name, b.site.Files)
}

// AddFile registers a file or folder for the archive.
func (b *Builder) AddFile(source, dest string) {
	b.files.Add(source, dest)
}

// Name returns the resolved extension name, e.g. com_pccevents.
func (b *Builder) Name() string {
	return b.name
}

// Type returns the extension type.
func (b *Builder) Type() string {
	return b.desc.Type
}

// Descriptor returns the builder variant's descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Manifest returns the manifest being built.
func (b *Builder) Manifest() *manifest.Manifest {
	return b.manifest
}

// Site returns the source installation.
func (b *Builder) Site() Site {
	return b.site
}

// Files returns the resolved file list.
func (b *Builder) Files() []archive.Entry {
	return b.files.Entries()
}

// Packages returns the sub-package builders of a composite package.
func (b *Builder) Packages() []*Builder {
	out := make([]*Builder, len(b.children))
	copy(out, b.children)
	return out
}

// Progress returns the checkpoint monitor.
func (b *Builder) Progress() *progress.Monitor {
	return b.monitor
}

// Sink returns the diagnostics of the last Import.
func (b *Builder) Sink() *diag.Sink {
	return b.sink
}

// Messages returns all diagnostics recorded so far.
func (b *Builder) Messages() []diag.Message {
	return b.sink.Messages()
}

// Err returns the error that ended the last failed Import.
func (b *Builder) Err() error {
	return b.err
}

// ArchivePath returns the archive written by the last successful Import.
func (b *Builder) ArchivePath() string {
	return b.archivePath
}

// Stats returns what was written to the archive.
func (b *Builder) Stats() archive.Stats {
	return b.stats
}

// Cleanup removes the staging directory and everything generated in it.
func (b *Builder) Cleanup() error {
	if b.opts.stageDir == "" || b.site.Files == nil {
		return nil
	}
	if err := b.site.Files.Fs().RemoveAll(b.opts.stageDir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	if b.ownStage {
		b.opts.stageDir = ""
		b.ownStage = false
	}
	return nil
}

// stageDir returns the staging directory, creating one on first use.
func (b *Builder) stageDir() (string, error) {
	if b.opts.stageDir != "" {
		if err := b.site.Files.Fs().MkdirAll(b.opts.stageDir, 0o755); err != nil {
			return "", err
		}
		return b.opts.stageDir, nil
	}
	dir, err := b.site.Files.TempDir("pccpkg-")
	if err != nil {
		return "", fmt.Errorf("cannot create temporary directory: %w", err)
	}
	b.opts.stageDir = dir
	b.ownStage = true
	return dir, nil
}

func fileBase(p string) string {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(p, "\\", "/")))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
