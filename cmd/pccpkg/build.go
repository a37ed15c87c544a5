package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/history"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/installation"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/progress"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/schema"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// buildFlags are shared by build, watch and pick.
type buildFlags struct {
	webRoot      string
	site         string
	output       string
	copyTo       string
	exportSchema bool
	exclude      string
	compression  string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.webRoot, "webroot", "w", "", "installation root to read from")
	flags.StringVarP(&f.site, "site", "s", "", "discovered installation to read from, by name or folder")
	flags.StringVarP(&f.output, "output", "o", "", "archive path (default: <output_dir>/<name>.zip)")
	flags.StringVar(&f.copyTo, "copy-to", "", "also copy the resolved files into this directory")
	flags.BoolVar(&f.exportSchema, "export-schema", false, "write table scripts into the package")
	flags.StringVar(&f.exclude, "exclude", "", "extra comma-separated archive exclusion patterns")
	flags.StringVar(&f.compression, "compression", "", "archive compression (store, deflate)")
}

// apply merges the flags over the configuration.
func (f *buildFlags) apply(cfg *config.Config) {
	if f.exportSchema {
		cfg.ExportSchema = true
	}
	if f.compression != "" {
		cfg.Archive.Compression = f.compression
	}
	cfg.Archive.Exclude = append(cfg.Archive.Exclude, parseCommaSeparated(f.exclude)...)
}

var buildOpts buildFlags

var buildCmd = &cobra.Command{
	Use:   "build <extension|manifest.xml>...",
	Short: "Build installable archives",
	Long: `Build reads the manifest of each named extension, collects the files it
declares and writes an installable ZIP archive.

An argument is either an extension name such as com_pccevents, mod_pccstats,
pkg_pccsuite (the prefix may be left off) or the path of a manifest file.
Extension names are looked up in the installation given by --webroot or
--site; a manifest path finds its installation by walking up to the nearest
configuration.php.

Examples:
  pccpkg build com_pccevents --webroot /srv/www/pcc
  pccpkg build pccevents pccstats --site pcc --export-schema
  pccpkg build ./administrator/components/com_pccevents/pccevents.xml -o /tmp/ev.zip
  pccpkg build pkg_pccsuite --copy-to /tmp/pccsuite -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildOpts.register(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildOpts.output != "" && len(args) > 1 {
		return errors.New("--output needs a single extension")
	}
	buildOpts.apply(appConfig)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hist, err := openHistory()
	if err != nil {
		printVerbose("history disabled: %v", err)
	}

	result := &output.Result{}
	var failed int
	for _, arg := range args {
		b, err := prepareBuild(ctx, appConfig, &buildOpts, arg)
		if err != nil {
			return err
		}
		report := runOne(ctx, appConfig, &buildOpts, b, hist)
		if !report.Success {
			failed++
		}
		result.Builds = append(result.Builds, report)
	}

	if err := render(result); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(args))
	}
	return nil
}

// prepareBuild resolves target to a builder. target is a manifest path or
// an installed extension name.
func prepareBuild(ctx context.Context, cfg *config.Config, f *buildFlags, target string) (*builder.Builder, error) {
	files := fileaccess.NewOS()

	var (
		site         builder.Site
		manifestFile string
		name         string
	)
	if strings.EqualFold(filepath.Ext(target), ".xml") && files.IsFile(target) {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}
		webRoot := f.webRoot
		if webRoot == "" {
			if webRoot, err = findWebRoot(abs); err != nil {
				return nil, err
			}
		}
		inst, err := installation.Load(files, webRoot)
		if err != nil {
			return nil, err
		}
		site = inst.Site(exporter(cfg))
		manifestFile = abs
		if name, err = manifestName(files, abs); err != nil {
			return nil, err
		}
	} else {
		inst, err := selectInstallation(ctx, f.webRoot, f.site)
		if err != nil {
			return nil, err
		}
		ext, err := inst.Extension(target)
		if err != nil {
			return nil, err
		}
		site = inst.Site(exporter(cfg))
		manifestFile = ext.Manifest
		name = ext.Name
	}

	out := f.output
	if out == "" {
		out = filepath.Join(cfg.OutputDir, installation.ArchiveName(name))
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	archiveOpts, err := archiveOptions(cfg)
	if err != nil {
		return nil, err
	}
	monitor := progress.New(
		progress.WithThreshold(cfg.ReconnectInterval),
		progress.WithReopenHook(func(section string, elapsed time.Duration, err error) {
			printVerbose("reopened files after %s in %s", elapsed.Round(time.Millisecond), section)
		}),
	)
	return builder.Open(site, manifestFile,
		builder.WithOutput(out),
		builder.WithExportSchema(cfg.ExportSchema),
		builder.WithMonitor(monitor),
		builder.WithArchiveOptions(archiveOpts...),
	)
}

// runOne imports b and records the outcome.
func runOne(ctx context.Context, cfg *config.Config, f *buildFlags, b *builder.Builder, hist *history.History) types.BuildReport {
	log := logging.Get("builder")
	start := time.Now()
	ok := b.Import(ctx)
	elapsed := time.Since(start)
	defer func() {
		if err := b.Cleanup(); err != nil {
			log.Warn("cleanup failed", "error", err)
		}
	}()

	report := buildReport(b, ok, elapsed)
	if !ok {
		return report
	}

	if f.copyTo != "" {
		if err := b.Copy(f.copyTo); err != nil {
			report.Messages = append(report.Messages, types.Message{Severity: "error", Text: err.Error()})
			report.Success = false
			return report
		}
	}

	sum, size, err := digestFile(b.ArchivePath())
	if err != nil {
		log.Warn("archive digest failed", "archive", b.ArchivePath(), "error", err)
	} else {
		report.SHA256 = sum
		report.Size = size
	}
	if limit := cfg.ArchiveMaxSize(); limit > 0 && report.Size > limit {
		report.Messages = append(report.Messages, types.Message{
			Severity: "warning",
			Text:     fmt.Sprintf("archive is %s, over the %s limit", types.FormatSize(report.Size), types.FormatSize(limit)),
		})
	}

	if hist != nil {
		rec := history.Record{
			Extension: b.Name(),
			Type:      b.Type(),
			WebRoot:   b.Site().WebRoot,
			Archive:   b.ArchivePath(),
			Files:     len(b.Files()),
			Size:      report.Size,
			SHA256:    report.SHA256,
			Duration:  elapsed,
		}
		for _, m := range report.Messages {
			if m.Severity == "warning" {
				rec.Warnings = append(rec.Warnings, m.Text)
			}
		}
		saved, err := hist.Add(rec)
		if err != nil {
			log.Warn("history record failed", "error", err)
		} else {
			report.ID = saved.ID
		}
	}
	return report
}

func buildReport(b *builder.Builder, ok bool, elapsed time.Duration) types.BuildReport {
	report := types.BuildReport{
		Extension: b.Name(),
		Type:      b.Type(),
		Manifest:  b.Manifest().File,
		Output:    b.ArchivePath(),
		Success:   ok,
		Size:      b.Stats().Bytes,
		Elapsed:   elapsed,
	}
	for _, e := range b.Files() {
		report.Files = append(report.Files, types.FileEntry{Source: e.Source, Destination: e.Destination})
	}
	for _, m := range b.Messages() {
		report.Messages = append(report.Messages, types.Message{Severity: m.Severity.String(), Text: m.String()})
	}
	if !ok && b.Err() != nil && len(report.Messages) == 0 {
		report.Messages = append(report.Messages, types.Message{Severity: "error", Text: b.Err().Error()})
	}
	for _, child := range b.Packages() {
		report.Packages = append(report.Packages, buildReport(child, child.ArchivePath() != "", 0))
	}
	return report
}

func digestFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return history.Digest(f)
}

// exporter returns the table exporter when schema export is on.
func exporter(cfg *config.Config) schema.DataExporter {
	if !cfg.ExportSchema {
		return nil
	}
	return schema.ScriptExporter{}
}

// manifestName derives the extension name from a manifest file.
func manifestName(files fileaccess.Provider, manifestFile string) (string, error) {
	data, err := files.ReadFile(manifestFile)
	if err != nil {
		return "", err
	}
	m, err := manifest.Parse(data, manifestFile)
	if err != nil {
		return "", err
	}
	desc, ok := builder.DescriptorFor(m.Type())
	if !ok {
		return "", &builder.UnsupportedTypeError{Type: m.Type()}
	}
	return builder.ResolveName(manifestFile, desc.Prefix)
}

// findWebRoot walks up from path to the nearest directory holding the site
// configuration.
func findWebRoot(path string) (string, error) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(filepath.Join(dir, installation.ConfigFile)); err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found above %s; use --webroot", installation.ConfigFile, path)
		}
		dir = parent
	}
}
