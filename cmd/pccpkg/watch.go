package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/watcher"
)

var (
	watchOpts     buildFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <extension|manifest.xml>",
	Short: "Rebuild an archive whenever its sources change",
	Long: `Watch builds the extension once, then watches every file and folder its
manifest resolved and rebuilds the archive after changes settle. Folders
created inside watched folders are picked up automatically.

Press Ctrl+C to stop.

Examples:
  pccpkg watch com_pccevents --webroot /srv/www/pcc
  pccpkg watch pkg_pccsuite --site pcc --debounce 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before rebuilding (default: watch.debounce)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	watchOpts.apply(appConfig)
	debounce := watchDebounce
	if debounce <= 0 {
		debounce = appConfig.Watch.Debounce
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := prepareBuild(ctx, appConfig, &watchOpts, args[0])
	if err != nil {
		return err
	}
	hist, err := openHistory()
	if err != nil {
		printVerbose("history disabled: %v", err)
	}

	w, err := watcher.New(debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	rebuild := func() {
		report := runOne(ctx, appConfig, &watchOpts, b, hist)
		if err := render(&output.Result{Builds: []types.BuildReport{report}}); err != nil {
			printError("%v", err)
		}
		if err := watchSources(w, b); err != nil {
			printError("%v", err)
		}
	}

	rebuild()
	printInfo("Watching %d paths for changes. Press Ctrl+C to stop.", len(w.Paths()))

	w.Run(ctx, func(changed []string) {
		printVerbose("%d paths changed", len(changed))
		rebuild()
	})
	printInfo("Stopped watching.")
	return nil
}

// watchSources adds the sources of the last import to w and ignores the
// builder's own output.
func watchSources(w *watcher.Watcher, b *builder.Builder) error {
	if p := b.ArchivePath(); p != "" {
		w.Ignore(p)
	}
	entries := b.Files()
	if len(entries) == 0 {
		// A failed import drops the file list; keep watching the manifest
		// folder so a fix triggers the next attempt.
		return w.Watch(filepath.Dir(b.Manifest().File))
	}
	return w.WatchEntries(entries)
}
