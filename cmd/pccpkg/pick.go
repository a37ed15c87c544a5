package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/cmd/pccpkg/tui"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/history"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

var pickOpts buildFlags

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose extensions to build interactively",
	Long: `Pick lists the extensions of an installation in a terminal UI. Select
any number of them and press enter to build each in turn.

Examples:
  pccpkg pick --webroot /srv/www/pcc
  pccpkg pick --site pcc --export-schema`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	pickOpts.register(pickCmd)
	_ = pickCmd.Flags().MarkHidden("output")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	pickOpts.apply(appConfig)
	pickOpts.output = ""

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	inst, err := selectInstallation(ctx, pickOpts.webRoot, pickOpts.site)
	if err != nil {
		return err
	}
	exts, err := inst.Extensions()
	if err != nil {
		return err
	}
	// Builds below resolve names against this installation.
	pickOpts.webRoot = inst.WebRoot

	hist, err := openHistory()
	if err != nil {
		printVerbose("history disabled: %v", err)
	}

	reports, err := tui.Run(tui.Options{
		Title:      inst.Name,
		Extensions: extensionReport(inst, exts).Extensions,
		Build:      pickBuild(hist),
	})
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	if len(reports) == 0 {
		return nil
	}
	return render(&output.Result{Builds: reports})
}

func pickBuild(hist *history.History) tui.BuildFunc {
	return func(ctx context.Context, name string) types.BuildReport {
		b, err := prepareBuild(ctx, appConfig, &pickOpts, name)
		if err != nil {
			return types.BuildReport{
				Extension: name,
				Messages:  []types.Message{{Severity: "error", Text: err.Error()}},
			}
		}
		report := runOne(ctx, appConfig, &pickOpts, b, hist)
		if report.Extension == "" {
			report.Extension = name
		}
		return report
	}
}
