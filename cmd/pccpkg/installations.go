package main

import (
	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
)

var installationsNoCache bool

var installationsCmd = &cobra.Command{
	Use:     "installations [root]...",
	Aliases: []string{"sites"},
	Short:   "Find installations below the web roots",
	Long: `Search the sub-folders of each web root for site installations. A folder
is an installation when it, or a folder up to three levels below it, holds a
configuration.php with database settings.

Roots default to the webroots configuration setting. Results are cached per
root and reused until a folder or configuration file below it changes.

Examples:
  pccpkg installations /srv/www
  pccpkg installations --no-cache -f json`,
	RunE: runInstallations,
}

func init() {
	installationsCmd.Flags().BoolVar(&installationsNoCache, "no-cache", false, "walk every root even when cached")
	rootCmd.AddCommand(installationsCmd)
}

func runInstallations(cmd *cobra.Command, args []string) error {
	roots := args
	if len(roots) == 0 {
		roots = appConfig.WebRoots
	}
	res, elapsed, err := discover(cmd.Context(), roots, !installationsNoCache)
	if err != nil {
		return err
	}
	return render(&output.Result{Installations: installationReport(roots, res, elapsed)})
}
