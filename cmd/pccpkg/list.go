package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/installation"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/manifest"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

var (
	listWebRoot string
	listSite    string
	listMatch   string
	listType    string
	listLangs   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the extensions of an installation",
	Long: `List the components, modules and packages installed in a site that
have a manifest pccpkg can build from.

Examples:
  pccpkg list --webroot /srv/www/pcc
  pccpkg list --site pcc --match 'pcc*' --type component
  pccpkg list --webroot /srv/www/pcc --languages -o json
  pccpkg list -f paths | xargs -n1 pccpkg build`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listWebRoot, "webroot", "w", "", "installation root")
	listCmd.Flags().StringVarP(&listSite, "site", "s", "", "discovered installation, by name or folder")
	listCmd.Flags().StringVarP(&listMatch, "match", "m", "", "comma-separated name patterns, e.g. 'com_pcc*,mod_*'")
	listCmd.Flags().StringVarP(&listType, "type", "t", "",
		fmt.Sprintf("only this extension type (%s)", strings.Join(builder.Types(), ", ")))
	listCmd.Flags().BoolVarP(&listLangs, "languages", "l", false, "include the language files each manifest declares")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listType != "" && !lo.Contains(builder.Types(), listType) {
		return fmt.Errorf("unknown extension type %q: expecting one of %s", listType, strings.Join(builder.Types(), ", "))
	}
	match, err := matcher(listMatch)
	if err != nil {
		return err
	}
	inst, err := selectInstallation(cmd.Context(), listWebRoot, listSite)
	if err != nil {
		return err
	}
	all, err := inst.Extensions()
	if err != nil {
		return err
	}

	var exts []installation.Extension
	for _, e := range all {
		if listType != "" && e.Type != listType {
			continue
		}
		if match(e.Name) {
			exts = append(exts, e)
		}
	}
	printVerbose("%d of %d extensions in %s", len(exts), len(all), inst.WebRoot)
	report := extensionReport(inst, exts)
	if listLangs {
		addLanguages(inst, report)
	}
	return render(&output.Result{Extensions: report})
}

// addLanguages fills in the language files of every listed extension. An
// unreadable manifest leaves its entry without languages.
func addLanguages(inst *installation.Installation, report *types.ExtensionReport) {
	for i, e := range report.Extensions {
		data, err := inst.Files().ReadFile(e.Manifest)
		if err != nil {
			printVerbose("skipping languages of %s: %v", e.Name, err)
			continue
		}
		m, err := manifest.Parse(data, e.Manifest)
		if err != nil {
			printVerbose("skipping languages of %s: %v", e.Name, err)
			continue
		}
		if langs := m.LanguageFiles(); len(langs) > 0 {
			report.Extensions[i].Languages = langs
		}
	}
}
