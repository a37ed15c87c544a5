package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
)

var (
	cfgFile   string
	appConfig *config.Config
	configErr error

	rootCmd = &cobra.Command{
		Use:   "pccpkg",
		Short: "Package installed CMS extensions into installable archives",
		Long: `pccpkg reads the manifest of an installed component, module or package,
collects every file it declares from the site and writes an installable ZIP.

Examples:
  pccpkg installations                    # Find sites below the configured web roots
  pccpkg list --webroot /srv/www/pcc      # List a site's extensions
  pccpkg build com_pccevents --webroot /srv/www/pcc
  pccpkg build /srv/www/pcc/modules/mod_pccstats/mod_pccstats.xml -o stats.zip
  pccpkg watch pkg_pccevents              # Rebuild when sources change
  pccpkg pick                             # Choose extensions interactively`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configErr != nil {
				return configErr
			}
			return initLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/pccpkg/config.yaml)")
	flags.BoolP("verbose", "v", false, "debug output on the console")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.String("log-level", "", "file log level (debug, info, warn, error)")
	flags.StringP("format", "f", "", fmt.Sprintf("report format (%s)", joinNames(output.Available())))
	flags.StringSlice("webroots", nil, "folders holding site installations (repeatable)")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("webroots", flags.Lookup("webroots"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	config.Configure(viper.GetViper(), cfgFile)
	appConfig, configErr = config.FromViper(viper.GetViper())
	if configErr == nil {
		configErr = appConfig.Validate()
	}
}

// initLogging starts file logging and sets the console level from the
// verbosity flags.
func initLogging() error {
	lc := appConfig.LoggingConfig()
	switch {
	case getVerbose():
		lc.ConsoleLevel = "debug"
	case getQuiet():
		lc.ConsoleLevel = "error"
	}
	lc.Console = os.Stderr
	if err := logging.Init(lc); err != nil {
		printVerbose("file logging disabled: %v", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, output.ErrorBox.Render(output.ErrorStyle.Render("Error: ")+fmt.Sprintf(format, args...)))
}
