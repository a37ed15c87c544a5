package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/history"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View build history",
	Long: `View the archives built so far.

Each successful build records the extension, archive path, size and SHA-256
digest so an archive handed out earlier can be identified later.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a build",
	Long:  `Display one build record. The ID may be shortened to any unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func requireHistory() (*history.History, error) {
	h, err := openHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if h == nil {
		return nil, errors.New("history is disabled (history.enabled: false)")
	}
	return h, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := requireHistory()
	if err != nil {
		return err
	}
	records, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'pccpkg build <extension>' to build an archive.")
		return nil
	}

	fmt.Printf("\n%-8s  %-19s  %-24s  %-10s  %-10s\n", "ID", "BUILT", "EXTENSION", "FILES", "SIZE")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range records {
		fmt.Printf("%-8s  %-19s  %-24s  %-10d  %-10s\n",
			r.ShortID(),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncateString(r.Extension, 24),
			r.Files,
			types.FormatSize(r.Size),
		)
	}
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(records))
	fmt.Println("Use 'pccpkg history show <id>' for details on a specific entry.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := requireHistory()
	if err != nil {
		return err
	}
	r, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nBuild Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", r.ID)
	fmt.Printf("Built:      %s (%s)\n", r.Timestamp.Local().Format("2006-01-02 15:04:05 MST"), types.FormatAge(r.Timestamp))
	fmt.Printf("Extension:  %s (%s)\n", r.Extension, r.Type)
	fmt.Printf("Web root:   %s\n", dash(r.WebRoot))
	fmt.Printf("Archive:    %s\n", r.Archive)
	fmt.Printf("Files:      %d\n", r.Files)
	fmt.Printf("Size:       %s\n", types.FormatSize(r.Size))
	fmt.Printf("SHA-256:    %s\n", dash(r.SHA256))
	fmt.Printf("Duration:   %s\n", r.Duration)

	if len(r.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		fmt.Println(strings.Repeat("-", 60))
		for _, w := range r.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	h, err := requireHistory()
	if err != nil {
		return err
	}
	days := appConfig.History.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", days)
	removed, err := h.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
