package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/cache"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the discovery cache",
	Long: `Commands for managing the installation discovery cache.

The cache remembers which installations were found below each web root so
repeat runs skip the folder walk. An entry is dropped as soon as the root
folder or one of its configuration files changes.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [root]",
	Short: "Clear cached discovery results",
	Long:  `Removes the cached results for one web root, or for all of them.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cacheDir()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("Cache is already empty.")
			return nil
		}
		c, err := cache.Open(path)
		if err != nil {
			return err
		}
		defer c.Close()

		if len(args) == 1 {
			if err := c.Clear(args[0]); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Printf("Cache cleared for %s.\n", args[0])
			return nil
		}
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, its size and the cached web roots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cacheDir()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("Cache: empty (no cache directory)")
			fmt.Printf("Cache location: %s\n", path)
			return nil
		}
		c, err := cache.Open(path)
		if err != nil {
			return err
		}
		defer c.Close()

		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("failed to read cache: %w", err)
		}
		fmt.Printf("Cache location: %s\n", stats.Path)
		fmt.Printf("Cache size: %s\n", types.FormatSize(stats.LSMSize+stats.VLogSize))
		fmt.Printf("Cached roots: %d\n", len(stats.Roots))
		for _, r := range stats.Roots {
			fmt.Printf("  %s\n", r)
		}
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cacheDir())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheDir() string {
	if appConfig != nil && appConfig.Cache.Dir != "" {
		return appConfig.Cache.Dir
	}
	return cache.DefaultPath()
}
