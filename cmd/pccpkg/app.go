package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/cache"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/history"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/installation"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/output"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// render writes r to stdout in the selected format.
func render(r *output.Result) error {
	formatter, err := output.Get(outputFormat())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// openHistory returns the build history, or nil when it is disabled.
func openHistory() (*history.History, error) {
	if !appConfig.History.Enabled {
		return nil, nil
	}
	dir := appConfig.History.Dir
	if dir == "" {
		dir = history.DefaultDir()
	}
	return history.New(dir)
}

// openCache opens the discovery cache. A cache that cannot be opened, for
// example because another process holds it, is skipped.
func openCache() *cache.Cache {
	if !appConfig.Cache.Enabled {
		return nil
	}
	dir := appConfig.Cache.Dir
	if dir == "" {
		dir = cache.DefaultPath()
	}
	c, err := cache.Open(dir)
	if err != nil {
		printVerbose("discovery cache unavailable: %v", err)
		return nil
	}
	return c
}

// discover finds installations below the given roots, falling back to the
// configured web roots.
func discover(ctx context.Context, roots []string, useCache bool) (*installation.DiscoverResult, time.Duration, error) {
	if len(roots) == 0 {
		roots = appConfig.WebRoots
	}
	opts := installation.DiscoverOptions{
		Roots: roots,
		OnFolder: func(p string) {
			printVerbose("searching %s", p)
		},
	}
	if useCache {
		if c := openCache(); c != nil {
			defer c.Close()
			opts.Cache = c
		}
	}

	start := time.Now()
	res, err := installation.Discover(ctx, opts)
	return res, time.Since(start), err
}

// selectInstallation resolves the installation to work on: the web root
// when given, otherwise the discovered installation named by site, or the
// only one discovered.
func selectInstallation(ctx context.Context, webRoot, site string) (*installation.Installation, error) {
	if webRoot != "" {
		return installation.Load(fileaccess.NewOS(), webRoot)
	}

	res, _, err := discover(ctx, nil, true)
	if err != nil {
		return nil, err
	}
	if site != "" {
		inst, ok := res.Find(site)
		if !ok {
			return nil, fmt.Errorf("installation %q not found below %v", site, appConfig.WebRoots)
		}
		return inst, nil
	}
	switch len(res.Installations) {
	case 0:
		return nil, fmt.Errorf("no installations found below %v", appConfig.WebRoots)
	case 1:
		return res.Installations[0], nil
	}
	return nil, fmt.Errorf("%d installations found; choose one with --site or --webroot", len(res.Installations))
}

func installationReport(roots []string, res *installation.DiscoverResult, elapsed time.Duration) *types.InstallationReport {
	report := &types.InstallationReport{
		Roots:         installation.SplitRoots(roots...),
		Installations: []types.InstallationInfo{},
		Folders:       res.Folders,
		CachedRoots:   res.CachedRoots,
		Elapsed:       elapsed,
	}
	for _, inst := range res.Installations {
		report.Installations = append(report.Installations, types.InstallationInfo{
			Name:    inst.Name,
			Element: inst.Element,
			WebRoot: inst.WebRoot,
			Version: inst.Version,
		})
	}
	for _, e := range res.Errors {
		report.Errors = append(report.Errors, e.Path+": "+e.Error)
	}
	return report
}

func extensionReport(inst *installation.Installation, exts []installation.Extension) *types.ExtensionReport {
	report := &types.ExtensionReport{
		Installation: inst.Name,
		WebRoot:      inst.WebRoot,
		Extensions:   []types.ExtensionInfo{},
	}
	for _, e := range exts {
		report.Extensions = append(report.Extensions, types.ExtensionInfo{
			Type:     e.Type,
			Name:     e.Name,
			Client:   e.Client,
			Version:  e.Version,
			Manifest: e.Manifest,
		})
	}
	return report
}
