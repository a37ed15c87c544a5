package main

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
)

// archiveOptions turns the archive section of the configuration into
// writer options.
func archiveOptions(cfg *config.Config) ([]archive.Option, error) {
	method, err := archive.ParseMethod(cfg.Archive.Compression)
	if err != nil {
		return nil, err
	}
	opts := []archive.Option{archive.WithMethod(method)}
	if len(cfg.Archive.Exclude) > 0 {
		opts = append(opts, archive.WithExclude(cfg.Archive.Exclude...))
	}
	return opts, nil
}

// matcher compiles a comma separated list of glob patterns. An empty list
// matches everything.
func matcher(patterns string) (func(string) bool, error) {
	parts := parseCommaSeparated(patterns)
	if len(parts) == 0 {
		return func(string) bool { return true }, nil
	}
	globs := make([]glob.Glob, 0, len(parts))
	for _, p := range parts {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return func(s string) bool {
		s = strings.ToLower(s)
		for _, g := range globs {
			if g.Match(s) {
				return true
			}
		}
		return false
	}, nil
}

// outputFormat returns the report format from the flag or configuration.
func outputFormat() string {
	if f := viper.GetString("format"); f != "" {
		return f
	}
	return config.DefaultFormat
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
