package main

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
)

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{" , a,,", []string{"a"}},
	}
	for _, tt := range tests {
		got := parseCommaSeparated(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseCommaSeparated(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseCommaSeparated(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns string
		input    string
		want     bool
	}{
		{"empty matches all", "", "com_anything", true},
		{"exact", "com_pccevents", "com_pccevents", true},
		{"wildcard", "com_pcc*", "com_pccevents", true},
		{"case insensitive", "MOD_*", "mod_pccstats", true},
		{"second pattern", "com_*,mod_*", "mod_pccstats", true},
		{"no match", "com_*", "pkg_pccsuite", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := matcher(tt.patterns)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := match(tt.input); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := matcher("com_[pcc"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestArchiveOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Archive.Compression = "store"
	cfg.Archive.Exclude = []string{".git"}

	opts, err := archiveOptions(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("expected method and exclude options, got %d", len(opts))
	}

	cfg.Archive.Compression = "bzip9"
	if _, err := archiveOptions(cfg); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestBuildFlagsApply(t *testing.T) {
	cfg := &config.Config{}
	cfg.Archive.Compression = "deflate"
	cfg.Archive.Exclude = []string{".git"}

	f := buildFlags{exportSchema: true, compression: "store", exclude: "*.bak, node_modules"}
	f.apply(cfg)

	if !cfg.ExportSchema {
		t.Error("expected export schema enabled")
	}
	if cfg.Archive.Compression != "store" {
		t.Errorf("expected store, got %q", cfg.Archive.Compression)
	}
	if len(cfg.Archive.Exclude) != 3 || cfg.Archive.Exclude[2] != "node_modules" {
		t.Errorf("unexpected exclusions %v", cfg.Archive.Exclude)
	}
}

func TestOutputFormat(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if got := outputFormat(); got != config.DefaultFormat {
		t.Errorf("expected default format %q, got %q", config.DefaultFormat, got)
	}
	viper.Set("format", "json")
	if got := outputFormat(); got != "json" {
		t.Errorf("expected json, got %q", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	got := envOverrides([]string{"PATH=/bin", "PCCPKG_OUTPUT_DIR=/tmp", "PCCPKG_FORMAT=json", "PCCPKGX=1"})
	if len(got) != 2 || got[0] != "PCCPKG_FORMAT=json" || got[1] != "PCCPKG_OUTPUT_DIR=/tmp" {
		t.Errorf("unexpected overrides %v", got)
	}
}
