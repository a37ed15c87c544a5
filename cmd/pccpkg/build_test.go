package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/config"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/history"
)

const testConfigPHP = `<?php
class JConfig {
	public $sitename = 'Pro Computer';
	public $dbtype = 'mysqli';
	public $host = 'localhost';
	public $user = 'joomla';
	public $password = '';
	public $db = 'pcc';
	public $dbprefix = 'pcc_';
}
`

const testModuleXML = `<?xml version="1.0" encoding="utf-8"?>
<extension type="module" client="site" method="upgrade">
	<name>PCC Products</name>
	<author>Pro Computer</author>
	<creationDate>2024-01-01</creationDate>
	<copyright>(C) 2024 Pro Computer</copyright>
	<license>GPL</license>
	<authorEmail>dev@example.com</authorEmail>
	<authorUrl>https://example.com</authorUrl>
	<version>1.0.0</version>
	<description>Lists products</description>
	<files>
		<filename module="mod_pccproducts">mod_pccproducts.php</filename>
		<folder>tmpl</folder>
	</files>
	<languages>
		<language tag="en-GB">en-GB.mod_pccproducts.ini</language>
	</languages>
</extension>`

// writeSite creates an installation holding one site module and returns
// its web root.
func writeSite(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "public_html")
	files := map[string]string{
		"configuration.php":                          testConfigPHP,
		"modules/mod_pccproducts/mod_pccproducts.xml": testModuleXML,
		"modules/mod_pccproducts/mod_pccproducts.php": "<?php // module",
		"modules/mod_pccproducts/tmpl/default.php":    "<?php // layout",
		"language/en-GB/en-GB.mod_pccproducts.ini":    "MOD_PCCPRODUCTS=\"Products\"",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		OutputDir:         filepath.Join(t.TempDir(), "dist"),
		ReconnectInterval: time.Minute,
	}
	cfg.Archive.Compression = "deflate"
	return cfg
}

func TestFindWebRoot(t *testing.T) {
	root := writeSite(t)

	got, err := findWebRoot(filepath.Join(root, "modules", "mod_pccproducts", "mod_pccproducts.xml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != root {
		t.Errorf("expected %s, got %s", root, got)
	}

	if _, err := findWebRoot(filepath.Join(t.TempDir(), "a", "b.xml")); err == nil {
		t.Error("expected error without a configuration file")
	}
}

func TestManifestName(t *testing.T) {
	root := writeSite(t)
	p := filepath.Join(root, "modules", "mod_pccproducts", "mod_pccproducts.xml")

	name, err := manifestName(fileaccess.NewOS(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "mod_pccproducts" {
		t.Errorf("expected mod_pccproducts, got %s", name)
	}
}

func TestBuildFromManifest(t *testing.T) {
	root := writeSite(t)
	cfg := testConfig(t)
	hist, err := history.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	copyDir := filepath.Join(t.TempDir(), "copy")
	flags := &buildFlags{copyTo: copyDir}
	ctx := context.Background()

	b, err := prepareBuild(ctx, cfg, flags, filepath.Join(root, "modules", "mod_pccproducts", "mod_pccproducts.xml"))
	if err != nil {
		t.Fatalf("prepareBuild: %v", err)
	}
	report := runOne(ctx, cfg, flags, b, hist)

	if !report.Success {
		t.Fatalf("build failed: %v", report.Messages)
	}
	wantOut := filepath.Join(cfg.OutputDir, "pccproducts.zip")
	if report.Output != wantOut {
		t.Errorf("expected output %s, got %s", wantOut, report.Output)
	}
	if _, err := os.Stat(wantOut); err != nil {
		t.Errorf("archive not written: %v", err)
	}
	if len(report.SHA256) != 64 {
		t.Errorf("expected sha256 digest, got %q", report.SHA256)
	}
	if report.Size <= 0 {
		t.Errorf("expected archive size, got %d", report.Size)
	}
	if _, err := os.Stat(filepath.Join(copyDir, "tmpl", "default.php")); err != nil {
		t.Errorf("files not copied: %v", err)
	}

	records, err := hist.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Extension != "mod_pccproducts" || records[0].ID != report.ID {
		t.Errorf("unexpected history %+v", records)
	}
}

func TestBuildByName(t *testing.T) {
	root := writeSite(t)
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "products.zip")
	flags := &buildFlags{webRoot: root, output: out}
	ctx := context.Background()

	b, err := prepareBuild(ctx, cfg, flags, "pccproducts")
	if err != nil {
		t.Fatalf("prepareBuild: %v", err)
	}
	report := runOne(ctx, cfg, flags, b, nil)
	if !report.Success {
		t.Fatalf("build failed: %v", report.Messages)
	}
	if report.Output != out {
		t.Errorf("expected %s, got %s", out, report.Output)
	}
	if report.ID != "" {
		t.Error("expected no history ID without history")
	}

	if _, err := prepareBuild(ctx, cfg, flags, "com_missing"); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestBuildSizeLimitWarning(t *testing.T) {
	root := writeSite(t)
	cfg := testConfig(t)
	cfg.Archive.MaxSize = "1K"
	cfg.Archive.Compression = "store"
	flags := &buildFlags{webRoot: root}
	ctx := context.Background()

	// Pad the layout so the stored archive exceeds the limit.
	pad := make([]byte, 4096)
	if err := os.WriteFile(filepath.Join(root, "modules", "mod_pccproducts", "tmpl", "default.php"), pad, 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := prepareBuild(ctx, cfg, flags, "mod_pccproducts")
	if err != nil {
		t.Fatalf("prepareBuild: %v", err)
	}
	report := runOne(ctx, cfg, flags, b, nil)
	if !report.Success {
		t.Fatalf("build failed: %v", report.Messages)
	}
	var found bool
	for _, m := range report.Messages {
		if m.Severity == "warning" && strings.Contains(m.Text, "over the 1.0 KiB limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected size warning, got %v", report.Messages)
	}
}
