package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
)

// These tests share global logging state and do not run in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, logging.ErrInvalidLevel) {
					t.Fatalf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pccpkg.log")
	var console bytes.Buffer

	err := logging.Init(logging.Config{
		Level:        "debug",
		Path:         path,
		ConsoleLevel: "warn",
		Console:      &console,
		Components:   map[string]string{"archive": "error"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("builder").Info("import started", "manifest", "pccevents.xml")
	logging.Get("builder").Warn("media section absent")
	logging.Get("archive").Warn("suppressed by component level")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "import started") || !strings.Contains(content, "pccevents.xml") {
		t.Errorf("log file missing info entry: %q", content)
	}
	if strings.Contains(content, "suppressed by component level") {
		t.Errorf("component override not applied: %q", content)
	}
	if strings.Contains(console.String(), "import started") {
		t.Errorf("console received entry below its level: %q", console.String())
	}
	if !strings.Contains(console.String(), "media section absent") {
		t.Errorf("console missing warn entry: %q", console.String())
	}
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Must not panic or write anywhere.
	logging.Get("quiet").Error("nobody hears this")
}

func TestInitInvalidLevel(t *testing.T) {
	err := logging.Init(logging.Config{Level: "nope", Path: filepath.Join(t.TempDir(), "x.log")})
	if !errors.Is(err, logging.ErrInvalidLevel) {
		t.Fatalf("Init() error = %v, want ErrInvalidLevel", err)
	}
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.log")
	w, err := logging.NewRotatingWriter(path, logging.RotationConfig{MaxSize: 10, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	for _, line := range []string{"first-ok\n", "second-ok\n", "third-ok\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	read := func(p string) string {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		return string(data)
	}
	if got := read(path); got != "third-ok\n" {
		t.Errorf("current = %q", got)
	}
	if got := read(path + ".1"); got != "second-ok\n" {
		t.Errorf("backup 1 = %q", got)
	}
	if got := read(path + ".2"); got != "first-ok\n" {
		t.Errorf("backup 2 = %q", got)
	}
}
