// Package types provides the report types pccpkg prints and records,
// along with helpers for parsing and formatting sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
)

// FileEntry is one member of a built archive.
type FileEntry struct {
	Source      string `json:"source" yaml:"source" toml:"source"`
	Destination string `json:"destination" yaml:"destination" toml:"destination"`
}

// Message is a diagnostic produced while building.
type Message struct {
	Severity string `json:"severity" yaml:"severity" toml:"severity"`
	Text     string `json:"text" yaml:"text" toml:"text"`
}

// BuildReport describes one build.
type BuildReport struct {
	// ID is the history record ID, empty when history is disabled.
	ID string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`

	Extension string `json:"extension" yaml:"extension" toml:"extension"`
	Type      string `json:"type" yaml:"type" toml:"type"`
	Manifest  string `json:"manifest" yaml:"manifest" toml:"manifest"`

	// Output is the archive path, or the directory for copy builds.
	Output string `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`

	Success  bool          `json:"success" yaml:"success" toml:"success"`
	Size     int64         `json:"size" yaml:"size" toml:"size"`
	SHA256   string        `json:"sha256,omitempty" yaml:"sha256,omitempty" toml:"sha256,omitempty"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed" toml:"elapsed"`
	Files    []FileEntry   `json:"files" yaml:"files" toml:"files"`
	Messages []Message     `json:"messages,omitempty" yaml:"messages,omitempty" toml:"messages,omitempty"`

	// Packages are the child builds of a package.
	Packages []BuildReport `json:"packages,omitempty" yaml:"packages,omitempty" toml:"packages,omitempty"`
}

// HumanSize returns the archive size formatted with IEC units.
func (r *BuildReport) HumanSize() string {
	return FormatSize(r.Size)
}

// Count returns how many messages have the given severity.
func (r *BuildReport) Count(severity string) int {
	n := 0
	for _, m := range r.Messages {
		if m.Severity == severity {
			n++
		}
	}
	return n
}

// ExtensionInfo is an installed extension.
type ExtensionInfo struct {
	Type     string `json:"type" yaml:"type" toml:"type"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	Client   string `json:"client" yaml:"client" toml:"client"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Manifest string `json:"manifest" yaml:"manifest" toml:"manifest"`

	// Languages maps a location (site, admin or a folder attribute) to
	// the language files declared there. Filled only on request.
	Languages map[string][]string `json:"languages,omitempty" yaml:"languages,omitempty" toml:"languages,omitempty"`
}

// ExtensionReport lists the extensions of one installation.
type ExtensionReport struct {
	Installation string          `json:"installation" yaml:"installation" toml:"installation"`
	WebRoot      string          `json:"web_root" yaml:"web_root" toml:"web_root"`
	Extensions   []ExtensionInfo `json:"extensions" yaml:"extensions" toml:"extensions"`
}

// InstallationInfo is one discovered installation.
type InstallationInfo struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Element string `json:"element" yaml:"element" toml:"element"`
	WebRoot string `json:"web_root" yaml:"web_root" toml:"web_root"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
}

// InstallationReport is the result of a discovery run.
type InstallationReport struct {
	Roots         []string           `json:"roots" yaml:"roots" toml:"roots"`
	Installations []InstallationInfo `json:"installations" yaml:"installations" toml:"installations"`
	Folders       int64              `json:"folders" yaml:"folders" toml:"folders"`
	CachedRoots   int                `json:"cached_roots" yaml:"cached_roots" toml:"cached_roots"`
	Elapsed       time.Duration      `json:"elapsed" yaml:"elapsed" toml:"elapsed"`
	Errors        []string           `json:"errors,omitempty" yaml:"errors,omitempty" toml:"errors,omitempty"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMG]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a size such as "512", "100K", "50MB" or "1.5GiB" into
// bytes. Units are binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatAge returns a relative time like "3 hours ago".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
