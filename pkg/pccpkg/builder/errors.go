package builder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingFromInstallation marks a sub-package whose extension is not
	// installed in the source installation.
	ErrMissingFromInstallation = errors.New("extension is missing from the installation")

	// ErrEmptyName is returned when no extension name is left after the
	// prefix is stripped from the manifest file name.
	ErrEmptyName = errors.New("extension name cannot be interpreted from the file name")

	// ErrSectionMissing is wrapped by SectionError for an absent section.
	ErrSectionMissing = errors.New("section is missing")

	// ErrNotImported is returned by operations that need a successful Import.
	ErrNotImported = errors.New("package has not been imported")
)

// ValidationError lists required manifest elements that are missing or
// empty, in declaration order.
type ValidationError struct {
	Missing []string
	Package bool
}

func (e *ValidationError) Error() string {
	kind := "required element(s) missing: "
	if e.Package {
		kind = "required package element(s) missing: "
	}
	return kind + strings.Join(e.Missing, ", ")
}

// SourceNotFoundError reports a declared file, folder or SQL script that is
// absent from the installation.
type SourceNotFoundError struct {
	// Kind is what was looked for: filename, folder, media, language,
	// scriptfile, sql or manifest.
	Kind string
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

// UnsupportedTypeError reports an extension type without a builder.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("package type '%s' not currently supported", e.Type)
}

// ArchiveError wraps a failure writing the output archive.
type ArchiveError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// SectionError is the failure of one manifest section.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section '%s': %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}
