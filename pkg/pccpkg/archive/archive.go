// Package archive writes package zip files from a list of source to
// destination mappings. Output is deterministic: entries are sorted by
// destination and carry a fixed modification time.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// Compression methods accepted by WithMethod.
const (
	Store   = zip.Store
	Deflate = zip.Deflate
)

// DefaultModTime is the timestamp stamped on every entry.
var DefaultModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrClosed is returned when adding to a closed writer.
	ErrClosed = errors.New("archive is closed")

	// ErrInvalidDestination is returned for an empty or escaping destination.
	ErrInvalidDestination = errors.New("invalid archive destination")
)

// Entry maps a source path to its location inside the archive.
type Entry struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

// Stats summarise a written archive.
type Stats struct {
	Files    int   `json:"files" yaml:"files"`
	Bytes    int64 `json:"bytes" yaml:"bytes"`
	Excluded int   `json:"excluded" yaml:"excluded"`
}

type member struct {
	source string
}

// Writer collects entries and writes them on Close.
type Writer struct {
	fs       afero.Fs
	srcFs    afero.Fs
	path     string
	file     afero.File
	members  map[string]member
	patterns []string
	exclude  []glob.Glob
	modTime  time.Time
	method   uint16
	level    int
	onWrite  func(dest string, size int64)
	stats    Stats
	closed   bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithExclude skips destinations matching any of the glob patterns.
func WithExclude(patterns ...string) Option {
	return func(w *Writer) {
		w.patterns = append(w.patterns, patterns...)
	}
}

// WithModTime sets the timestamp of every entry.
func WithModTime(t time.Time) Option {
	return func(w *Writer) {
		w.modTime = t
	}
}

// WithMethod selects Store or Deflate.
func WithMethod(method uint16) Option {
	return func(w *Writer) {
		w.method = method
	}
}

// WithLevel sets the deflate compression level.
func WithLevel(level int) Option {
	return func(w *Writer) {
		w.level = level
	}
}

// WithSourceFs reads sources from fsys instead of the output filesystem.
func WithSourceFs(fsys afero.Fs) Option {
	return func(w *Writer) {
		w.srcFs = fsys
	}
}

// WithProgress is called after each entry is written.
func WithProgress(fn func(dest string, size int64)) Option {
	return func(w *Writer) {
		w.onWrite = fn
	}
}

// ParseMethod maps a configuration name to a compression method.
func ParseMethod(name string) (uint16, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "deflate":
		return Deflate, nil
	case "store", "none":
		return Store, nil
	}
	return 0, fmt.Errorf("unknown compression method %q: expecting 'deflate' or 'store'", name)
}

// Open creates the archive file at p, truncating any existing file.
func Open(fsys afero.Fs, p string, opts ...Option) (*Writer, error) {
	if p == "" {
		return nil, errors.New("archive path is empty")
	}
	w := &Writer{
		fs:      fsys,
		srcFs:   fsys,
		path:    p,
		members: make(map[string]member),
		modTime: DefaultModTime,
		method:  Deflate,
		level:   flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, pattern := range w.patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		w.exclude = append(w.exclude, g)
	}

	if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	f, err := fsys.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating archive %s: %w", p, err)
	}
	w.file = f
	return w, nil
}

// Path returns the archive file path.
func (w *Writer) Path() string {
	return w.path
}

// Len returns the number of entries collected so far.
func (w *Writer) Len() int {
	return len(w.members)
}

// Stats returns what was written. It is complete after Close.
func (w *Writer) Stats() Stats {
	return w.stats
}

// AddFile adds one source file. A later entry for the same destination
// replaces the earlier one.
func (w *Writer) AddFile(source, dest string) error {
	if w.closed {
		return ErrClosed
	}
	name, err := normalize(dest)
	if err != nil {
		return err
	}
	if w.excluded(name) {
		return nil
	}
	w.members[name] = member{source: source}
	return nil
}


// AddFromFileList adds every entry. Directory sources are added
// recursively below their destination.
func (w *Writer) AddFromFileList(entries []Entry) error {
	for _, e := range entries {
		info, err := w.srcFs.Stat(e.Source)
		if err != nil {
			return fmt.Errorf("adding %s: %w", e.Source, err)
		}
		if !info.IsDir() {
			if err := w.AddFile(e.Source, e.Destination); err != nil {
				return err
			}
			continue
		}
		if err := w.addTree(e.Source, e.Destination); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) addTree(root, dest string) error {
	return afero.Walk(w.srcFs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return w.AddFile(p, path.Join(filepath.ToSlash(dest), filepath.ToSlash(rel)))
	})
}

func (w *Writer) excluded(name string) bool {
	for _, g := range w.exclude {
		if g.Match(name) || g.Match(path.Base(name)) {
			w.stats.Excluded++
			return true
		}
	}
	return false
}

// Close writes every entry in destination order and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.write()
	if cerr := w.file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing archive %s: %w", w.path, cerr)
	}
	return err
}

// Abort closes the writer and removes the partial archive.
func (w *Writer) Abort() error {
	if !w.closed {
		w.closed = true
		_ = w.file.Close()
	}
	if err := w.fs.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (w *Writer) write() error {
	zw := zip.NewWriter(w.file)
	level := w.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	names := make([]string, 0, len(w.members))
	for name := range w.members {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n, err := w.writeMember(zw, name, w.members[name])
		if err != nil {
			_ = zw.Close()
			return err
		}
		w.stats.Files++
		w.stats.Bytes += n
		if w.onWrite != nil {
			w.onWrite(name, n)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive %s: %w", w.path, err)
	}
	return nil
}

func (w *Writer) writeMember(zw *zip.Writer, name string, m member) (int64, error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   w.method,
		Modified: w.modTime,
	}
	header.SetMode(0o644)

	out, err := zw.CreateHeader(header)
	if err != nil {
		return 0, fmt.Errorf("writing header for %s: %w", name, err)
	}
	in, err := w.srcFs.Open(m.source)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", m.source, err)
	}
	defer in.Close()
	n, err := io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("writing %s from %s: %w", name, m.source, err)
	}
	return n, nil
}

func normalize(dest string) (string, error) {
	name := path.Clean(strings.ReplaceAll(dest, "\\", "/"))
	name = strings.TrimLeft(name, "/")
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDestination, dest)
	}
	return name, nil
}
