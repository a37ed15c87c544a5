// Package fileaccess provides the file access backend shared by every
// processor of one build. It wraps an afero filesystem so the same code runs
// against the local disk, a rooted sub-tree, or an in-memory tree in tests.
package fileaccess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"
)

// Provider is the read side used by section processors and the schema
// exporter.
type Provider interface {
	FileExists(path string) bool
	IsDir(path string) bool
	IsFile(path string) bool
	Realpath(path string) (string, bool)
	ReadFile(path string) ([]byte, error)
	TempDir(prefix string) (string, error)
	Fs() afero.Fs
}

// Reopener is implemented by backends holding long-lived sessions that must
// be refreshed during long builds.
type Reopener interface {
	Reopen() error
}

// FS is the afero-backed Provider.
type FS struct {
	fs    afero.Fs
	local bool
}

var _ Provider = (*FS)(nil)

// New wraps an arbitrary afero filesystem.
func New(fsys afero.Fs) *FS {
	_, local := fsys.(*afero.OsFs)
	return &FS{fs: fsys, local: local}
}

// NewOS returns a provider over the local disk.
func NewOS() *FS {
	return New(afero.NewOsFs())
}

// NewMem returns a provider over an empty in-memory filesystem.
func NewMem() *FS {
	return New(afero.NewMemMapFs())
}

// Fs returns the underlying afero filesystem.
func (f *FS) Fs() afero.Fs {
	return f.fs
}

// FileExists reports whether path exists as a file or directory.
func (f *FS) FileExists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// IsDir reports whether path is an existing directory.
func (f *FS) IsDir(path string) bool {
	ok, err := afero.IsDir(f.fs, path)
	return err == nil && ok
}

// IsFile reports whether path is an existing regular file.
func (f *FS) IsFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Realpath returns the canonical absolute path of an existing entry. On the
// local disk symlinks are resolved.
func (f *FS) Realpath(path string) (string, bool) {
	if !f.FileExists(path) {
		return "", false
	}
	if !f.local {
		return filepath.Clean(path), true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// ReadFile returns the contents of path.
func (f *FS) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes data to path, creating parent directories.
func (f *FS) WriteFile(path string, data []byte) error {
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return afero.WriteFile(f.fs, path, data, 0o644)
}

// Copy copies a file or directory tree from one filesystem to another.
func Copy(from, to afero.Fs, src, dst string) error {
	info, err := from.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(from, to, src, dst)
	}
	return afero.Walk(from, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return to.MkdirAll(target, 0o755)
		}
		return copyFile(from, to, path, target)
	})
}

func copyFile(from, to afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(from, src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := to.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dst, err)
	}
	return afero.WriteFile(to, dst, data, 0o644)
}

// TempDir creates a fresh temporary directory on the backing filesystem.
func (f *FS) TempDir(prefix string) (string, error) {
	return afero.TempDir(f.fs, "", prefix)
}

// Reconnecting decorates a Provider with a session that can be refreshed.
// The refresh hook is called by Reopen; on the local disk it is usually a
// no-op, for remote backends it re-establishes the connection.
type Reconnecting struct {
	Provider
	refresh func() error
	reopens atomic.Int64
}

var _ Reopener = (*Reconnecting)(nil)

// NewReconnecting wraps p. A nil refresh hook only counts reopens.
func NewReconnecting(p Provider, refresh func() error) *Reconnecting {
	return &Reconnecting{Provider: p, refresh: refresh}
}

// Reopen refreshes the session.
func (r *Reconnecting) Reopen() error {
	r.reopens.Add(1)
	if r.refresh == nil {
		return nil
	}
	if err := r.refresh(); err != nil {
		return fmt.Errorf("reopening file backend: %w", err)
	}
	return nil
}

// Reopens returns how many times the session was refreshed.
func (r *Reconnecting) Reopens() int64 {
	return r.reopens.Load()
}

// IsNotExist reports whether err says a path is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist)
}
