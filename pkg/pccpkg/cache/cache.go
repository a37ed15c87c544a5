// Package cache persists installation discovery results in a Badger store
// so repeated runs skip walking unchanged web server roots.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Cache provides discovery caching for pccpkg.
type Cache struct {
	path      string
	store     *Store
	validator *Validator
}

// Stats describes the cache contents.
type Stats struct {
	Path     string   `json:"path" yaml:"path"`
	Roots    []string `json:"roots" yaml:"roots"`
	LSMSize  int64    `json:"lsm_size" yaml:"lsm_size"`
	VLogSize int64    `json:"vlog_size" yaml:"vlog_size"`
}

// DefaultPath returns the default cache directory.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "pccpkg", "discovery")
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	return &Cache{
		path:      path,
		store:     store,
		validator: NewValidator(store),
	}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.path
}

// WebRoots returns the installation roots cached for root. ok is false
// when nothing is cached or the entry is stale.
func (c *Cache) WebRoots(root string) (webRoots []string, ok bool, err error) {
	result, err := c.validator.Validate(root)
	if err != nil {
		return nil, false, err
	}
	if result.Stale {
		return nil, false, nil
	}
	return result.Entry.WebRoots, true, nil
}

// Update records the installation roots found below root. The root and
// each web root's configuration file are stamped with their mtimes.
func (c *Cache) Update(root string, webRoots []string, configFile string) error {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat root %s: %w", root, err)
	}

	entry := &Entry{
		Version:  CacheVersion,
		Mtime:    rootInfo.ModTime().UnixNano(),
		WebRoots: webRoots,
		Stamps:   make(map[string]int64, len(webRoots)),
		Stored:   time.Now().UnixNano(),
	}
	for _, wr := range webRoots {
		p := filepath.Join(wr, configFile)
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		entry.Stamps[p] = info.ModTime().UnixNano()
	}
	return c.store.Put(root, KindInstallations, entry)
}

// Clear removes all cached entries for a root.
func (c *Cache) Clear(root string) error {
	return c.store.DeletePrefix(root)
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() error {
	return c.store.DeletePrefix("")
}

// Stats returns the cached roots and store size.
func (c *Cache) Stats() (Stats, error) {
	roots, err := c.store.Roots()
	if err != nil {
		return Stats{}, err
	}
	lsm, vlog := c.store.Size()
	return Stats{Path: c.path, Roots: roots, LSMSize: lsm, VLogSize: vlog}, nil
}
