package cache

import (
	"errors"
	"fmt"
	"os"
)

// ValidationResult is the outcome of validating one root.
type ValidationResult struct {
	// Entry is the cached entry, nil when none is stored.
	Entry *Entry

	// Stale is true when the root must be searched again.
	Stale bool

	// Changed lists the paths whose modification time no longer matches.
	Changed []string
}

// Validator validates cached entries against the filesystem.
type Validator struct {
	store *Store
}

// NewValidator creates a new cache validator.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// Validate checks a root's cached entry. The root directory mtime catches
// added or removed installations; each configuration file's mtime catches
// edited sites. Missing files are reported as changed.
func (v *Validator) Validate(root string) (*ValidationResult, error) {
	result := &ValidationResult{}

	cached, err := v.store.Get(root, KindInstallations)
	if errors.Is(err, ErrNotFound) {
		result.Stale = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Entry = cached

	if cached.Version != CacheVersion {
		result.Stale = true
		return result, nil
	}

	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if rootInfo.ModTime().UnixNano() != cached.Mtime {
		result.Stale = true
		result.Changed = append(result.Changed, root)
	}

	for p, mtime := range cached.Stamps {
		info, err := os.Stat(p)
		if err != nil || info.ModTime().UnixNano() != mtime {
			result.Stale = true
			result.Changed = append(result.Changed, p)
		}
	}
	return result, nil
}
