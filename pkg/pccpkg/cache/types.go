package cache

import (
	"bytes"
	"encoding/gob"
)

// CacheVersion is incremented when the cache format changes. Entries of
// another version are treated as missing.
const CacheVersion = 1

// KeySeparator separates the root from the entry kind in cache keys.
const KeySeparator = '\x00'

// KindInstallations is the entry holding the web roots found below a root.
const KindInstallations = "installations"

// Entry is the cached discovery result for one root directory.
type Entry struct {
	Version int

	// Mtime is the root directory modification time as UnixNano.
	Mtime int64

	// WebRoots are the installation roots found below the root.
	WebRoots []string

	// Stamps maps each configuration file to its modification time.
	Stamps map[string]int64

	// Stored is when the entry was written, as UnixNano.
	Stored int64
}

// Encode serializes the entry to bytes using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key from root and entry kind.
// Format: <root>\x00<kind>
func MakeKey(root, kind string) []byte {
	return []byte(root + string(KeySeparator) + kind)
}

// ParseKey extracts root and kind from a cache key.
func ParseKey(key []byte) (root, kind string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix for all keys under a root.
func MakeKeyPrefix(root string) []byte {
	return []byte(root + string(KeySeparator))
}
