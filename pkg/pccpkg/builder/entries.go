package builder

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
)

// FileList is the ordered set of entries a builder will archive. Entries
// are keyed by a hash of the (source, destination) pair; adding the same
// pair again replaces the entry in place.
type FileList struct {
	index   map[string]int
	entries []archive.Entry
}

// NewFileList creates an empty list.
func NewFileList() *FileList {
	return &FileList{index: make(map[string]int)}
}

func entryKey(source, dest string) string {
	sum := sha256.Sum256([]byte(source + "_" + dest))
	return hex.EncodeToString(sum[:])
}

// Add registers source to be stored at dest.
func (l *FileList) Add(source, dest string) {
	e := archive.Entry{Source: source, Destination: dest}
	key := entryKey(source, dest)
	if i, ok := l.index[key]; ok {
		l.entries[i] = e
		return
	}
	l.index[key] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the entries in registration order.
func (l *FileList) Entries() []archive.Entry {
	out := make([]archive.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *FileList) Len() int {
	return len(l.entries)
}

// Reset drops every entry.
func (l *FileList) Reset() {
	l.index = make(map[string]int)
	l.entries = nil
}
