package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches an ID.
var ErrNotFound = errors.New("history record not found")

// ErrAmbiguous is returned when an ID prefix matches several records.
var ErrAmbiguous = errors.New("history record ID is ambiguous")

// History stores build records as JSON files in one directory.
type History struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// DefaultDir returns the default history directory.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "pccpkg", "history")
}

// New creates a History rooted at dir. The directory is created on the
// first Add.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir, now: time.Now}, nil
}

// Dir returns the history directory.
func (h *History) Dir() string {
	return h.dir
}

// Add assigns an ID and timestamp to rec and persists it.
func (h *History) Add(rec Record) (*Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec.ID = uuid.NewString()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = h.now().UTC()
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := h.write(&rec); err != nil {
		return nil, fmt.Errorf("failed to write history record: %w", err)
	}
	return &rec, nil
}

func (h *History) write(rec *Record) error {
	path := filepath.Join(h.dir, filename(rec))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// Write atomically using a temp file and rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// filename sorts records by time: 20261017T101500-<id>.json
func filename(rec *Record) string {
	return rec.Timestamp.UTC().Format("20060102T150405") + "-" + rec.ID + ".json"
}

// List returns records newest first. A limit of 0 or less returns all.
func (h *History) List(limit int) ([]Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.readAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get returns the record whose ID equals or starts with id.
func (h *History) Get(id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("record ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.readAll()
	if err != nil {
		return nil, err
	}

	var match *Record
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
		if strings.HasPrefix(records[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes records older than retentionDays and returns how many
// were removed. Unreadable files are left alone.
func (h *History) Cleanup(retentionDays int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().AddDate(0, 0, -retentionDays)
	records, err := h.readAll()
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range records {
		if !records[i].Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(h.dir, filename(&records[i]))); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

func (h *History) readAll() ([]Record, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	records := []Record{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(h.dir, f.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			// Skip files that can't be parsed
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// Digest returns the hex SHA-256 and size of the content read from r.
func Digest(r io.Reader) (string, int64, error) {
	sum := sha256.New()
	n, err := io.Copy(sum, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(sum.Sum(nil)), n, nil
}
