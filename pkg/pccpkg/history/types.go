// Package history records the archives pccpkg has produced.
package history

import "time"

// Record is one successful build.
type Record struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Extension string        `json:"extension" yaml:"extension"`
	Type      string        `json:"type" yaml:"type"`
	WebRoot   string        `json:"web_root,omitempty" yaml:"web_root,omitempty"`
	Archive   string        `json:"archive" yaml:"archive"`
	Files     int           `json:"files" yaml:"files"`
	Size      int64         `json:"size" yaml:"size"`
	SHA256    string        `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ShortID returns the first eight characters of the record ID.
func (r Record) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}
