// Package config provides configuration management for pccpkg.
package config

import "time"

// Default configuration values.
const (
	// DefaultRetentionDays is how long build history is kept.
	DefaultRetentionDays = 30

	// DefaultReconnectInterval is the slow-section threshold after which
	// the file source is reopened.
	DefaultReconnectInterval = 10 * time.Second

	// DefaultDebounce is the quiet period before a watched build reruns.
	DefaultDebounce = 500 * time.Millisecond

	// DefaultCompression is the ZIP method for archive members.
	DefaultCompression = "deflate"

	// DefaultFormat is the report format when none is given.
	DefaultFormat = "pretty"
)

// DefaultExclusions are glob patterns never added to an archive.
var DefaultExclusions = []string{
	".git",
	".svn",
	".DS_Store",
}
