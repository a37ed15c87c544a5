package installation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ConfigFile is the site configuration file at the root of an installation.
const ConfigFile = "configuration.php"

// RequiredKeys must all be assigned for a configuration to describe an
// installation.
var RequiredKeys = []string{"dbtype", "host", "user", "password", "db", "dbprefix"}

// assignment matches one class property assignment:
//
//	public $sitename = 'Pro Computer';
//	public $caching = 0;
var assignment = regexp.MustCompile(`(?m)(?:^|[\s;{])(?:public|var)[ \t]+\$([A-Za-z_][A-Za-z0-9_]*)[ \t]*=[ \t]*` +
	`(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)"|([^;\r\n]*?))[ \t]*;`)

// Config holds the scalar properties of a site configuration. Values are
// kept as text; arrays and expressions are read as written.
type Config map[string]string

// ParseConfig extracts property assignments from configuration.php text
// without executing it.
func ParseConfig(text string) Config {
	cfg := make(Config)
	for _, m := range assignment.FindAllStringSubmatch(text, -1) {
		key := m[1]
		switch {
		case m[2] != "" || strings.Contains(m[0], "''"):
			cfg[key] = unescape(m[2], '\'')
		case m[3] != "" || strings.Contains(m[0], `""`):
			cfg[key] = unescape(m[3], '"')
		default:
			cfg[key] = strings.TrimSpace(m[4])
		}
	}
	return cfg
}

func unescape(s string, quote byte) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == quote || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Get returns a property value.
func (c Config) Get(key string) string {
	return c[key]
}

// Has reports whether a property is assigned.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Bool reads a property as a boolean ("true", "1").
func (c Config) Bool(key string) bool {
	return cast.ToBool(c[key])
}

// Int reads a property as an integer, 0 when it is not numeric.
func (c Config) Int(key string) int {
	return cast.ToInt(c[key])
}

// Missing returns the required keys that are not assigned.
func (c Config) Missing() []string {
	var out []string
	for _, k := range RequiredKeys {
		if !c.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Valid reports whether every required key is assigned.
func (c Config) Valid() bool {
	return len(c.Missing()) == 0
}

// Keys returns the assigned property names sorted.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigError reports a configuration file that does not describe an
// installation.
type ConfigError struct {
	File    string
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %s is missing %s", e.File, strings.Join(e.Missing, ", "))
}
