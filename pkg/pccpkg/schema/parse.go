// Package schema extracts table definitions from an extension's install and
// uninstall SQL scripts and assembles the drop, create and sample-data
// scripts shipped inside a package.
package schema

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// NoDataMarker is the comment that marks a script as intentionally empty.
const NoDataMarker = "__no_data__"

var (
	noDataPattern = regexp.MustCompile(`(?i)^\s*#[ \t]*` + NoDataMarker)

	createQuoted = regexp.MustCompile("(?i)CREATE\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?`([^`]+)`")
	createBare   = regexp.MustCompile("(?i)CREATE\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?([^\\s`(;]+)")
	dropQuoted   = regexp.MustCompile("(?i)DROP\\s+TABLE\\s+(?:IF\\s+EXISTS\\s+)?`([^`]+)`")
	dropBare     = regexp.MustCompile("(?i)DROP\\s+TABLE\\s+(?:IF\\s+EXISTS\\s+)?([^\\s`(;,]+)")
	insertInto   = regexp.MustCompile("(?i)^\\s*INSERT\\s+(?:IGNORE\\s+)?INTO\\s+`?([^\\s`(]+)`?")
)

// ErrEmptyScript is returned for a script with no content.
var ErrEmptyScript = errors.New("SQL script is empty")

// ParseError reports a script without the statements it must contain.
type ParseError struct {
	File      string
	Statement string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no %s TABLE statements found in file: %s", e.Statement, e.File)
}

// IsNoData reports whether the first non-blank line of sql is the
// "# __no_data__" marker, in any case.
func IsNoData(sql string) bool {
	return noDataPattern.MatchString(sql)
}

// CreateTables returns the distinct table names of CREATE TABLE statements
// in order of first appearance. Backtick-quoted names are authoritative;
// bare names are read only when no quoted name exists.
func CreateTables(sql string) []string {
	return tableNames(sql, createQuoted, createBare)
}

// DropTables returns the distinct table names of DROP TABLE statements.
func DropTables(sql string) []string {
	return tableNames(sql, dropQuoted, dropBare)
}

func tableNames(sql string, quoted, bare *regexp.Regexp) []string {
	matches := quoted.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		matches = bare.FindAllStringSubmatch(sql, -1)
	}
	names := lo.FilterMap(matches, func(m []string, _ int) (string, bool) {
		name := strings.TrimSpace(m[1])
		return name, name != ""
	})
	if len(names) == 0 {
		return nil
	}
	return lo.Uniq(names)
}

// ParseCreateTables reads the table names of an install script. A script
// without CREATE TABLE statements is a ParseError. Callers check IsNoData
// first.
func ParseCreateTables(file, sql string) ([]string, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyScript, filepath.Base(file))
	}
	tables := CreateTables(sql)
	if len(tables) == 0 {
		return nil, &ParseError{File: file, Statement: "CREATE"}
	}
	return tables, nil
}

// SplitStatements splits a script into statements on semicolons outside
// quotes and comments. Comments are dropped and statements trimmed. A '#'
// starts a comment only at the beginning of a line and never when followed
// by "__", so unquoted "#__" table prefixes survive even on a line of their
// own.
func SplitStatements(sql string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			cur.WriteByte(c)
			switch {
			case c == '\\' && quote != '`' && i+1 < len(sql):
				i++
				cur.WriteByte(sql[i])
			case c == quote:
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case (c == '#' && lineStart(sql, i) && !strings.HasPrefix(sql[i:], "#__")) || (c == '-' && strings.HasPrefix(sql[i:], "-- ")):
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

func lineStart(sql string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch sql[j] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}
