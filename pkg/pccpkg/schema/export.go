package schema

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// Output file names, placed next to the install script.
const (
	UninstallFile  = "uninstall.mysql.utf8.sql"
	SampleDataFile = "sampledata.mysql.utf8.sql"
)

// Separator joins statements inside a generated script.
const Separator = "\n\t\t\t\t\n"

// ErrScriptNotFound is returned when a referenced script is missing.
var ErrScriptNotFound = errors.New("SQL script not found")

// ErrCreateNotFound is returned when a table has no CREATE TABLE statement
// of its own in the install script.
var ErrCreateNotFound = errors.New("no CREATE TABLE statement found")

// Statements are the drop, create and insert statements for a table list.
type Statements struct {
	Drop   []string
	Create []string
	Insert []string
}

// Request is what a DataExporter receives.
type Request struct {
	// Tables are the table names found in the install script.
	Tables []string

	// ScriptPath and Script are the install script it was read from.
	ScriptPath string
	Script     string
}

// DataExporter produces statements for a list of tables, usually from a
// live database.
type DataExporter interface {
	Export(ctx context.Context, req Request) (*Statements, error)
}

// File is one generated script.
type File struct {
	Path    string
	Content string
}

// Bundle is the set of scripts generated from one install script.
type Bundle struct {
	InstallFile string
	Tables      []string
	Drop        File
	Create      File
	Insert      File
}

// NewBundle joins st into the three scripts that sit beside installFile.
func NewBundle(installFile string, tables []string, st *Statements) *Bundle {
	if st == nil {
		st = &Statements{}
	}
	dir := path.Dir(toSlash(installFile))
	return &Bundle{
		InstallFile: installFile,
		Tables:      tables,
		Drop:        File{Path: path.Join(dir, UninstallFile), Content: strings.Join(st.Drop, Separator)},
		Create:      File{Path: installFile, Content: strings.Join(st.Create, Separator)},
		Insert:      File{Path: path.Join(dir, SampleDataFile), Content: strings.Join(st.Insert, Separator)},
	}
}

// Files returns drop, create and insert scripts in that order.
func (b *Bundle) Files() []File {
	return []File{b.Drop, b.Create, b.Insert}
}

// Reader is the file access the exporter needs.
type Reader interface {
	FileExists(path string) bool
	ReadFile(path string) ([]byte, error)
}

// Exporter reads scripts and asks a DataExporter for statements.
type Exporter struct {
	files Reader
	data  DataExporter
}

// NewExporter creates an exporter. data may be nil, in which case
// ScriptExporter is used.
func NewExporter(files Reader, data DataExporter) *Exporter {
	if data == nil {
		data = ScriptExporter{}
	}
	return &Exporter{files: files, data: data}
}

func (e *Exporter) read(file string) (string, error) {
	if !e.files.FileExists(file) {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, file)
	}
	data, err := e.files.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Install builds the bundle for an install script. A script marked with the
// no-data comment returns (nil, nil).
func (e *Exporter) Install(ctx context.Context, file string) (*Bundle, error) {
	sql, err := e.read(file)
	if err != nil {
		return nil, err
	}
	if IsNoData(sql) {
		return nil, nil
	}
	tables, err := ParseCreateTables(file, sql)
	if err != nil {
		return nil, err
	}
	st, err := e.data.Export(ctx, Request{Tables: tables, ScriptPath: file, Script: sql})
	if err != nil {
		return nil, fmt.Errorf("exporting tables %s: %w", strings.Join(tables, ", "), err)
	}
	return NewBundle(file, tables, st), nil
}

// Uninstall returns the tables an uninstall script drops. No DROP statements
// is not an error.
func (e *Exporter) Uninstall(file string) ([]string, error) {
	sql, err := e.read(file)
	if err != nil {
		return nil, err
	}
	if IsNoData(sql) {
		return nil, nil
	}
	return DropTables(sql), nil
}

// ScriptExporter is a DataExporter that needs no database. It drops every
// table, copies each CREATE TABLE statement from the install script and
// keeps the script's own INSERT statements as sample data.
type ScriptExporter struct{}

// Export implements DataExporter.
func (ScriptExporter) Export(ctx context.Context, req Request) (*Statements, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(req.Tables))
	for _, t := range req.Tables {
		wanted[t] = true
	}

	st := &Statements{}
	for _, t := range req.Tables {
		st.Drop = append(st.Drop, fmt.Sprintf("DROP TABLE IF EXISTS `%s`;", t))
	}
	created := make(map[string]bool, len(req.Tables))
	for _, stmt := range SplitStatements(req.Script) {
		if names := CreateTables(stmt); len(names) == 1 && wanted[names[0]] {
			st.Create = append(st.Create, stmt+";")
			created[names[0]] = true
			continue
		}
		if m := insertInto.FindStringSubmatch(stmt); m != nil && wanted[m[1]] {
			st.Insert = append(st.Insert, stmt+";")
		}
	}
	for _, t := range req.Tables {
		if !created[t] {
			return nil, fmt.Errorf("%w for table '%s' in %s", ErrCreateNotFound, t, path.Base(toSlash(req.ScriptPath)))
		}
	}
	return st, nil
}

// WriteFiles writes generated scripts to fsys. Empty content produces an
// empty file.
func WriteFiles(fsys afero.Fs, files []File) error {
	for _, f := range files {
		if err := fsys.MkdirAll(path.Dir(toSlash(f.Path)), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		if err := afero.WriteFile(fsys, f.Path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("cannot write SQL data to file %s: %w", f.Path, err)
		}
	}
	return nil
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
