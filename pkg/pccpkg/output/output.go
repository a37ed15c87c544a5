// Package output provides formatters for displaying pccpkg reports in
// various output formats (pretty, plain, json, yaml, toml, etc.).
//
// Formatters register themselves in a registry at init time and are
// selected by name at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, &output.Result{Builds: reports}); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// Result is the data handed to a formatter. Usually only one field is set.
type Result struct {
	Builds        []types.BuildReport       `json:"builds,omitempty" yaml:"builds,omitempty"`
	Extensions    *types.ExtensionReport    `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Installations *types.InstallationReport `json:"installations,omitempty" yaml:"installations,omitempty"`
}

// sections returns the populated parts of the result keyed by name.
func (r *Result) sections() map[string]any {
	out := make(map[string]any)
	if len(r.Builds) > 0 {
		out["builds"] = r.Builds
	}
	if r.Extensions != nil {
		out["extensions"] = r.Extensions
	}
	if r.Installations != nil {
		out["installations"] = r.Installations
	}
	return out
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
