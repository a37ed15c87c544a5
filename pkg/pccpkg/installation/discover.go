package installation

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
)

// DefaultMaxDepth bounds how far below each root folder a configuration
// file is searched for.
const DefaultMaxDepth = 3

// ErrNoRoots is returned when discovery is started without a web root.
var ErrNoRoots = errors.New("missing web root parameter")

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	// Roots are the directories whose sub-directories hold installations.
	// Each entry may itself be a semicolon or newline separated list.
	Roots []string

	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int

	// Files reads configuration and version files. Defaults to the local
	// disk.
	Files fileaccess.Provider

	// OnFolder is called for each root folder before it is searched.
	OnFolder func(path string)

	// Cache, when set, remembers the web roots found below each root and
	// skips the walk while the root is unchanged.
	Cache RootCache
}

// RootCache stores the web roots found below a discovery root.
type RootCache interface {
	WebRoots(root string) (webRoots []string, ok bool, err error)
	Update(root string, webRoots []string, configFile string) error
}

// WalkError is a directory that could not be read during discovery.
type WalkError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// DiscoverResult is the outcome of a discovery run.
type DiscoverResult struct {
	Installations []*Installation `json:"installations" yaml:"installations"`
	Folders       int64           `json:"folders" yaml:"folders"`
	CachedRoots   int             `json:"cached_roots" yaml:"cached_roots"`
	Errors        []WalkError     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Find returns the installation with the given element or name.
func (r *DiscoverResult) Find(idOrName string) (*Installation, bool) {
	for _, inst := range r.Installations {
		if inst.Element == idOrName || inst.Name == idOrName {
			return inst, true
		}
	}
	return nil, false
}

type discoverer struct {
	opts    DiscoverOptions
	log     *logging.Logger
	visited map[string]bool
	folders atomic.Int64

	errors   []WalkError
	errorsMu sync.Mutex
}

// Discover finds installations below the immediate sub-directories of
// each root. A folder is an installation when it, or a directory at most
// MaxDepth levels below it, holds a configuration.php assigning every
// required key. Dot-directories are skipped and a canonical path is never
// searched twice. Installations with the same name are kept once.
func Discover(ctx context.Context, opts DiscoverOptions) (*DiscoverResult, error) {
	roots := SplitRoots(opts.Roots...)
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Files == nil {
		opts.Files = fileaccess.NewOS()
	}

	d := &discoverer{
		opts:    opts,
		log:     logging.Get("installation"),
		visited: make(map[string]bool),
	}

	result := &DiscoverResult{}
	seen := make(map[string]bool)
	add := func(inst *Installation) {
		if inst == nil || seen[inst.Name] {
			return
		}
		seen[inst.Name] = true
		result.Installations = append(result.Installations, inst)
	}

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if found, ok := d.cached(root); ok {
			result.CachedRoots++
			for _, inst := range found {
				add(inst)
			}
			continue
		}

		found, err := d.searchRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		webRoots := make([]string, 0, len(found))
		for _, inst := range found {
			webRoots = append(webRoots, inst.WebRoot)
			add(inst)
		}
		if d.opts.Cache != nil {
			if err := d.opts.Cache.Update(root, webRoots, ConfigFile); err != nil {
				d.log.Warn("cache update failed", "root", root, "error", err)
			}
		}
	}
	result.Folders = d.folders.Load()
	result.Errors = d.errors
	d.log.Info("discovery finished", "roots", len(roots), "installations", len(result.Installations))
	return result, nil
}

// cached loads the installations remembered for root. ok is false when the
// root has to be walked.
func (d *discoverer) cached(root string) ([]*Installation, bool) {
	if d.opts.Cache == nil {
		return nil, false
	}
	webRoots, ok, err := d.opts.Cache.WebRoots(root)
	if err != nil {
		d.log.Warn("cache lookup failed", "root", root, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	loaded := make([]*Installation, 0, len(webRoots))
	for _, wr := range webRoots {
		inst, err := Load(d.opts.Files, wr)
		if err != nil {
			d.log.Debug("cached installation unreadable", "dir", wr, "error", err)
			return nil, false
		}
		loaded = append(loaded, inst)
	}

	var out []*Installation
	for _, inst := range loaded {
		if d.visit(inst.WebRoot) {
			out = append(out, inst)
		}
	}
	d.log.Debug("discovery cache hit", "root", root, "installations", len(out))
	return out, true
}

// searchRoot searches each sub-directory of root.
func (d *discoverer) searchRoot(ctx context.Context, root string) ([]*Installation, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var out []*Installation
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(root, e.Name())
		if !e.IsDir() && (e.Type()&fs.ModeSymlink == 0 || !isDir(p)) {
			continue
		}
		inst, err := d.search(ctx, p)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out, nil
}

// search returns the first installation found in folder, nearest first.
// Symlinked folders are searched at their target.
func (d *discoverer) search(ctx context.Context, folder string) (*Installation, error) {
	root := canonical(folder)
	if !d.visit(root) {
		return nil, nil
	}
	if d.opts.OnFolder != nil {
		d.opts.OnFolder(folder)
	}

	candidates, err := d.walk(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, dir := range candidates {
		if dir != root && !d.visit(dir) {
			continue
		}
		inst, err := Load(d.opts.Files, dir)
		if err != nil {
			d.log.Debug("not an installation", "dir", dir, "error", err)
			continue
		}
		return inst, nil
	}
	return nil, nil
}

// walk collects every directory holding a configuration file, ordered by
// depth then path.
func (d *discoverer) walk(ctx context.Context, folder string) ([]string, error) {
	var (
		mu         sync.Mutex
		candidates []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, folder, func(p string, de fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			d.addError(p, err)
			return nil
		}
		if de.IsDir() {
			if p == folder {
				return nil
			}
			if strings.HasPrefix(de.Name(), ".") || depth(folder, p) > d.opts.MaxDepth {
				return fastwalk.SkipDir
			}
			d.folders.Add(1)
			return nil
		}
		if de.Name() == ConfigFile && de.Type().IsRegular() {
			mu.Lock()
			candidates = append(candidates, filepath.Dir(p))
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(a, b int) bool {
		da, db := depth(folder, candidates[a]), depth(folder, candidates[b])
		if da != db {
			return da < db
		}
		return candidates[a] < candidates[b]
	})
	return candidates, nil
}

// visit marks the canonical form of dir and reports whether it was new.
func (d *discoverer) visit(dir string) bool {
	key := canonical(dir)
	if d.visited[key] {
		return false
	}
	d.visited[key] = true
	return true
}

func (d *discoverer) addError(p string, err error) {
	d.errorsMu.Lock()
	d.errors = append(d.errors, WalkError{Path: p, Error: err.Error()})
	d.errorsMu.Unlock()
}

func canonical(dir string) string {
	p := dir
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func depth(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
