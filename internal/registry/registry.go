// Package registry holds named validators loaded from a directory of schema
// documents and reloads them when the directory changes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/schemadoc"
)

// Extensions lists the file extensions read as schema documents.
var Extensions = []string{".yaml", ".yml", ".json"}

// Entry is one loaded schema.
type Entry struct {
	Name      string
	Path      string
	Validator *goshape.Validator
}

// Event describes the outcome of a reload.
type Event struct {
	Trigger string // "reload" or the fsnotify operation that caused it
	Loaded  int    // entries after the reload (unchanged on failure)
	Err     error
}

// Options configures a Registry.
type Options struct {
	Schema schemadoc.Options
	Logger zerolog.Logger
}

// Registry provides thread-safe access to validators with hot reload support.
type Registry struct {
	mu       sync.RWMutex
	dir      string
	opt      Options
	logger   zerolog.Logger
	entries  map[string]*Entry
	onReload []func(Event)
}

// Open loads every schema document in dir.
func Open(dir string, opt Options) (*Registry, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	entries, err := loadDir(absDir, opt.Schema)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		dir:     absDir,
		opt:     opt,
		logger:  opt.Logger.With().Str("component", "registry").Logger(),
		entries: entries,
	}
	r.logger.Info().Str("dir", absDir).Int("schemas", len(entries)).Msg("schemas loaded")
	return r, nil
}

// Dir returns the absolute schema directory.
func (r *Registry) Dir() string { return r.dir }

// Get returns the validator registered under name.
func (r *Registry) Get(name string) (*goshape.Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.Validator, true
}

// Entries returns a snapshot of all entries sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	entries := r.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// OnReload registers a callback invoked after every reload attempt.
func (r *Registry) OnReload(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// Reload reloads the directory. The previous set stays active when loading
// fails.
func (r *Registry) Reload() error {
	return r.reload("reload")
}

func (r *Registry) reload(trigger string) error {
	r.logger.Info().Str("dir", r.dir).Str("trigger", trigger).Msg("reloading schemas")

	entries, err := loadDir(r.dir, r.opt.Schema)

	r.mu.Lock()
	if err == nil {
		r.entries = entries
	}
	ev := Event{Trigger: trigger, Loaded: len(r.entries), Err: err}
	callbacks := append(([]func(Event))(nil), r.onReload...)
	r.mu.Unlock()

	if err != nil {
		r.logger.Error().Err(err).Msg("schema reload failed, keeping previous schemas")
	} else {
		r.logger.Info().Int("schemas", ev.Loaded).Msg("schemas reloaded")
	}
	for _, fn := range callbacks {
		fn(ev)
	}
	if err != nil {
		return fmt.Errorf("reload schemas: %w", err)
	}
	return nil
}

// Watch reloads the registry whenever a schema document in the directory is
// written, created, removed or renamed. It returns once the watcher is set up;
// watching stops when ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	go r.watchLoop(ctx, watcher)
	r.logger.Info().Str("dir", r.dir).Msg("watching schemas for changes")
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSchemaFile(event.Name) || event.Op&ops == 0 {
				continue
			}
			r.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			_ = r.reload(event.Op.String())

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return
		}
	}
}

func loadDir(dir string, opt schemadoc.Options) (map[string]*Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	entries := make(map[string]*Entry)
	var errs []error
	for _, f := range files {
		if f.IsDir() || !isSchemaFile(f.Name()) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if prev, dup := entries[name]; dup {
			errs = append(errs, fmt.Errorf("%s: name %q already defined by %s", f.Name(), name, filepath.Base(prev.Path)))
			continue
		}
		s, err := schemadoc.LoadFile(context.Background(), path, opt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		v, err := goshape.Compile(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		entries[name] = &Entry{Name: name, Path: path, Validator: v}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

func isSchemaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
