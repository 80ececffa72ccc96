package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued engine settings.
const (
	DefaultQueueDepth       = 1024
	DefaultCommandTimeoutMs = 2000
	DefaultSinkWorkers      = 1
	DefaultSinkQueueDepth   = 4096
	DefaultHistorySize      = 256
)

// Loader reads a circuit file and watches it for changes. Files ending in
// .toml are decoded as TOML, anything else as YAML.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *CircuitConfig
	onChange []func(*CircuitConfig)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.path }

// Config returns the current (latest) configuration.
func (l *Loader) Config() *CircuitConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*CircuitConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("config reload failed, keeping previous circuit", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "path", l.path, "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file and notifies OnChange callbacks.
func (l *Loader) Reload() (*CircuitConfig, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	callbacks := make([]func(*CircuitConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.RUnlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// Load re-reads the config file and makes it current without firing callbacks.
// Use it when the caller applies the new config itself.
func (l *Loader) Load() (*CircuitConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) load() (*CircuitConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	parse := Parse
	if strings.EqualFold(filepath.Ext(l.path), ".toml") {
		parse = ParseTOML
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*CircuitConfig, error) {
	var cfg CircuitConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ParseTOML decodes TOML and applies defaults.
func ParseTOML(data []byte) (*CircuitConfig, error) {
	var cfg CircuitConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero-valued engine settings.
func ApplyDefaults(cfg *CircuitConfig) {
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = DefaultQueueDepth
	}
	if cfg.Engine.CommandTimeoutMs == 0 {
		cfg.Engine.CommandTimeoutMs = DefaultCommandTimeoutMs
	}
	if cfg.Engine.SinkWorkers == 0 {
		cfg.Engine.SinkWorkers = DefaultSinkWorkers
	}
	if cfg.Engine.SinkQueueDepth == 0 {
		cfg.Engine.SinkQueueDepth = DefaultSinkQueueDepth
	}
	if cfg.Engine.HistorySize == 0 {
		cfg.Engine.HistorySize = DefaultHistorySize
	}
}
