package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ardnew/softdac/pkg"
)

const configType = "yaml"

// Reload pacing for editors that write a file more than once per save.
const (
	minReloadInterval = 500 * time.Millisecond
	reloadDelay       = 50 * time.Millisecond
)

// Manager owns a viper instance bound to one file and the last valid
// Config read from it.
type Manager struct {
	v    *viper.Viper
	path string

	mutex   sync.RWMutex
	current Config
}

// Load reads and validates the YAML file at path. An empty path returns
// Default() without touching the filesystem.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	m, err := NewManager(path)
	if err != nil {
		return Config{}, err
	}
	return m.Current(), nil
}

// NewManager reads the file at path and returns a Manager holding the
// validated result.
func NewManager(path string) (*Manager, error) {
	v := viper.New()
	name := filepath.Base(path)
	v.SetConfigName(strings.TrimSuffix(name, filepath.Ext(name)))
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Dir(path))
	setDefaults(v)

	m := &Manager{v: v, path: path}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", m.path, err)
	}
	c, err := decode(m.v)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", m.path, err)
	}

	m.mutex.Lock()
	m.current = c
	m.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentConfig, "loaded config", "path", m.path)
	return nil
}

// Path returns the watched file.
func (m *Manager) Path() string {
	return m.path
}

// Current returns the last successfully loaded Config.
func (m *Manager) Current() Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Watch reloads the file on write and calls onChange with each new valid
// Config. A reload that fails keeps the previous Config. Watch returns
// immediately; the watcher is detached when ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) {
	var (
		mutex  sync.Mutex
		last   time.Time
		closed bool
	)

	m.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		mutex.Lock()
		now := time.Now()
		if closed || now.Sub(last) < minReloadInterval {
			mutex.Unlock()
			return
		}
		last = now
		mutex.Unlock()

		time.Sleep(reloadDelay)

		if err := m.load(); err != nil {
			pkg.LogWarn(pkg.ComponentConfig, "reload failed", "path", m.path, "error", err)
			return
		}
		pkg.LogInfo(pkg.ComponentConfig, "reloaded config", "path", m.path)

		mutex.Lock()
		stop := closed
		mutex.Unlock()
		if !stop && onChange != nil {
			onChange(m.Current())
		}
	})
	m.v.WatchConfig()

	go func() {
		<-ctx.Done()
		mutex.Lock()
		closed = true
		mutex.Unlock()
		pkg.LogDebug(pkg.ComponentConfig, "stopped watching config", "path", m.path)
	}()
}
