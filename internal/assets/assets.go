// Package assets handles behavior model loading and caching.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/pkg/formats"
)

// ErrModelNotFound is returned when no search directory holds a model.
var ErrModelNotFound = errors.New("behavior model not found")

// Extensions tried, in order, for names without one.
var Extensions = []string{".bhv", ".yaml", ".yml"}

// Manager resolves behavior model names against search directories and
// compiles each model once. Compiled models are shared and read-only.
type Manager struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
	load  sync.Mutex
}

// NewManager creates a manager searching dirs.
func NewManager(dirs ...string) *Manager {
	return &Manager{
		dirs:  append([]string(nil), dirs...),
		cache: NewCache(),
	}
}

// AddDir adds a search directory.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding model dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding model dir %s: not a directory", dir)
	}

	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
	return nil
}

// Dirs returns the search directories in priority order, highest first.
func (m *Manager) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.dirs))
	for i := len(m.dirs) - 1; i >= 0; i-- {
		out = append(out, m.dirs[i])
	}
	return out
}

// Resolve returns the file a model name refers to. An existing path is
// used as is; otherwise each directory is tried with the name and with
// each of Extensions appended.
func (m *Manager) Resolve(name string) (string, error) {
	if isFile(name) {
		return name, nil
	}
	for _, dir := range m.Dirs() {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, nil
		}
		for _, ext := range Extensions {
			if isFile(candidate + ext) {
				return candidate + ext, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// Load reads the table package named name, binary or YAML by extension.
func (m *Manager) Load(name string) (*formats.BHV, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a table package from path.
func LoadFile(path string) (*formats.BHV, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return formats.ParseBHVYAML(data)
	default:
		return formats.LoadBHV(path)
	}
}

// Model returns the compiled model for name, compiling it on first use.
func (m *Manager) Model(name string) (*riglogic.BehaviorModel, error) {
	if model, ok := m.cache.Get(name); ok {
		return model, nil
	}

	m.load.Lock()
	defer m.load.Unlock()
	if model, ok := m.cache.Peek(name); ok {
		return model, nil
	}

	bhv, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	model, err := riglogic.NewBehaviorModel(bhv)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	m.cache.Set(name, model)

	logger.Info("behavior model loaded",
		zap.String("name", name),
		zap.Int("rawControls", model.RawControlCount()),
		zap.Int("joints", len(model.Joints())),
		zap.Int("lods", model.LODCount()))
	return model, nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops all cached models.
func (m *Manager) Close() {
	m.cache.Clear()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Cache is an in-memory cache of compiled models.
type Cache struct {
	data map[string]*riglogic.BehaviorModel
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*riglogic.BehaviorModel),
	}
}

// Get retrieves a model and counts the lookup.
func (c *Cache) Get(key string) (*riglogic.BehaviorModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	model, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return model, ok
}

// Peek retrieves a model without touching the stats.
func (c *Cache) Peek(key string) (*riglogic.BehaviorModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	model, ok := c.data[key]
	return model, ok
}

// Set stores a model.
func (c *Cache) Set(key string, model *riglogic.BehaviorModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = model
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*riglogic.BehaviorModel)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
