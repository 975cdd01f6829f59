// Package assets locates and parses asset description documents.
package assets

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Asset errors.
var (
	ErrNotFound  = errors.New("asset not found")
	ErrMalformed = errors.New("malformed asset document")
)

// DefaultExtension is appended to resource names to find their document.
const DefaultExtension = ".model"

// Store opens asset documents by resource name.
type Store interface {
	Open(name string) (*Section, error)
}

// Source supplies raw document bytes by file path.
type Source interface {
	Read(path string) ([]byte, error)
}

// Manager handles document loading from an ordered list of sources.
type Manager struct {
	sources   []Source
	cache     *Cache
	extension string
	uncached  bool
	mu        sync.RWMutex
}

// NewManager creates a new asset manager. An empty extension selects
// DefaultExtension.
func NewManager(extension string) *Manager {
	if extension == "" {
		extension = DefaultExtension
	}
	return &Manager{
		cache:     NewCache(),
		extension: extension,
	}
}

// AddSource adds a document source.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) AddSource(src Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
}

// AddDir adds a directory source rooted at dir.
func (m *Manager) AddDir(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "opening asset root %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("asset root %s is not a directory", dir)
	}
	src := NewDirSource(dir)
	m.AddSource(src)
	return src, nil
}

// SetCaching turns the raw document cache on or off.
func (m *Manager) SetCaching(enabled bool) {
	m.mu.Lock()
	m.uncached = !enabled
	m.mu.Unlock()
	if !enabled {
		m.cache.Clear()
	}
}

// Extension returns the document file extension.
func (m *Manager) Extension() string {
	return m.extension
}

// Load reads a file from the sources.
func (m *Manager) Load(p string) ([]byte, error) {
	p = normalizePath(p)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.uncached {
		if data, ok := m.cache.Get(p); ok {
			return data, nil
		}
	}

	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := m.sources[i].Read(p)
		if err == nil {
			if !m.uncached {
				m.cache.Set(p, data)
			}
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrapf(err, "reading %s", p)
		}
	}

	return nil, errors.Wrap(ErrNotFound, p)
}

// Open loads and parses the document for a resource name.
func (m *Manager) Open(name string) (*Section, error) {
	name = NormalizeName(name)
	data, err := m.Load(name + m.extension)
	if err != nil {
		return nil, err
	}
	return Parse(name, data)
}

// Invalidate drops the cached bytes of a resource so the next Open rereads it.
func (m *Manager) Invalidate(name string) {
	m.cache.Delete(normalizePath(NormalizeName(name) + m.extension))
}

// Close forgets all sources.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources = nil
	m.cache.Clear()
}

// NameFromPath maps a document path relative to a source root back to its
// resource name, or "" if the path does not carry the document extension.
func (m *Manager) NameFromPath(rel string) string {
	rel = normalizePath(rel)
	if !strings.HasSuffix(rel, m.extension) {
		return ""
	}
	return strings.TrimSuffix(rel, m.extension)
}

// NormalizeName canonicalizes a resource name.
func NormalizeName(name string) string {
	name = normalizePath(name)
	return strings.TrimPrefix(name, "/")
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(strings.ToLower(p))
}

// DirSource reads documents from a directory tree.
type DirSource struct {
	root string
	fsys fs.FS
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: filepath.Clean(dir), fsys: os.DirFS(dir)}
}

// Root returns the directory the source reads from.
func (d *DirSource) Root() string {
	return d.root
}

// Read reads a file relative to the root.
func (d *DirSource) Read(p string) ([]byte, error) {
	data, err := fs.ReadFile(d.fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// MemSource serves documents from memory. Tests and tools use it to build
// asset graphs without touching disk.
type MemSource struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemSource creates an empty in-memory source.
func NewMemSource() *MemSource {
	return &MemSource{files: make(map[string][]byte)}
}

// Set stores a file.
func (s *MemSource) Set(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[normalizePath(p)] = data
}

// Remove deletes a file.
func (s *MemSource) Remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, normalizePath(p))
}

// Read returns a stored file.
func (s *MemSource) Read(p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[p]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Cache is a simple in-memory cache for loaded documents.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	// Stats are written, so this takes the write lock.
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
