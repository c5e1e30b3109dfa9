// Package resource provides a reference counted asset cache shared by the
// payloads of a streaming controller.
package resource

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	ErrTypeLoadFailed = "resource_load_failed"
)

// Asset is a loaded resource.
type Asset struct {
	Path     string
	Data     []byte
	LoadedAt time.Time
}

// Loader reads the content of a resource.
type Loader interface {
	Load(path string) ([]byte, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(path string) ([]byte, error)

func (f LoaderFunc) Load(path string) ([]byte, error) {
	return f(path)
}

// DirLoader returns a loader reading resources from the files of the given
// directory. Paths cannot escape the directory.
func DirLoader(root string) Loader {
	return LoaderFunc(func(path string) ([]byte, error) {
		return os.ReadFile(filepath.Join(root, filepath.Clean("/"+path)))
	})
}

type entry struct {
	asset *Asset
	refs  int
}

// Cache keeps assets loaded while they are referenced. An asset is loaded on
// its first reference and released when its last reference is dropped.
type Cache struct {
	name    string
	loader  Loader
	mutex   sync.Mutex
	entries map[string]*entry
}

// NewCache returns a cache identified by name in logs and metrics.
func NewCache(name string, l Loader) *Cache {
	return &Cache{
		name:    name,
		loader:  l,
		entries: make(map[string]*entry),
	}
}

// Load returns the asset at the given path and takes a reference on it.
func (c *Cache) Load(path string) (*Asset, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[path]; ok {
		e.refs++
		return e.asset, nil
	}

	start := time.Now()
	data, err := c.loader.Load(path)
	if err != nil {
		instrumentLoadFailure(c.name)
		return nil, errors.New("loading resource failed").
			WithType(ErrTypeLoadFailed).
			WithTag("cache", c.name).
			WithTag("path", path).
			Wrap(err)
	}

	asset := &Asset{
		Path:     path,
		Data:     data,
		LoadedAt: time.Now(),
	}
	c.entries[path] = &entry{
		asset: asset,
		refs:  1,
	}
	instrumentLoad(c.name, len(data), time.Since(start))

	logs.WithTag("cache", c.name).
		WithTag("path", path).
		WithTag("size", len(data)).
		Debug("resource loaded")
	return asset, nil
}

// Unload drops a reference on the asset at the given path and reports whether
// the asset was released.
func (c *Cache) Unload(path string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[path]
	if !ok {
		return false
	}

	e.refs--
	if e.refs > 0 {
		return false
	}

	delete(c.entries, path)
	instrumentRelease(c.name, len(e.asset.Data))

	logs.WithTag("cache", c.name).
		WithTag("path", path).
		Debug("resource released")
	return true
}

// RefCount returns the number of references on the asset at the given path.
func (c *Cache) RefCount(path string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[path]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of loaded assets.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries)
}

// Clear releases every asset regardless of its references.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, e := range c.entries {
		instrumentRelease(c.name, len(e.asset.Data))
		delete(c.entries, path)
	}
}
