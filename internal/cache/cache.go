// Package cache remembers check results by file content so unchanged files
// are not parsed again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/declorder/internal/model"
)

// DefaultSize is the number of entries kept when no size is given.
const DefaultSize = 4096

const fileVersion = 1

// Entry is the cached result of checking one file.
type Entry struct {
	Declarations int               `json:"declarations"`
	Violations   []model.Violation `json:"violations,omitempty"`
}

// Cache is an LRU of check results keyed by Key. It is safe for
// concurrent use.
type Cache struct {
	entries *lru.Cache[string, Entry]
	dirty   atomic.Bool
}

type record struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

type file struct {
	Version int      `json:"version"`
	Entries []record `json:"entries"`
}

// Key derives the cache key of a file from its content, its language and a
// fingerprint of every option that influences the result.
func Key(content []byte, language, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// New returns an empty cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Load reads a cache file written by Save. A missing file yields an empty
// cache. Entries written by another format version are discarded.
func Load(path string, size int) (*Cache, error) {
	c, err := New(size)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading cache: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return c, fmt.Errorf("decoding cache %s: %w", path, err)
	}
	if f.Version != fileVersion {
		return c, nil
	}
	for _, r := range f.Entries {
		c.entries.Add(r.Key, r.Entry)
	}
	return c, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.entries.Get(key)
}

// Put stores an entry under key.
func (c *Cache) Put(key string, e Entry) {
	c.entries.Add(key, e)
	c.dirty.Store(true)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Dirty reports whether entries were added since the cache was loaded or
// last saved.
func (c *Cache) Dirty() bool {
	return c.dirty.Load()
}

// Save writes the cache to path, oldest entries first, replacing the file
// atomically.
func (c *Cache) Save(path string) error {
	f := file{Version: fileVersion}
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok {
			f.Entries = append(f.Entries, record{Key: key, Entry: e})
		}
	}
	data, err := json.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	c.dirty.Store(false)
	return nil
}
