// Package astcache persists parsed trees between runs. Entries are
// keyed by a SHA-256 digest (Source hashes the file path together with
// the source bytes), serialized with msgpack and written atomically, so
// a stale or torn entry can only miss, never corrupt an analysis.
package astcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"pyscope/internal/ast"
)

// Current schema version - increment when the payload format changes.
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 content hash.
type Digest [sha256.Size]byte

// HashBytes returns the cache key for source bytes.
func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// StartupError is returned when the cache directory cannot be created;
// the analyzer treats it as fatal.
type StartupError struct {
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("failed to create cache directory %q: %v", e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Cache stores serialized modules under a single directory.
// Safe for concurrent use: the warm-up path parses files in parallel.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache at <tempdir>/<product>/ast_cache.
func Open(product string) (*Cache, error) {
	dir := filepath.Join(os.TempDir(), product, "ast_cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StartupError{Path: dir, Err: err}
	}
	return &Cache{dir: dir}, nil
}

// OpenAt initializes the cache at an explicit directory, used by tests.
func OpenAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StartupError{Path: dir, Err: err}
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a module under the source digest. The
// write goes through a temp file and a rename.
func (c *Cache) Put(key Digest, mod *ast.Module) error {
	if c == nil || mod == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pathFor(key)
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	enc := msgpack.NewEncoder(f)
	if err := encodeModule(enc, mod); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a module back by digest. A missing or undecodable entry is
// a miss.
func (c *Cache) Get(key Digest) (*ast.Module, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()
	dec := msgpack.NewDecoder(f)
	mod, err := decodeModule(dec)
	if err != nil {
		return nil, false
	}
	return mod, true
}

// DropAll invalidates the whole cache.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the cache. Writes are already durable; this exists so
// callers hold the open/close pairing in one place.
func (c *Cache) Close() error { return nil }
