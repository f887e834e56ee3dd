package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Bump when the cached payload format changes.
const genCacheSchemaVersion uint16 = 1

// GenCache stores per-file generation results on disk so unchanged files are
// not re-analyzed on the next run. Safe for concurrent use. A nil cache is
// valid and caches nothing.
type GenCache struct {
	mu  sync.RWMutex
	dir string
}

// genCachePayload is the serialized form of one file's generated mutations.
// The digest pins the payload to the exact content it was generated from.
type genCachePayload struct {
	Schema    uint16
	File      string
	Digest    string
	Mutations []m.Mutation
}

// NewGenCache initializes a generation cache rooted at dir.
func NewGenCache(dir string) (*GenCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create generation cache directory: %w", err)
	}

	return &GenCache{dir: dir}, nil
}

func (c *GenCache) pathFor(file m.Path) string {
	sum := sha256.Sum256([]byte(file))

	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".mp")
}

// Get returns the cached mutations for file when the stored digest still
// matches the current content digest.
func (c *GenCache) Get(file m.Path, digest string) ([]m.Mutation, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(file))
	if err != nil {
		return nil, false
	}

	defer func() { _ = f.Close() }()

	var payload genCachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}

	if payload.Schema != genCacheSchemaVersion || payload.File != string(file) || payload.Digest != digest {
		return nil, false
	}

	return payload.Mutations, true
}

// Put serializes the mutations for file, replacing the entry atomically.
func (c *GenCache) Put(file m.Path, digest string, mutations []m.Mutation) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.pathFor(file)

	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}

	defer func() { _ = os.Remove(f.Name()) }()

	payload := genCachePayload{
		Schema:    genCacheSchemaVersion,
		File:      string(file),
		Digest:    digest,
		Mutations: mutations,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	// Atomic replace
	return os.Rename(f.Name(), target)
}

// DropAll wipes the cache, useful after a format change.
func (c *GenCache) DropAll() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}

	return os.MkdirAll(c.dir, 0o750)
}
