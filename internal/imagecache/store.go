package imagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Key is the content fingerprint of a cache entry.
type Key string

// KeyFor returns the fingerprint of content under the given codec salt.
func KeyFor(content []byte, salt string) Key {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write(content)
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Entry is a memoized optimization result.
type Entry struct {
	Key          Key    `msgpack:"key"`
	Source       string `msgpack:"source"`
	Codec        string `msgpack:"codec"`
	OriginalSize int64  `msgpack:"original_size"`
	Data         []byte `msgpack:"data"`
}

// Store persists entries by key.
type Store interface {
	// Get returns the entry for key, or nil when absent. A non-nil error
	// means the entry exists but cannot be used.
	Get(key Key) (*Entry, error)
	Put(entry *Entry) error
	// Clear removes every entry.
	Clear() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*Entry)}
}

func (s *MemoryStore) Get(key Key) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) Put(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.Key] = &cp
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*Entry)
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
