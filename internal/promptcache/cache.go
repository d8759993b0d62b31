package promptcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Store is a file-backed map of (model, prompt) hashes to cached judge
// responses. It makes repeated judge runs reproducible and cheap: a warm
// cache answers every repeated prompt without a provider call.
//
// Reads load the file lazily; every write persists the full map. All access
// goes through one mutex so concurrent evaluators that miss on the same key
// cannot corrupt the file.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]string
	loaded  bool
}

// Open returns a store backed by path. The file is not touched until the
// first read or write.
func Open(path string) *Store {
	return &Store{path: path}
}

// Get returns the cached response for (model, prompt), if any.
func (s *Store) Get(model, prompt string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	v, ok := s.entries[Key(model, prompt)]
	return v, ok
}

// Put records a response and persists the store.
func (s *Store) Put(model, prompt, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	s.entries[Key(model, prompt)] = response
	return s.save()
}

// Clear drops all entries and removes the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
	s.loaded = true
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Key is the deterministic cache key: sha256 over model and prompt separated
// by a NUL byte.
func Key(model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) load() {
	if s.loaded {
		return
	}
	s.entries = make(map[string]string)
	s.loaded = true
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	// A corrupt cache file is treated as empty rather than fatal.
	_ = json.Unmarshal(raw, &s.entries)
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}
