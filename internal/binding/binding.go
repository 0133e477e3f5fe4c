// Package binding remembers which pane a repository root was last
// routed to. The binding is advisory: pane identifiers are time-scoped,
// so every read must be re-verified against the live pane table before
// it is trusted, and a failed check clears the entry.
package binding

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/timvw/pane-relay/internal/model"
)

// Entry is a remembered root→pane binding. Enough pane coordinates are
// kept to re-verify liveness and, failing that, to attempt window-index
// recovery before giving up.
type Entry struct {
	PaneID      string                `json:"pane_id"`
	Session     string                `json:"session"`
	WindowName  string                `json:"window_name"`
	WindowIndex int                   `json:"window_index"`
	Method      model.DetectionMethod `json:"method"`
	BoundAt     time.Time             `json:"bound_at"`
}

// Cache is a root-keyed binding store persisted as a single JSON file.
// All mutations go through Set and Clear.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// DefaultPath returns the binding file location under the user cache
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pane-relay", "bindings.json"), nil
}

// Open loads the cache at path. A missing or unreadable file yields an
// empty cache; stale or corrupted state is never worth failing over.
func Open(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]Entry)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return c
	}
	c.entries = entries
	return c
}

// Get returns the remembered binding for root, if any. Callers must
// verify the pane still exists before using it.
func (c *Cache) Get(root string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[filepath.Clean(root)]
	return e, ok
}

// Set remembers cand as the binding for root and persists the store.
func (c *Cache) Set(root string, cand model.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[filepath.Clean(root)] = Entry{
		PaneID:      cand.Pane.ID,
		Session:     cand.Pane.Session,
		WindowName:  cand.Pane.WindowName,
		WindowIndex: cand.Pane.WindowIndex,
		Method:      cand.Method,
		BoundAt:     time.Now(),
	}
	return c.save()
}

// Clear forgets the binding for root. Clearing an absent entry is a
// no-op.
func (c *Cache) Clear(root string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := filepath.Clean(root)
	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.save()
}

// save writes the store atomically: temp file in the same directory,
// then rename.
func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
