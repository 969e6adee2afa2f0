// Package memo implements the translation memory: a YAML file that records
// finished chunk translations keyed by a BLAKE3 digest of the language pair
// and the chunk text. Chunks found in the memory are not sent to the
// provider again, so an interrupted or repeated run resumes cheaply.
package memo

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is used when --memory is given a directory.
const DefaultFileName = "textrans.memory.yaml"

// Version is the memory file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Memory is the on-disk translation memory.
type Memory struct {
	Version int                          `yaml:"version"`
	Entries map[string]map[string]string `yaml:"entries"` // pair -> key -> translation

	mu    sync.Mutex
	path  string
	dirty bool
	hits  atomic.Int64
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a memory file. A missing file yields an empty memory that will
// be created on Save. If path is a directory, DefaultFileName inside it is
// used.
func Load(path string) (*Memory, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	m := &Memory{
		Version: Version,
		Entries: make(map[string]map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version > Version {
		return nil, fmt.Errorf("%s: unsupported memory version %d", path, m.Version)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]map[string]string)
	}
	return m, nil
}

// Save writes the memory to disk if anything was stored since the last
// save.
func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("memory file path not set")
	}
	if !m.dirty {
		return nil
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling memory: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	m.dirty = false
	return nil
}

// Path returns the memory file path.
func (m *Memory) Path() string {
	return m.path
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Pair names the language pair bucket, e.g. "en>de" or "auto>fr".
func Pair(source, target string) string {
	return strings.ToLower(source) + ">" + strings.ToLower(target)
}

// Key computes the BLAKE3 hex digest identifying a chunk for a pair.
func Key(source, target, text string) string {
	h := blake3.New()
	h.Write([]byte(Pair(source, target)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the stored translation of text, if any.
func (m *Memory) Lookup(source, target, text string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr, ok := m.Entries[Pair(source, target)][Key(source, target, text)]
	return tr, ok
}

// Store records a translation.
func (m *Memory) Store(source, target, text, translation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair := Pair(source, target)
	if m.Entries[pair] == nil {
		m.Entries[pair] = make(map[string]string)
	}
	key := Key(source, target, text)
	if old, ok := m.Entries[pair][key]; ok && old == translation {
		return
	}
	m.Entries[pair][key] = translation
	m.dirty = true
}

// Wrap returns a translate function that answers from the memory when it
// can and records successful calls to next.
func (m *Memory) Wrap(source, target string, next func(ctx context.Context, text string) (string, error)) func(ctx context.Context, text string) (string, error) {
	return func(ctx context.Context, text string) (string, error) {
		if tr, ok := m.Lookup(source, target, text); ok {
			m.hits.Add(1)
			return tr, nil
		}
		tr, err := next(ctx, text)
		if err != nil {
			return "", err
		}
		m.Store(source, target, text, tr)
		return tr, nil
	}
}

// Hits returns how many lookups through Wrap were answered from memory.
func (m *Memory) Hits() int {
	return int(m.hits.Load())
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of language pairs and total entries.
func (m *Memory) Stats() (pairs, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs = len(m.Entries)
	for _, e := range m.Entries {
		entries += len(e)
	}
	return
}

// Pairs returns the sorted list of language pairs.
func (m *Memory) Pairs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs := make([]string, 0, len(m.Entries))
	for p := range m.Entries {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

// Summary returns a human-readable summary string.
func (m *Memory) Summary() string {
	pairs, entries := m.Stats()
	if pairs == 0 {
		return "empty"
	}

	var parts []string
	for _, p := range m.Pairs() {
		m.mu.Lock()
		n := len(m.Entries[p])
		m.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d", p, n))
	}
	return fmt.Sprintf("%d pairs, %d entries (%s)", pairs, entries, strings.Join(parts, ", "))
}
