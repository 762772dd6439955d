// Package itemdb holds the item-template registry used to classify and stack items.
package itemdb

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"gopkg.in/yaml.v3"
)

//go:embed items.yaml
var defaultCatalog []byte

type catalogFile struct {
	Items []*gamedb.ItemTemplate `yaml:"items"`
}

// Registry maps item entries to templates. It is safe for concurrent use;
// Replace swaps the whole table at once.
type Registry struct {
	mu      sync.RWMutex
	byEntry map[uint32]*gamedb.ItemTemplate
	path    string
}

// New builds a registry from templates already in memory.
func New(templates ...*gamedb.ItemTemplate) *Registry {
	r := &Registry{}
	r.Replace(templates)
	return r
}

// LoadEmbedded returns a registry holding the built-in catalog.
func LoadEmbedded() (*Registry, error) {
	templates, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("itemdb: embedded catalog: %w", err)
	}
	return New(templates...), nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Registry, error) {
	templates, err := readFile(path)
	if err != nil {
		return nil, err
	}
	r := New(templates...)
	r.path = path
	return r, nil
}

func readFile(path string) ([]*gamedb.ItemTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("itemdb: read %s: %w", path, err)
	}
	templates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("itemdb: parse %s: %w", path, err)
	}
	return templates, nil
}

// Parse decodes a YAML catalog and validates it.
func Parse(data []byte) ([]*gamedb.ItemTemplate, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	seen := make(map[uint32]bool, len(f.Items))
	for i, t := range f.Items {
		if t == nil || t.Entry == 0 {
			return nil, fmt.Errorf("item %d: entry is required", i)
		}
		if seen[t.Entry] {
			return nil, fmt.Errorf("item %d: duplicate entry %d", i, t.Entry)
		}
		seen[t.Entry] = true
		if t.Name == "" {
			return nil, fmt.Errorf("item %d: name is required", t.Entry)
		}
	}
	return f.Items, nil
}

// Get returns the template for entry.
func (r *Registry) Get(entry uint32) (*gamedb.ItemTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byEntry[entry]
	return t, ok
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEntry)
}

// Entries returns all known entries in ascending order.
func (r *Registry) Entries() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint32, 0, len(r.byEntry))
	for e := range r.byEntry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Replace swaps in a new set of templates.
func (r *Registry) Replace(templates []*gamedb.ItemTemplate) {
	m := make(map[uint32]*gamedb.ItemTemplate, len(templates))
	for _, t := range templates {
		m[t.Entry] = t
	}
	r.mu.Lock()
	r.byEntry = m
	r.mu.Unlock()
}

// Path returns the catalog file the registry was loaded from, if any.
func (r *Registry) Path() string { return r.path }

// Reload re-reads the catalog file. The current table is kept on error.
func (r *Registry) Reload() error {
	if r.path == "" {
		return fmt.Errorf("itemdb: registry was not loaded from a file")
	}
	templates, err := readFile(r.path)
	if err != nil {
		return err
	}
	r.Replace(templates)
	return nil
}
