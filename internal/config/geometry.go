package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// WindowState records the geometry and open flag of one floating window so
// it can be restored after a restart. Name keeps the display-cased
// correspondent name; the map key lowercases it and cannot give the case
// back.
type WindowState struct {
	Name   string `json:"name,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Open   bool   `json:"open"`
}

// WindowKey addresses a persisted window. Keyed by (name, world) rather than
// full identity: a correspondent whose stable id changes across restarts
// still maps to the same entry, and one whose name changes loses its
// geometry. Known limitation, kept deliberately.
type WindowKey struct {
	Name  string
	World uint32
}

func (k WindowKey) String() string {
	return fmt.Sprintf("%s@%d", strings.ToLower(k.Name), k.World)
}

func parseWindowKey(s string) (WindowKey, bool) {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return WindowKey{}, false
	}
	world, err := strconv.ParseUint(s[at+1:], 10, 32)
	if err != nil {
		return WindowKey{}, false
	}
	return WindowKey{Name: s[:at], World: uint32(world)}, true
}

const geometryFile = "windows.json"

// GeometryStore persists window states to dir/windows.json.
type GeometryStore struct {
	mu     sync.Mutex
	dir    string
	states map[string]WindowState
}

// LoadGeometry reads the geometry store from dir, starting empty when the
// file does not exist.
func LoadGeometry(dir string) (*GeometryStore, error) {
	g := &GeometryStore{dir: dir, states: make(map[string]WindowState)}
	data, err := os.ReadFile(filepath.Join(dir, geometryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return g, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &g.states); err != nil {
		return nil, err
	}
	return g, nil
}

// Get returns the persisted state for (name, world).
func (g *GeometryStore) Get(name string, world uint32) (WindowState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.states[WindowKey{Name: name, World: world}.String()]
	return st, ok
}

// Put stores geometry for (name, world), preserving the open flag.
func (g *GeometryStore) Put(name string, world uint32, st WindowState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st.Name = name
	g.states[WindowKey{Name: name, World: world}.String()] = st
}

// SetOpen records whether the window for (name, world) is open, keeping any
// stored geometry.
func (g *GeometryStore) SetOpen(name string, world uint32, open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := WindowKey{Name: name, World: world}.String()
	st := g.states[key]
	st.Name = name
	st.Open = open
	g.states[key] = st
}

// OpenKeys lists the windows recorded as open, for restore on startup, in a
// stable order. Names come back display-cased when the entry recorded one;
// entries written before Name existed fall back to the lowercased key.
func (g *GeometryStore) OpenKeys() []WindowKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	var keys []WindowKey
	for raw, st := range g.states {
		if !st.Open {
			continue
		}
		k, ok := parseWindowKey(raw)
		if !ok {
			continue
		}
		if st.Name != "" {
			k.Name = st.Name
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Save writes the store to disk.
func (g *GeometryStore) Save() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(g.states, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(g.dir, geometryFile), data, 0644)
}
