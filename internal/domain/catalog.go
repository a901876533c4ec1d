package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// Catalog is the fixed list of heroes the pre-warm sweep walks. It is built once at
// startup and never mutated afterwards.
type Catalog struct {
	Version     string   `json:"version"`
	LastUpdated string   `json:"lastUpdated"`
	Heroes      []string `json:"heroes"`

	byName map[string]struct{}
}

//go:embed data/heroes.json
var heroesJSON []byte

// LoadCatalog returns the built-in catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(heroesJSON, &c); err != nil {
		return nil, fmt.Errorf("failed to parse embedded hero catalog: %w", err)
	}
	c.index()
	return &c, nil
}

// NewCatalog builds a catalog from an explicit name list. Blank and duplicate names are dropped.
func NewCatalog(names []string) *Catalog {
	c := &Catalog{Heroes: make([]string, 0, len(names))}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c.Heroes = append(c.Heroes, name)
	}
	c.index()
	return c
}

func (c *Catalog) index() {
	c.byName = make(map[string]struct{}, len(c.Heroes))
	for _, name := range c.Heroes {
		c.byName[name] = struct{}{}
	}
}

// Names returns a copy of the hero names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Heroes))
	copy(out, c.Heroes)
	return out
}

func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Catalog) Len() int {
	return len(c.Heroes)
}
