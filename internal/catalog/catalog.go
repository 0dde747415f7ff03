// Package catalog holds the open positions and the applicants that are
// matched against each other.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spigell/skill-matcher/internal/entity"
)

//go:embed default.yaml
var defaultCatalog []byte

// Position is an opening offered by a company.
type Position struct {
	Name   string   `json:"name" mapstructure:"name"`
	Role   string   `json:"role" mapstructure:"role"`
	Skills []string `json:"skills" mapstructure:"skills"`
}

// Applicant is a person looking for a position.
type Applicant struct {
	Name   string   `json:"name" mapstructure:"name"`
	Skills []string `json:"skills" mapstructure:"skills"`
}

type Catalog struct {
	Positions  []Position  `json:"positions" mapstructure:"positions"`
	Applicants []Applicant `json:"applicants" mapstructure:"applicants"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("parsing bundled catalog: %w", err)
	}

	return c, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %q: %w", path, err)
	}

	return c, nil
}

// LoadOrDefault loads path, or the bundled catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	return Load(path)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var c Catalog
	if err := mapstructure.Decode(v.AllSettings(), &c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks that names are present and unique across the catalog.
func (c *Catalog) Validate() error {
	return entity.ValidateSides(c.ApplicantEntities(), c.PositionEntities())
}

// PositionEntities returns the positions as side-B entities keyed by company
// name.
func (c *Catalog) PositionEntities() []entity.Entity {
	out := make([]entity.Entity, 0, len(c.Positions))
	for _, p := range c.Positions {
		out = append(out, entity.New(p.Name, p.Skills...))
	}

	return out
}

// ApplicantEntities returns the applicants as side-A entities.
func (c *Catalog) ApplicantEntities() []entity.Entity {
	out := make([]entity.Entity, 0, len(c.Applicants))
	for _, a := range c.Applicants {
		out = append(out, entity.New(a.Name, a.Skills...))
	}

	return out
}

func (c *Catalog) Position(name string) (Position, bool) {
	for _, p := range c.Positions {
		if p.Name == name {
			return p, true
		}
	}

	return Position{}, false
}

func (c *Catalog) Applicant(name string) (Applicant, bool) {
	for _, a := range c.Applicants {
		if a.Name == name {
			return a, true
		}
	}

	return Applicant{}, false
}

// Vocabulary lists every distinct skill required by a position, in the
// spelling of its first occurrence, sorted by normalized form.
func (c *Catalog) Vocabulary() []string {
	seen := make(map[string]string)
	for _, p := range c.Positions {
		for _, s := range p.Skills {
			key := entity.Normalize(s)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; !ok {
				seen[key] = strings.TrimSpace(s)
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}

	return out
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Positions:  make([]Position, len(c.Positions)),
		Applicants: make([]Applicant, len(c.Applicants)),
	}
	for i, p := range c.Positions {
		p.Skills = append([]string(nil), p.Skills...)
		out.Positions[i] = p
	}
	for i, a := range c.Applicants {
		a.Skills = append([]string(nil), a.Skills...)
		out.Applicants[i] = a
	}

	return out
}
