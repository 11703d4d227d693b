package scenario

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the read-only set of personas and scenarios, kept in file order.
type Catalog struct {
	personas    []Persona
	scenarios   []Scenario
	personaIdx  map[string]int
	scenarioIdx map[string]int
}

type catalogFile struct {
	Personas  []Persona  `yaml:"personas"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load decodes a YAML catalog and validates it. Unknown fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(f.Personas, f.Scenarios)
}

// New builds a catalog from already-decoded values and validates it.
func New(personas []Persona, scenarios []Scenario) (*Catalog, error) {
	c := &Catalog{
		personas:    personas,
		scenarios:   scenarios,
		personaIdx:  make(map[string]int, len(personas)),
		scenarioIdx: make(map[string]int, len(scenarios)),
	}

	var errs []error
	for i, p := range personas {
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, fmt.Errorf("persona %d: id is empty", i))
			continue
		}
		if _, dup := c.personaIdx[p.ID]; dup {
			errs = append(errs, fmt.Errorf("persona %s: duplicate id", p.ID))
			continue
		}
		c.personaIdx[p.ID] = i
	}
	for i := range scenarios {
		sc := &scenarios[i]
		if err := sc.Validate(); err != nil {
			errs = append(errs, err)
		}
		if sc.ID == "" {
			continue
		}
		if _, dup := c.scenarioIdx[sc.ID]; dup {
			errs = append(errs, fmt.Errorf("scenario %s: duplicate id", sc.ID))
			continue
		}
		c.scenarioIdx[sc.ID] = i
		if sc.Persona != "" {
			if _, ok := c.personaIdx[sc.Persona]; !ok {
				errs = append(errs, fmt.Errorf("scenario %s: unknown persona %q", sc.ID, sc.Persona))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// Personas returns all personas in catalog order.
func (c *Catalog) Personas() []Persona {
	return append([]Persona(nil), c.personas...)
}

// Scenarios returns all scenarios in catalog order.
func (c *Catalog) Scenarios() []*Scenario {
	out := make([]*Scenario, len(c.scenarios))
	for i := range c.scenarios {
		out[i] = &c.scenarios[i]
	}
	return out
}

// Persona looks up a persona by id.
func (c *Catalog) Persona(id string) (*Persona, error) {
	i, ok := c.personaIdx[id]
	if !ok {
		return nil, fmt.Errorf("persona %q: %w", id, ErrNotFound)
	}
	return &c.personas[i], nil
}

// Scenario looks up a scenario by id.
func (c *Catalog) Scenario(id string) (*Scenario, error) {
	i, ok := c.scenarioIdx[id]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", id, ErrNotFound)
	}
	return &c.scenarios[i], nil
}

// ScenariosFor returns the scenarios targeting the given persona.
func (c *Catalog) ScenariosFor(personaID string) []*Scenario {
	var out []*Scenario
	for i := range c.scenarios {
		if c.scenarios[i].Persona == personaID {
			out = append(out, &c.scenarios[i])
		}
	}
	return out
}
