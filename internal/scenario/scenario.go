// Package scenario holds the static personas and scripted scam
// conversations that the playback engine steps through.
package scenario

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by catalog lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// Role identifies who speaks a turn.
type Role string

const (
	RoleScammer Role = "scammer"
	RolePersona Role = "persona"
	RoleSystem  Role = "system"
)

// Valid reports whether r is one of the known speaker roles.
func (r Role) Valid() bool {
	switch r {
	case RoleScammer, RolePersona, RoleSystem:
		return true
	}
	return false
}

// Turn is one scripted line of dialogue.
type Turn struct {
	Role Role   `yaml:"role" json:"role"`
	Text string `yaml:"text" json:"text"`
}

// IOC is a piece of scam-identifying evidence. It becomes visible once the
// turn at RevealAt has been delivered.
type IOC struct {
	Category string `yaml:"category" json:"category"`
	Value    string `yaml:"value" json:"value"`
	RevealAt int    `yaml:"reveal_at" json:"reveal_at"`
}

// Scenario is a named scripted conversation and the IOCs it reveals.
type Scenario struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
	Persona     string `yaml:"persona" json:"persona"`
	Turns       []Turn `yaml:"turns" json:"turns"`
	IOCs        []IOC  `yaml:"iocs" json:"iocs"`
}

// Trait is a named 1..10 rating on a persona profile.
type Trait struct {
	Name  string `yaml:"name" json:"name"`
	Score int    `yaml:"score" json:"score"`
}

// Persona is a fictional target profile shown in the carousel.
type Persona struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Age             int      `yaml:"age" json:"age"`
	Location        string   `yaml:"location" json:"location"`
	Occupation      string   `yaml:"occupation" json:"occupation"`
	Backstory       string   `yaml:"backstory" json:"backstory"`
	Traits          []Trait  `yaml:"traits" json:"traits"`
	Vulnerabilities []string `yaml:"vulnerabilities" json:"vulnerabilities"`
}

// IOCsAt returns the IOCs that reveal after the turn at index.
func (s *Scenario) IOCsAt(index int) []IOC {
	var out []IOC
	for _, ioc := range s.IOCs {
		if ioc.RevealAt == index {
			out = append(out, ioc)
		}
	}
	return out
}

// Validate checks the scenario on its own. Every problem found is reported.
func (s *Scenario) Validate() error {
	var errs []error
	label := s.ID
	if strings.TrimSpace(label) == "" {
		label = "<unnamed>"
		errs = append(errs, errors.New("scenario id is empty"))
	}
	if len(s.Turns) == 0 {
		errs = append(errs, fmt.Errorf("scenario %s: no turns", label))
	}
	for i, t := range s.Turns {
		if !t.Role.Valid() {
			errs = append(errs, fmt.Errorf("scenario %s: turn %d: unknown role %q", label, i, t.Role))
		}
		if strings.TrimSpace(t.Text) == "" {
			errs = append(errs, fmt.Errorf("scenario %s: turn %d: empty text", label, i))
		}
	}
	for i, ioc := range s.IOCs {
		if strings.TrimSpace(ioc.Category) == "" || strings.TrimSpace(ioc.Value) == "" {
			errs = append(errs, fmt.Errorf("scenario %s: ioc %d: category and value are required", label, i))
		}
		if ioc.RevealAt < 0 || ioc.RevealAt >= len(s.Turns) {
			errs = append(errs, fmt.Errorf("scenario %s: ioc %d (%s): reveal index %d outside [0, %d]",
				label, i, ioc.Category, ioc.RevealAt, len(s.Turns)-1))
		}
	}
	return errors.Join(errs...)
}
