package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Personas()) == 0 {
		t.Fatal("expected at least one persona")
	}
	for _, p := range c.Personas() {
		if len(c.ScenariosFor(p.ID)) == 0 {
			t.Fatalf("persona %q has no scenarios", p.ID)
		}
	}

	sc, err := c.Scenario("tech-support")
	if err != nil {
		t.Fatalf("Scenario(tech-support): %v", err)
	}
	if len(sc.Turns) != 8 {
		t.Fatalf("tech-support turns = %d, want 8", len(sc.Turns))
	}
	if got := len(sc.IOCsAt(6)); got != 2 {
		t.Fatalf("IOCsAt(6) = %d, want 2", got)
	}
}

func TestLookupUnknownIDs(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if _, err := c.Scenario("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Scenario(nope) err = %v, want ErrNotFound", err)
	}
	if _, err := c.Persona("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Persona(nope) err = %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsRevealIndexOutOfRange(t *testing.T) {
	const doc = `
scenarios:
  - id: short
    title: Short
    turns:
      - {role: scammer, text: hello}
      - {role: persona, text: hi}
    iocs:
      - {category: phone, value: "+910000000000", reveal_at: 2}
`
	_, err := Load(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "scenario short: ioc 0 (phone): reveal index 2 outside [0, 1]") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	const doc = `
personas:
  - {id: a, name: A}
  - {id: a, name: A again}
scenarios:
  - id: one
    persona: ghost
    turns:
      - {role: narrator, text: hello}
      - {role: persona, text: "  "}
    iocs:
      - {category: "", value: x, reveal_at: -1}
  - id: one
    turns:
      - {role: system, text: ok}
`
	_, err := Load(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"persona a: duplicate id",
		`turn 0: unknown role "narrator"`,
		"turn 1: empty text",
		"ioc 0: category and value are required",
		"reveal index -1",
		`unknown persona "ghost"`,
		"scenario one: duplicate id",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	const doc = `
scenarios:
  - id: x
    delay: 3
    turns:
      - {role: scammer, text: hello}
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "scenarios:\n  - id: solo\n    turns:\n      - {role: system, text: hi}\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := len(c.Scenarios()); got != 1 {
		t.Fatalf("scenarios = %d, want 1", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v, want ErrNotExist", err)
	}
}
