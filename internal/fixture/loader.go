package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fixture is one named test case: the input handed to the system under test,
// the ground-truth expectations, and budget metadata recorded for the run.
type Fixture struct {
	Input    any            `json:"input"`
	Expected map[string]any `json:"expected"`
	Meta     Meta           `json:"meta"`
}

type Meta struct {
	LatencyMS float64 `json:"latency_ms"`
	CostUSD   float64 `json:"cost_usd"`
}

// Set holds the evaluation set for one run: the name intersection of fixtures
// and outputs. Names lists the keys in sorted order so every evaluator walks
// items deterministically.
type Set struct {
	Names    []string
	Fixtures map[string]Fixture
	Outputs  map[string]any
}

// Load reads fixtures and outputs from two glob patterns and intersects them
// by base name. Names present on only one side are dropped from scoring.
func Load(fixtureGlob, outputGlob string) (*Set, error) {
	fixtures := make(map[string]Fixture)
	if err := loadGlob(fixtureGlob, func(name string, raw []byte) error {
		var fx Fixture
		if err := json.Unmarshal(raw, &fx); err != nil {
			return fmt.Errorf("fixture %s: %w", name, err)
		}
		fixtures[name] = fx
		return nil
	}); err != nil {
		return nil, err
	}

	outputs := make(map[string]any)
	if err := loadGlob(outputGlob, func(name string, raw []byte) error {
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}
		outputs[name] = out
		return nil
	}); err != nil {
		return nil, err
	}

	set := &Set{
		Fixtures: make(map[string]Fixture),
		Outputs:  make(map[string]any),
	}
	for name, fx := range fixtures {
		out, ok := outputs[name]
		if !ok {
			continue
		}
		set.Names = append(set.Names, name)
		set.Fixtures[name] = fx
		set.Outputs[name] = out
	}
	sort.Strings(set.Names)
	return set, nil
}

// OutputObject returns the output for name as an object, or nil when the
// output is not JSON-object shaped.
func (s *Set) OutputObject(name string) map[string]any {
	obj, _ := s.Outputs[name].(map[string]any)
	return obj
}

func loadGlob(pattern string, fn func(name string, raw []byte) error) error {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	sort.Strings(paths)
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if err := fn(name, raw); err != nil {
			return err
		}
	}
	return nil
}
