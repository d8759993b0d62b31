package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// Regex checks outputs against per-fixture patterns using substring search
// (not anchored full-string match). Patterns resolve from an optional JSON
// pattern file and an optional fixture-declared field; the fixture-declared
// pattern wins when both exist. Fixtures with no resolved pattern are
// skipped.
type Regex struct{}

func (Regex) Kind() config.Kind        { return config.KindRegex }
func (Regex) RequiredFields() []string { return nil }

func (Regex) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	patterns := make(map[string]string)
	if ev.PatternPath != "" {
		raw, err := os.ReadFile(ev.PatternPath)
		if err != nil {
			return Result{}, fmt.Errorf("read pattern file: %w", err)
		}
		if err := json.Unmarshal(raw, &patterns); err != nil {
			return Result{}, fmt.Errorf("parse pattern file %s: %w", ev.PatternPath, err)
		}
	}
	if ev.PatternField != "" {
		for _, name := range set.Names {
			if v, ok := set.Fixtures[name].Expected[ev.PatternField]; ok {
				if s, ok := v.(string); ok && s != "" {
					patterns[name] = s
				}
			}
		}
	}

	considered := 0
	hits := 0
	fails := make([]string, 0)
	for _, name := range set.Names {
		pattern, ok := patterns[name]
		if !ok {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Result{}, fmt.Errorf("pattern for %s: %w", name, err)
		}
		considered++
		if re.MatchString(comparisonText(set.Outputs[name])) {
			hits++
		} else {
			fails = append(fails, fmt.Sprintf("%s: pattern %q not found in output", name, pattern))
		}
	}

	total := considered
	if total == 0 {
		total = 1
	}
	return Result{Score: float64(hits) / float64(total), Failures: fails}, nil
}

// comparisonText extracts the text an output is matched against: strings
// verbatim, objects via their "output" field, anything else stringified.
func comparisonText(out any) string {
	switch v := out.(type) {
	case string:
		return v
	case map[string]any:
		s, _ := v["output"].(string)
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}
