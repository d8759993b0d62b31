package evaluator

import (
	"context"
	"fmt"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// RequiredFields treats the keys of a fixture's expected block as the
// required field set; the declared values are irrelevant. Scoring is
// per-field across all fixtures: every required key must be present and
// non-empty in the corresponding output.
type RequiredFields struct{}

func (RequiredFields) Kind() config.Kind        { return config.KindRequiredFields }
func (RequiredFields) RequiredFields() []string { return nil }

func (RequiredFields) Evaluate(_ context.Context, _ *config.Config, _ config.Evaluator, set *fixture.Set) (Result, error) {
	total := 0
	ok := 0
	fails := make([]string, 0)

	for _, name := range set.Names {
		required := set.Fixtures[name].Expected
		if len(required) == 0 {
			continue
		}
		out := set.OutputObject(name)
		for _, field := range sortedMapKeys(required) {
			total++
			if emptyValue(fieldValue(out, field)) {
				fails = append(fails, fmt.Sprintf("%s: missing or empty field '%s'", name, field))
			} else {
				ok++
			}
		}
	}

	if total == 0 {
		total = 1
	}
	return Result{Score: float64(ok) / float64(total), Failures: fails}, nil
}

// emptyValue reports whether v is absent or empty: nil, empty string, empty
// array, or empty object.
func emptyValue(v any) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case string:
		return vv == ""
	case []any:
		return len(vv) == 0
	case map[string]any:
		return len(vv) == 0
	default:
		return false
	}
}
