package evaluator

import (
	"context"
	"fmt"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// ToolUsage compares each output's logged tool-call sequence against the
// expected ordered sequence from config. A length mismatch is a single
// immediate failure; otherwise comparison is element-wise and fail-fast: the
// first name or argument mismatch ends the item with one failure. Only items
// with zero mismatches count as hits.
type ToolUsage struct{}

func (ToolUsage) Kind() config.Kind        { return config.KindToolUsage }
func (ToolUsage) RequiredFields() []string { return []string{"expected_tool_calls"} }

func (ToolUsage) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	considered := 0
	hits := 0
	fails := make([]string, 0)

	for _, name := range sortedMapKeys(ev.ExpectedToolCalls) {
		expCalls := ev.ExpectedToolCalls[name]
		calls := loggedCalls(set.Outputs[name])
		considered++
		if len(calls) != len(expCalls) {
			fails = append(fails, fmt.Sprintf("%s: expected %d calls but got %d", name, len(expCalls), len(calls)))
			continue
		}
		mismatch := false
		for i, exp := range expCalls {
			got := calls[i]
			gotName, _ := got["name"].(string)
			if exp.Name != gotName {
				fails = append(fails, fmt.Sprintf("%s[%d]: expected tool %q got %q", name, i, exp.Name, gotName))
				mismatch = true
				break
			}
			if canonicalJSON(exp.Args) != canonicalJSON(got["args"]) {
				fails = append(fails, fmt.Sprintf("%s[%d]: expected args %v got %v", name, i, exp.Args, got["args"]))
				mismatch = true
				break
			}
		}
		if !mismatch {
			hits++
		}
	}

	total := considered
	if total == 0 {
		total = 1
	}
	return Result{Score: float64(hits) / float64(total), Failures: fails}, nil
}

func loggedCalls(out any) []map[string]any {
	obj, ok := out.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := obj["tool_calls"].([]any)
	if !ok {
		return nil
	}
	calls := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		m, _ := c.(map[string]any)
		calls = append(calls, m)
	}
	return calls
}
