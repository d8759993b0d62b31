package evaluator

import (
	"context"
	"fmt"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// Conversation validates the final message of a transcript against an
// expected field value, with an optional turn cap. An output with no valid
// messages list always counts as a failing item, even when its fixture
// declares no expected value. A turn-cap violation is reported and also
// blocks a hit regardless of the content match.
type Conversation struct{}

func (Conversation) Kind() config.Kind        { return config.KindConversation }
func (Conversation) RequiredFields() []string { return []string{"expected_final_field"} }

func (Conversation) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	field := ev.ExpectedFinalField
	considered := 0
	hits := 0
	fails := make([]string, 0)

	for _, name := range set.Names {
		msgs := messageList(set.Outputs[name])
		if len(msgs) == 0 {
			fails = append(fails, fmt.Sprintf("%s: missing messages", name))
			considered++
			continue
		}
		withinTurns := ev.MaxTurns == nil || len(msgs) <= *ev.MaxTurns
		if !withinTurns {
			fails = append(fails, fmt.Sprintf("%s: expected <= %d turns, got %d", name, *ev.MaxTurns, len(msgs)))
		}
		expVal, ok := set.Fixtures[name].Expected[field]
		if !ok || expVal == nil {
			continue
		}
		considered++
		gotVal := msgs[len(msgs)-1][field]
		if valueEqual(gotVal, expVal) && withinTurns {
			hits++
		} else if !valueEqual(gotVal, expVal) {
			fails = append(fails, fmt.Sprintf("%s: expected final %s=%v, got %v", name, field, expVal, gotVal))
		}
	}

	total := considered
	if total == 0 {
		total = 1
	}
	return Result{Score: float64(hits) / float64(total), Failures: fails}, nil
}

func messageList(out any) []map[string]any {
	obj, ok := out.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := obj["messages"].([]any)
	if !ok {
		return nil
	}
	msgs := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		mm, _ := m.(map[string]any)
		msgs = append(msgs, mm)
	}
	return msgs
}
