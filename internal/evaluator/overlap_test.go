package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

func TestOverlapIdenticalTexts(t *testing.T) {
	set := newSet(
		map[string]fixture.Fixture{"a": {Expected: map[string]any{"summary": "the customer wants a refund for order 42"}}},
		map[string]any{"a": map[string]any{"summary": "the customer wants a refund for order 42"}},
	)
	ev := config.Evaluator{Name: "overlap", ExpectedField: "summary", Metric: "rouge1"}

	res, err := Overlap{}.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, []string{"a: ROUGE1=1.0000"}, res.Failures)
}

func TestOverlapDefaultsToBLEU(t *testing.T) {
	set := newSet(
		map[string]fixture.Fixture{"a": {Expected: map[string]any{"summary": "refund the order"}}},
		map[string]any{"a": map[string]any{"summary": "refund the order"}},
	)
	ev := config.Evaluator{Name: "overlap", ExpectedField: "summary"}

	res, err := Overlap{}.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "BLEU=")
}

func TestOverlapMeanAcrossItems(t *testing.T) {
	set := newSet(
		map[string]fixture.Fixture{
			"a": {Expected: map[string]any{"summary": "alpha beta gamma"}},
			"b": {Expected: map[string]any{"summary": "alpha beta gamma"}},
		},
		map[string]any{
			"a": map[string]any{"summary": "alpha beta gamma"},
			"b": map[string]any{"summary": "delta epsilon zeta"},
		},
	)
	ev := config.Evaluator{Name: "overlap", ExpectedField: "summary", Metric: "rougel"}

	res, err := Overlap{}.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Score, 1e-9)
	assert.Len(t, res.Failures, 2)
}

func TestOverlapNoPairsScoresPerfect(t *testing.T) {
	set := newSet(
		map[string]fixture.Fixture{"a": {}},
		map[string]any{"a": map[string]any{"summary": "unpaired"}},
	)
	ev := config.Evaluator{Name: "overlap", ExpectedField: "summary", Metric: "rouge2"}

	res, err := Overlap{}.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Empty(t, res.Failures)
}

func TestOverlapUnsupportedMetric(t *testing.T) {
	ev := config.Evaluator{Name: "overlap", ExpectedField: "summary", Metric: "meteor"}
	_, err := Overlap{}.Evaluate(context.Background(), nil, ev, emptySet())
	require.ErrorContains(t, err, "unsupported metric: meteor")
}
