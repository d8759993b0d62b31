package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

func TestEmbeddingMeanSimilarity(t *testing.T) {
	client := &fakeClient{embeds: map[string][]float64{
		"refund the customer": {1, 0},
		"issue a refund":      {1, 0},
		"close the ticket":    {0, 1},
		"escalate to a human": {1, 0},
	}}
	set := newSet(
		map[string]fixture.Fixture{
			"a": {Expected: map[string]any{"summary": "refund the customer"}},
			"b": {Expected: map[string]any{"summary": "close the ticket"}},
		},
		map[string]any{
			"a": map[string]any{"summary": "issue a refund"},
			"b": map[string]any{"summary": "escalate to a human"},
		},
	)
	ev := config.Evaluator{Name: "semantic", ExpectedField: "summary", Model: "text-embedding-3-small"}

	res, err := (&Embedding{Client: client}).Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.Score, 1e-9)
	assert.Equal(t, []string{"b: similarity 0.00 below threshold 0.80"}, res.Failures)
}

func TestEmbeddingCustomThreshold(t *testing.T) {
	threshold := 0.5
	client := &fakeClient{embeds: map[string][]float64{
		"x": {1, 1},
		"y": {1, 0},
	}}
	set := newSet(
		map[string]fixture.Fixture{"a": {Expected: map[string]any{"summary": "x"}}},
		map[string]any{"a": map[string]any{"summary": "y"}},
	)
	ev := config.Evaluator{Name: "semantic", ExpectedField: "summary", Model: "m", Threshold: &threshold}

	res, err := (&Embedding{Client: client}).Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)

	// cos([1,1],[1,0]) ≈ 0.707, above the lowered threshold.
	assert.InDelta(t, 0.7071, res.Score, 1e-3)
	assert.Empty(t, res.Failures)
}

func TestEmbeddingNoPairsScoresPerfect(t *testing.T) {
	set := newSet(
		map[string]fixture.Fixture{"a": {}},
		map[string]any{"a": map[string]any{}},
	)
	ev := config.Evaluator{Name: "semantic", ExpectedField: "summary", Model: "m"}

	res, err := (&Embedding{Client: &fakeClient{}}).Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestEmbeddingUnsetKeyEnvVarIsConfigError(t *testing.T) {
	t.Setenv("EVALGATE_TEST_EMBED_KEY", "")
	ev := config.Evaluator{Name: "semantic", ExpectedField: "summary", Model: "m", APIKeyEnvVar: "EVALGATE_TEST_EMBED_KEY"}

	_, err := (&Embedding{Client: &fakeClient{}}).Evaluate(context.Background(), nil, ev, emptySet())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "semantic", cerr.Evaluator)
	assert.Contains(t, cerr.Reason, "EVALGATE_TEST_EMBED_KEY")
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 1.0, cosine([]float64{1, 0}, []float64{2, 0}))
	assert.Equal(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, 0.0, cosine([]float64{1, 0}, []float64{1}))
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float64{0, 0}, []float64{1, 0}))
}
