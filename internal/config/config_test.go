package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
budgets:
  p95_latency_ms: 100
  max_cost_usd_per_item: 0.15
fixtures:
  path: eval/fixtures/*.json
outputs:
  path: outputs/*.json
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Gate.MinOverallScore)
	assert.False(t, cfg.Gate.AllowRegression)
	assert.Equal(t, ".evalgate/results.json", cfg.Report.ArtifactPath)
	assert.True(t, cfg.Report.PRComment)
	assert.Equal(t, "origin/main", cfg.Baseline.Ref)
	assert.Equal(t, "local_only", cfg.Telemetry.Mode)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
evaluators:
  - name: format-check
    type: schema
    weight: 0.4
    schema_path: eval/schemas/item.json
  - name: category-accuracy
    type: category
    weight: 0.6
    expected_field: category
gate:
  min_overall_score: 0.85
  allow_regression: true
baseline:
  ref: origin/develop
`))
	require.NoError(t, err)

	require.Len(t, cfg.Evaluators, 2)
	assert.Equal(t, KindSchema, cfg.Evaluators[0].Type)
	assert.Equal(t, 0.4, cfg.Evaluators[0].WeightValue())
	assert.Equal(t, "category", cfg.Evaluators[1].ExpectedField)
	assert.Equal(t, 0.85, cfg.Gate.MinOverallScore)
	assert.True(t, cfg.Gate.AllowRegression)
	assert.Equal(t, "origin/develop", cfg.Baseline.Ref)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("budgets: ["))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing latency budget", "fixtures: {path: a}\noutputs: {path: b}\nbudgets: {max_cost_usd_per_item: 0.1}"},
		{"negative cost budget", "fixtures: {path: a}\noutputs: {path: b}\nbudgets: {p95_latency_ms: 100, max_cost_usd_per_item: -1}"},
		{"missing fixtures path", "outputs: {path: b}\nbudgets: {p95_latency_ms: 100}"},
		{"missing outputs path", "fixtures: {path: a}\nbudgets: {p95_latency_ms: 100}"},
		{"unnamed evaluator", minimalYAML + "evaluators:\n  - type: schema"},
		{"unknown evaluator type", minimalYAML + "evaluators:\n  - name: x\n    type: vibes"},
		{"weight above one", minimalYAML + "evaluators:\n  - name: x\n    type: schema\n    weight: 1.5"},
		{"negative weight", minimalYAML + "evaluators:\n  - name: x\n    type: schema\n    weight: -0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestExplicitZeroWeightIsPreserved(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
evaluators:
  - name: advisory
    type: schema
    weight: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Evaluators[0].WeightValue())
}

func TestEvaluatorDefaults(t *testing.T) {
	ev := Evaluator{}
	assert.True(t, ev.IsEnabled())
	assert.Equal(t, 1.0, ev.WeightValue())
	assert.Equal(t, 0.8, ev.SimilarityThreshold())
	assert.Equal(t, float32(0.1), ev.JudgeTemperature())
	assert.Equal(t, 1000, ev.JudgeMaxTokens())

	off := false
	ev.Enabled = &off
	assert.False(t, ev.IsEnabled())
}

func TestKindsCoversEveryConstant(t *testing.T) {
	assert.Len(t, Kinds(), 12)
	assert.Contains(t, Kinds(), KindToolUsage)
	assert.Contains(t, Kinds(), KindConversation)
}
