package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgate/evalgate/pkg/types"
)

func ptr(f float64) *float64 { return &f }

func passingResult() types.RunResult {
	delta := 0.03
	return types.RunResult{
		Overall: 0.94,
		Scores: []types.ScoreItem{
			{Name: "format", Score: 1.0},
			{Name: "category", Score: 0.88, Delta: &delta},
		},
		Failures:     []string{"cx_003: expected category=billing, got general"},
		Latency:      ptr(420),
		Cost:         ptr(0.012),
		Gate:         types.Gate{MinOverallScore: 0.9, Passed: true},
		RegressionOK: true,
		EvaluatorsOK: true,
	}
}

func TestBuildMarkdownPassing(t *testing.T) {
	md := BuildMarkdown(passingResult(), 20)

	assert.Contains(t, md, "### ✅ PASSED (0.94 overall)")
	assert.Contains(t, md, "- format: 1.00\n")
	assert.Contains(t, md, "- category: 0.88 (+0.03 vs main)\n")
	assert.Contains(t, md, "**Baseline Deltas**")
	assert.Contains(t, md, "| category | +0.03 |")
	assert.Contains(t, md, "- Latency/Cost: p95 420ms / $0.012\n")
	assert.Contains(t, md, "**Failures (1)**")
	assert.Contains(t, md, "- min_overall_score: 0.9 → ✅")
	assert.Contains(t, md, "- evaluators_ok: → ✅")
	assert.NotContains(t, md, "Evaluator Errors")
}

func TestBuildMarkdownFailing(t *testing.T) {
	r := passingResult()
	r.Overall = 0.42
	r.Gate.Passed = false

	md := BuildMarkdown(r, 20)
	assert.Contains(t, md, "### ❌ FAILED (0.42 overall)")
	assert.Contains(t, md, "- min_overall_score: 0.9 → ❌")
}

func TestBuildMarkdownEvaluatorErrors(t *testing.T) {
	r := passingResult()
	r.EvaluatorErrors = []string{"Evaluator 'quality' failed to run: boom"}
	r.EvaluatorsOK = false

	md := BuildMarkdown(r, 20)
	assert.Contains(t, md, "### ⚠️ RAN WITH ERRORS")
	assert.Contains(t, md, "**⚠️ Evaluator Errors**")
	assert.Contains(t, md, "- Evaluator 'quality' failed to run: boom")
	assert.Contains(t, md, "- evaluators_ok: → ❌")
}

func TestBuildMarkdownTruncatesFailures(t *testing.T) {
	r := passingResult()
	r.Failures = []string{"f1", "f2", "f3", "f4", "f5"}

	md := BuildMarkdown(r, 3)
	assert.Contains(t, md, "**Failures (5)**")
	assert.Contains(t, md, "- f3\n")
	assert.NotContains(t, md, "- f4\n")
	assert.Contains(t, md, "- … +2 more")
}

func TestBuildMarkdownTablesAndPlots(t *testing.T) {
	r := passingResult()
	r.Tables = []types.Table{{
		Title:   "Confusion Matrix (category)",
		Headers: []string{`exp\pred`, "billing"},
		Rows:    [][]string{{"billing", "3"}},
	}}
	r.Plots = []types.Plot{{Title: "Trend", URL: "https://example.com/t.png"}}

	md := BuildMarkdown(r, 20)
	assert.Contains(t, md, "**Confusion Matrix (category)**")
	assert.Contains(t, md, `| exp\pred | billing |`)
	assert.Contains(t, md, "| billing | 3 |")
	assert.Contains(t, md, "![Trend](https://example.com/t.png)")
}

func TestWriteJSONCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".evalgate", "results.json")
	require.NoError(t, WriteJSON(path, passingResult()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var back types.RunResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 0.94, back.Overall)
	require.Len(t, back.Scores, 2)
	assert.Equal(t, "format", back.Scores[0].Name)
}
