package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/promptcache"
)

func newJudge(t *testing.T, client *fakeClient) *Judge {
	t.Helper()
	return &Judge{Client: client, Cache: promptcache.Open(filepath.Join(t.TempDir(), "cache.json"))}
}

func judgeEvaluator(t *testing.T, template string) config.Evaluator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte(template), 0o644))
	t.Setenv("EVALGATE_TEST_JUDGE_KEY", "sk-test")
	return config.Evaluator{
		Name:         "quality",
		Model:        "gpt-4o-mini",
		PromptPath:   path,
		APIKeyEnvVar: "EVALGATE_TEST_JUDGE_KEY",
	}
}

func judgeSet() *fixture.Set {
	return newSet(
		map[string]fixture.Fixture{"a": {Input: "hi", Expected: map[string]any{"summary": "greet"}}},
		map[string]any{"a": map[string]any{"summary": "hello there"}},
	)
}

func TestJudgeAveragesItemScores(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"first":  "Score: 0.5",
		"second": "Score: 1.0",
	}}
	j := newJudge(t, client)
	ev := judgeEvaluator(t, "Rate {output}")

	set := newSet(
		map[string]fixture.Fixture{"first": {}, "second": {}},
		map[string]any{
			"first":  map[string]any{"id": "first"},
			"second": map[string]any{"id": "second"},
		},
	)

	res, err := j.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Score, 1e-9)
	assert.Equal(t, 2, client.calls)
}

func TestJudgeMissingAPIKeyIsConfigError(t *testing.T) {
	j := newJudge(t, &fakeClient{response: "Score: 1.0"})
	ev := judgeEvaluator(t, "Rate {output}")
	t.Setenv("EVALGATE_TEST_JUDGE_KEY", "")

	_, err := j.Evaluate(context.Background(), nil, ev, judgeSet())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "EVALGATE_TEST_JUDGE_KEY")
	assert.Equal(t, 0, j.Client.(*fakeClient).calls)
}

func TestJudgeProviderFailureScoresZero(t *testing.T) {
	j := newJudge(t, &fakeClient{err: errors.New("rate limited")})
	ev := judgeEvaluator(t, "Rate {output}")

	res, err := j.Evaluate(context.Background(), nil, ev, judgeSet())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, []string{"Evaluation failed: rate limited"}, res.Failures)
}

func TestJudgeCanceledContextIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := newJudge(t, &fakeClient{err: context.Canceled})
	ev := judgeEvaluator(t, "Rate {output}")

	_, err := j.Evaluate(ctx, nil, ev, judgeSet())
	require.ErrorContains(t, err, "judge call")
}

func TestJudgeUnparseableResponseIsError(t *testing.T) {
	j := newJudge(t, &fakeClient{response: "looks great to me"})
	ev := judgeEvaluator(t, "Rate {output}")

	_, err := j.Evaluate(context.Background(), nil, ev, judgeSet())
	require.ErrorContains(t, err, "no score found")
}

func TestJudgeServesFromCache(t *testing.T) {
	client := &fakeClient{err: errors.New("should not be called")}
	j := newJudge(t, client)
	ev := judgeEvaluator(t, "Rate {output}")

	prompt := `Rate {"summary":"hello there"}`
	require.NoError(t, j.Cache.Put(ev.Model, prompt, "Score: 0.9"))

	res, err := j.Evaluate(context.Background(), nil, ev, judgeSet())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
	assert.Equal(t, 0, client.calls)
}

func TestJudgePerTurnScoring(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"user: hi":         "Score: 0.5",
		"assistant: hello": "Score: 1.0",
	}}
	j := newJudge(t, client)
	ev := judgeEvaluator(t, "Rate this turn: {transcript}")
	ev.TranscriptField = "messages"
	ev.PerTurnScoring = true

	set := newSet(
		map[string]fixture.Fixture{"a": {}},
		map[string]any{"a": map[string]any{"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
			map[string]any{"role": "assistant", "content": "hello"},
		}}},
	)

	res, err := j.Evaluate(context.Background(), nil, ev, set)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Score, 1e-9)
	assert.Equal(t, []string{"a: turn 1 score=0.50", "a: turn 2 score=1.00"}, res.Failures)
}

func TestJudgeEmptySet(t *testing.T) {
	j := newJudge(t, &fakeClient{response: "Score: 1.0"})
	ev := judgeEvaluator(t, "Rate {output}")

	res, err := j.Evaluate(context.Background(), nil, ev, emptySet())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		response string
		want     float64
	}{
		{"Score: 0.85", 0.85},
		{"score: .5", 0.5},
		{"SCORE: 1", 1.0},
		{"The verdict is\nScore: 0.2 overall", 0.2},
		{"Score: 1.5", 1.0},
	}
	for _, tc := range cases {
		got, err := parseScore(tc.response)
		require.NoError(t, err, tc.response)
		assert.Equal(t, tc.want, got, tc.response)
	}

	_, err := parseScore("no numbers here")
	require.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	fx := fixture.Fixture{Input: "hi", Expected: map[string]any{"k": "v"}}
	out := map[string]any{"summary": "hello"}
	got := renderPrompt("in={input} exp={expected} out={output} t={transcript}", fx, out, "user: hi")
	assert.Equal(t, `in="hi" exp={"k":"v"} out={"summary":"hello"} t=user: hi`, got)
}
