package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/promptcache"
)

var scoreToken = regexp.MustCompile(`(?i)score:\s*([0-9]*\.?[0-9]+)`)

// Judge scores outputs with an LLM: it renders a prompt template per item,
// asks the provider for a "Score: X" verdict, and averages item scores.
// Responses are served from the cache when the same (model, prompt) pair was
// judged before, so warm re-runs are deterministic and free.
//
// A missing API key is a config error before any call. A failed provider
// call surfaces as score 0.0 with a single "Evaluation failed" entry, unless
// the run context is already done, which is a runtime error instead. A
// response without a parseable score is always a runtime error.
type Judge struct {
	Client llm.Client
	Cache  *promptcache.Store
}

func (*Judge) Kind() config.Kind { return config.KindLLM }

func (*Judge) RequiredFields() []string {
	return []string{"model", "prompt_path", "api_key_env_var"}
}

func (j *Judge) Evaluate(ctx context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	apiKey := os.Getenv(ev.APIKeyEnvVar)
	if apiKey == "" {
		return Result{}, &ConfigError{Evaluator: ev.Name, Reason: fmt.Sprintf("API key env var %s is not set", ev.APIKeyEnvVar)}
	}
	template, err := os.ReadFile(ev.PromptPath)
	if err != nil {
		return Result{}, fmt.Errorf("read prompt template: %w", err)
	}

	sum := 0.0
	count := 0
	details := make([]string, 0)

	for _, name := range set.Names {
		fx := set.Fixtures[name]
		out := set.Outputs[name]
		transcript := transcriptLines(out, ev.TranscriptField)

		if ev.PerTurnScoring && len(transcript) > 0 {
			turnSum := 0.0
			for i, turn := range transcript {
				prompt := renderPrompt(string(template), fx, out, turn)
				score, failure, err := j.judgeOne(ctx, ev, apiKey, prompt)
				if err != nil {
					return Result{}, err
				}
				if failure != "" {
					return Result{Score: 0.0, Failures: []string{failure}}, nil
				}
				turnSum += score
				details = append(details, fmt.Sprintf("%s: turn %d score=%.2f", name, i+1, score))
			}
			sum += turnSum / float64(len(transcript))
			count++
			continue
		}

		prompt := renderPrompt(string(template), fx, out, strings.Join(transcript, "\n"))
		score, failure, err := j.judgeOne(ctx, ev, apiKey, prompt)
		if err != nil {
			return Result{}, err
		}
		if failure != "" {
			return Result{Score: 0.0, Failures: []string{failure}}, nil
		}
		sum += score
		count++
	}

	if count == 0 {
		return Result{Score: 1.0}, nil
	}
	return Result{Score: sum / float64(count), Failures: details}, nil
}

// judgeOne resolves one rendered prompt to a score, cache first. The middle
// return value carries the non-fatal provider-failure message.
func (j *Judge) judgeOne(ctx context.Context, ev config.Evaluator, apiKey, prompt string) (float64, string, error) {
	response, cached := j.Cache.Get(ev.Model, prompt)
	if !cached {
		var err error
		response, err = j.Client.Call(ctx, llm.Request{
			APIKey:      apiKey,
			BaseURL:     ev.BaseURL,
			Model:       ev.Model,
			Prompt:      prompt,
			Temperature: ev.JudgeTemperature(),
			MaxTokens:   ev.JudgeMaxTokens(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", fmt.Errorf("judge call: %w", err)
			}
			return 0, fmt.Sprintf("Evaluation failed: %v", err), nil
		}
		if err := j.Cache.Put(ev.Model, prompt, response); err != nil {
			slog.Warn("judge cache write failed", "error", err)
		}
	}

	score, err := parseScore(response)
	if err != nil {
		return 0, "", err
	}
	return score, "", nil
}

func parseScore(response string) (float64, error) {
	m := scoreToken.FindStringSubmatch(response)
	if m == nil {
		return 0, fmt.Errorf("no score found in judge response")
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed score %q in judge response", m[1])
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// renderPrompt substitutes the named placeholders the templates support.
func renderPrompt(template string, fx fixture.Fixture, out any, transcript string) string {
	return strings.NewReplacer(
		"{input}", jsonString(fx.Input),
		"{expected}", jsonString(fx.Expected),
		"{output}", jsonString(out),
		"{transcript}", transcript,
	).Replace(template)
}

// transcriptLines renders a transcript field as "role: content" lines.
func transcriptLines(out any, field string) []string {
	if field == "" {
		return nil
	}
	obj, ok := out.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := obj[field].([]any)
	if !ok {
		return nil
	}
	lines := make([]string, 0, len(raw))
	for _, turn := range raw {
		m, _ := turn.(map[string]any)
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		lines = append(lines, role+": "+content)
	}
	return lines
}

func jsonString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
