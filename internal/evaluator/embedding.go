package evaluator

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/llm"
)

// Embedding scores the cosine similarity between the expected and generated
// text of each item using a named embedding model. Similarity below the
// configured threshold records a failure; the overall score is the mean
// similarity, 1.0 when no comparable pairs exist.
type Embedding struct {
	Client llm.Client
}

func (*Embedding) Kind() config.Kind        { return config.KindEmbedding }
func (*Embedding) RequiredFields() []string { return []string{"expected_field", "model"} }

func (e *Embedding) Evaluate(ctx context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	apiKey, err := resolveAPIKey(ev)
	if err != nil {
		return Result{}, err
	}
	threshold := ev.SimilarityThreshold()

	sum := 0.0
	count := 0
	fails := make([]string, 0)
	for _, name := range set.Names {
		expText, ok := stringField(set.Fixtures[name].Expected, ev.ExpectedField)
		if !ok {
			continue
		}
		outText, ok := stringField(set.OutputObject(name), ev.ExpectedField)
		if !ok {
			continue
		}
		expVec, err := e.embed(ctx, ev, apiKey, expText)
		if err != nil {
			return Result{}, err
		}
		outVec, err := e.embed(ctx, ev, apiKey, outText)
		if err != nil {
			return Result{}, err
		}
		sim := cosine(expVec, outVec)
		sum += sim
		count++
		if sim < threshold {
			fails = append(fails, fmt.Sprintf("%s: similarity %.2f below threshold %.2f", name, sim, threshold))
		}
	}

	if count == 0 {
		return Result{Score: 1.0}, nil
	}
	return Result{Score: sum / float64(count), Failures: fails}, nil
}

func (e *Embedding) embed(ctx context.Context, ev config.Evaluator, apiKey, text string) ([]float64, error) {
	vec, err := e.Client.Embed(ctx, llm.EmbedRequest{
		APIKey:  apiKey,
		BaseURL: ev.BaseURL,
		Model:   ev.Model,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", ev.Model, err)
	}
	return vec, nil
}

// resolveAPIKey reads the evaluator's key env var, falling back to
// OPENAI_API_KEY when none is configured. A configured-but-unset var is a
// config error raised before any call.
func resolveAPIKey(ev config.Evaluator) (string, error) {
	if ev.APIKeyEnvVar != "" {
		key := os.Getenv(ev.APIKeyEnvVar)
		if key == "" {
			return "", &ConfigError{Evaluator: ev.Name, Reason: fmt.Sprintf("API key env var %s is not set", ev.APIKeyEnvVar)}
		}
		return key, nil
	}
	return os.Getenv("OPENAI_API_KEY"), nil
}

func stringField(obj map[string]any, field string) (string, bool) {
	if obj == nil {
		return "", false
	}
	v, ok := obj[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return labelString(v), true
	}
	return s, true
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	dot, na, nb := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
