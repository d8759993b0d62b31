package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/textmetric"
)

// Overlap scores text similarity per item with BLEU or a ROUGE variant,
// pairing the fixture's expected field value (reference) with the output's
// (hypothesis). The result list is a per-item score ledger, one entry per
// scored pair regardless of score, not a true failure signal. Overall score
// is the mean; 1.0 when no pairs exist.
type Overlap struct{}

func (Overlap) Kind() config.Kind        { return config.KindRougeBleu }
func (Overlap) RequiredFields() []string { return []string{"expected_field"} }

func (Overlap) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	metric := strings.ToLower(ev.Metric)
	if metric == "" {
		metric = "bleu"
	}
	var score func(ref, hyp string) float64
	switch metric {
	case "bleu":
		score = textmetric.BLEU
	case "rouge1":
		score = func(ref, hyp string) float64 { return textmetric.RougeN(ref, hyp, 1) }
	case "rouge2":
		score = func(ref, hyp string) float64 { return textmetric.RougeN(ref, hyp, 2) }
	case "rougel":
		score = textmetric.RougeL
	default:
		return Result{}, fmt.Errorf("unsupported metric: %s", ev.Metric)
	}

	sum := 0.0
	count := 0
	ledger := make([]string, 0)
	for _, name := range set.Names {
		ref, ok := set.Fixtures[name].Expected[ev.ExpectedField]
		if !ok || ref == nil {
			continue
		}
		hyp := fieldValue(set.Outputs[name], ev.ExpectedField)
		if hyp == nil {
			continue
		}
		s := score(labelString(ref), labelString(hyp))
		sum += s
		count++
		ledger = append(ledger, fmt.Sprintf("%s: %s=%.4f", name, strings.ToUpper(metric), s))
	}

	if count == 0 {
		return Result{Score: 1.0}, nil
	}
	return Result{Score: sum / float64(count), Failures: ledger}, nil
}
