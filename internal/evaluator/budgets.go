package evaluator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// Budgets scores latency and cost against the configured budgets. The score
// is aggregate-level: the mean of a p95-latency sub-score and a mean-cost
// sub-score, each linearly penalized for overshoot and clamped at 0. The
// failures list is separate item-level diagnostics for every fixture whose
// own latency or cost exceeds its budget; it does not feed the score.
type Budgets struct{}

func (Budgets) Kind() config.Kind        { return config.KindBudgets }
func (Budgets) RequiredFields() []string { return nil }

func (Budgets) Evaluate(_ context.Context, cfg *config.Config, _ config.Evaluator, set *fixture.Set) (Result, error) {
	latencies := make([]float64, 0, len(set.Names))
	totalCost := 0.0
	fails := make([]string, 0)

	for _, name := range set.Names {
		meta := set.Fixtures[name].Meta
		latencies = append(latencies, meta.LatencyMS)
		totalCost += meta.CostUSD
		if meta.LatencyMS > cfg.Budgets.P95LatencyMS {
			fails = append(fails, fmt.Sprintf("%s: latency %.0fms exceeds budget %.0fms", name, meta.LatencyMS, cfg.Budgets.P95LatencyMS))
		}
		if meta.CostUSD > cfg.Budgets.MaxCostUSDPerItem {
			fails = append(fails, fmt.Sprintf("%s: cost $%.4f exceeds budget $%.4f", name, meta.CostUSD, cfg.Budgets.MaxCostUSDPerItem))
		}
	}

	p95 := percentile95(latencies)
	avgCost := 0.0
	if len(set.Names) > 0 {
		avgCost = totalCost / float64(len(set.Names))
	}

	score := (budgetSubScore(p95, cfg.Budgets.P95LatencyMS) + budgetSubScore(avgCost, cfg.Budgets.MaxCostUSDPerItem)) / 2

	return Result{
		Score:    score,
		Failures: fails,
		Latency:  &p95,
		Cost:     &avgCost,
	}, nil
}

// percentile95 uses nearest-rank selection: sort ascending and take the
// element at ceil(0.95*n)-1, clamped into range.
func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// budgetSubScore is 1 - max(0, (actual-budget)/budget), floored at 0.
func budgetSubScore(actual, budget float64) float64 {
	if budget <= 0 {
		if actual > 0 {
			return 0.0
		}
		return 1.0
	}
	over := (actual - budget) / budget
	if over < 0 {
		over = 0
	}
	s := 1 - over
	if s < 0 {
		return 0.0
	}
	return s
}
