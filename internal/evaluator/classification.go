package evaluator

import (
	"context"
	"fmt"
	"sort"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/pkg/types"
)

// noneLabel is the confusion-matrix bucket for multi-label predictions with
// no matching expected label (and vice versa).
const noneLabel = "__none__"

// Classification computes precision/recall/F1 over a label field, either
// single-label (exact match) or multi-label (set comparison). F1 is the
// scalar score; the full metrics ride along as structured extras. With no
// outputs at all the metrics are a perfect 1.0 across the board, the
// opposite default from the category evaluator.
type Classification struct{}

func (Classification) Kind() config.Kind        { return config.KindClassification }
func (Classification) RequiredFields() []string { return []string{"expected_field"} }

func (Classification) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	if len(set.Names) == 0 {
		return Result{
			Score: 1.0,
			Metrics: &types.Metrics{
				Precision: 1.0, Recall: 1.0, F1: 1.0,
				ConfusionMatrix: map[string]map[string]int{},
			},
		}, nil
	}

	confusion := make(map[string]map[string]int)
	bump := func(exp, pred string) {
		if confusion[exp] == nil {
			confusion[exp] = make(map[string]int)
		}
		confusion[exp][pred]++
	}

	fails := make([]string, 0)
	tp, fp, fn := 0, 0, 0

	for _, name := range set.Names {
		expVal, ok := set.Fixtures[name].Expected[ev.ExpectedField]
		if !ok || expVal == nil {
			continue
		}
		predVal := fieldValue(set.Outputs[name], ev.ExpectedField)
		if predVal == nil {
			continue
		}

		if ev.MultiLabel {
			expSet := labelSet(expVal)
			predSet := labelSet(predVal)
			for _, lbl := range sortedKeys(expSet) {
				if _, ok := predSet[lbl]; ok {
					bump(lbl, lbl)
					tp++
				} else {
					bump(lbl, noneLabel)
					fn++
				}
			}
			for _, lbl := range sortedKeys(predSet) {
				if _, ok := expSet[lbl]; !ok {
					bump(noneLabel, lbl)
					fp++
				}
			}
			if !sameSet(expSet, predSet) {
				fails = append(fails, fmt.Sprintf("%s: expected %v, got %v", name, sortedKeys(expSet), sortedKeys(predSet)))
			}
			continue
		}

		expLabel := labelString(expVal)
		predLabel := labelString(predVal)
		bump(expLabel, predLabel)
		if expLabel == predLabel {
			tp++
		} else {
			// A wrong single-label prediction costs precision and recall
			// symmetrically.
			fp++
			fn++
			fails = append(fails, fmt.Sprintf("%s: expected %v, got %v", name, expVal, predVal))
		}
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return Result{
		Score:    f1,
		Failures: fails,
		Metrics: &types.Metrics{
			Precision:       precision,
			Recall:          recall,
			F1:              f1,
			ConfusionMatrix: confusion,
		},
	}, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}

func labelSet(v any) map[string]struct{} {
	out := make(map[string]struct{})
	switch vv := v.(type) {
	case []any:
		for _, item := range vv {
			out[labelString(item)] = struct{}{}
		}
	case []string:
		for _, item := range vv {
			out[item] = struct{}{}
		}
	default:
		out[labelString(v)] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
