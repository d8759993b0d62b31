package evaluator

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/pkg/types"
)

// Category scores exact-match accuracy for a single expected field. Items
// whose fixture declares no ground truth are skipped; when nothing declares
// ground truth the score is 0.0 (no signal means fail for this kind).
type Category struct{}

func (Category) Kind() config.Kind        { return config.KindCategory }
func (Category) RequiredFields() []string { return []string{"expected_field"} }

func (Category) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	field := ev.ExpectedField
	considered := 0
	hits := 0
	fails := make([]string, 0)

	for _, name := range set.Names {
		expVal, ok := set.Fixtures[name].Expected[field]
		if !ok || expVal == nil {
			continue
		}
		considered++
		gotVal := fieldValue(set.Outputs[name], field)
		if valueEqual(expVal, gotVal) {
			hits++
		} else {
			fails = append(fails, fmt.Sprintf("%s: expected %s=%v, got %v", name, field, expVal, gotVal))
		}
	}

	total := considered
	if total == 0 {
		total = 1
	}
	return Result{
		Score:    float64(hits) / float64(total),
		Failures: fails,
		Table:    confusionTable(ev, set, field),
	}, nil
}

// confusionTable builds the expected-vs-predicted count table emitted as a
// report payload alongside the accuracy score.
func confusionTable(ev config.Evaluator, set *fixture.Set, field string) *types.Table {
	matrix := make(map[string]map[string]int)
	labelSet := make(map[string]struct{})
	for _, name := range set.Names {
		expVal, ok := set.Fixtures[name].Expected[field]
		if !ok || expVal == nil {
			continue
		}
		expLabel := labelString(expVal)
		gotLabel := labelString(fieldValue(set.Outputs[name], field))
		labelSet[expLabel] = struct{}{}
		labelSet[gotLabel] = struct{}{}
		if matrix[expLabel] == nil {
			matrix[expLabel] = make(map[string]int)
		}
		matrix[expLabel][gotLabel]++
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	headers := append([]string{`exp\pred`}, labels...)
	rows := make([][]string, 0, len(labels))
	for _, exp := range labels {
		row := []string{exp}
		for _, pred := range labels {
			row = append(row, strconv.Itoa(matrix[exp][pred]))
		}
		rows = append(rows, row)
	}
	return &types.Table{
		Title:   fmt.Sprintf("Confusion Matrix (%s)", ev.Name),
		Headers: headers,
		Rows:    rows,
	}
}

func fieldValue(output any, field string) any {
	obj, _ := output.(map[string]any)
	if obj == nil {
		return nil
	}
	return obj[field]
}

func labelString(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}
