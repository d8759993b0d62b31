package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evalgate/evalgate/pkg/types"
)

// BuildMarkdown renders a run artifact as a markdown summary. Evaluator
// errors come first: they mean the run itself is untrustworthy, not merely
// imperfect.
func BuildMarkdown(r types.RunResult, maxFailures int) string {
	status := statusLine(r)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("### %s (%.2f overall)\n\n", status, r.Overall))

	if len(r.EvaluatorErrors) > 0 {
		b.WriteString("**⚠️ Evaluator Errors**\n")
		for _, e := range r.EvaluatorErrors {
			b.WriteString("- " + e + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("**Scores**\n")
	type delta struct {
		name  string
		value float64
	}
	deltas := make([]delta, 0, len(r.Scores))
	for _, item := range r.Scores {
		deltaStr := ""
		if item.Delta != nil {
			deltas = append(deltas, delta{name: item.Name, value: *item.Delta})
			deltaStr = fmt.Sprintf(" (%+.2f vs main)", *item.Delta)
		}
		b.WriteString(fmt.Sprintf("- %s: %.2f%s\n", item.Name, item.Score, deltaStr))
	}
	if len(deltas) > 0 {
		b.WriteString("\n**Baseline Deltas**\n")
		b.WriteString("| Metric | Δ vs baseline |\n")
		b.WriteString("| --- | --- |\n")
		for _, d := range deltas {
			b.WriteString(fmt.Sprintf("| %s | %+.2f |\n", d.name, d.value))
		}
	}
	if r.Latency != nil && r.Cost != nil {
		b.WriteString(fmt.Sprintf("- Latency/Cost: p95 %dms / $%.3f\n", int(*r.Latency), *r.Cost))
	}

	b.WriteString(fmt.Sprintf("\n**Failures (%d)**\n", len(r.Failures)))
	shown := r.Failures
	if len(shown) > maxFailures {
		shown = shown[:maxFailures]
	}
	for _, f := range shown {
		b.WriteString("- " + f + "\n")
	}
	if hidden := len(r.Failures) - maxFailures; hidden > 0 {
		b.WriteString(fmt.Sprintf("- … +%d more\n", hidden))
	}

	b.WriteString("\n**Gate**\n")
	b.WriteString(fmt.Sprintf("- min_overall_score: %v → %s\n", r.Gate.MinOverallScore, checkmark(r.Overall >= r.Gate.MinOverallScore)))
	b.WriteString(fmt.Sprintf("- allow_regression: %t → %s\n", r.Gate.AllowRegression, checkmark(r.RegressionOK)))
	b.WriteString(fmt.Sprintf("- evaluators_ok: → %s\n", checkmark(r.EvaluatorsOK)))

	for _, table := range r.Tables {
		if len(table.Headers) == 0 || len(table.Rows) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n**%s**\n", table.Title))
		b.WriteString("| " + strings.Join(table.Headers, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(table.Headers)) + "\n")
		for _, row := range table.Rows {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	for _, plot := range r.Plots {
		switch {
		case plot.Sparkline != "" && plot.URL != "":
			b.WriteString(fmt.Sprintf("\n[![%s](%s)](%s)\n", plot.Title, plot.Sparkline, plot.URL))
		case plot.URL != "":
			b.WriteString(fmt.Sprintf("\n![%s](%s)\n", plot.Title, plot.URL))
		case plot.Sparkline != "":
			b.WriteString(fmt.Sprintf("\n![%s](%s)\n", plot.Title, plot.Sparkline))
		}
	}

	return b.String()
}

func statusLine(r types.RunResult) string {
	if len(r.EvaluatorErrors) > 0 {
		if !r.Gate.Passed {
			return "❌ FAILED"
		}
		return "⚠️ RAN WITH ERRORS"
	}
	if r.Gate.Passed {
		return "✅ PASSED"
	}
	return "❌ FAILED"
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// WriteJSON writes a run artifact, creating parent directories as needed.
func WriteJSON(path string, r types.RunResult) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
