package types

// RunResult is the serialized record of one evaluation run. It is the
// contract consumed by the report renderer and the baseline differ, so field
// order and shapes must stay stable across runs.
type RunResult struct {
	Overall         float64     `json:"overall"`
	Scores          []ScoreItem `json:"scores"`
	Failures        []string    `json:"failures"`
	EvaluatorErrors []string    `json:"evaluator_errors"`
	Latency         *float64    `json:"latency"`
	Cost            *float64    `json:"cost"`
	Gate            Gate        `json:"gate"`
	RegressionOK    bool        `json:"regression_ok"`
	EvaluatorsOK    bool        `json:"evaluators_ok"`
	ArtifactPath    string      `json:"artifact_path,omitempty"`
	Tables          []Table     `json:"tables"`
	Plots           []Plot      `json:"plots"`
}

type ScoreItem struct {
	Name    string   `json:"name"`
	Score   float64  `json:"score"`
	Delta   *float64 `json:"delta"`
	Metrics *Metrics `json:"metrics,omitempty"`
}

type Gate struct {
	MinOverallScore float64 `json:"min_overall_score"`
	AllowRegression bool    `json:"allow_regression"`
	Passed          bool    `json:"passed"`
}

// Metrics carries the structured output of the classification evaluator.
type Metrics struct {
	Precision       float64                   `json:"precision"`
	Recall          float64                   `json:"recall"`
	F1              float64                   `json:"f1"`
	ConfusionMatrix map[string]map[string]int `json:"confusion_matrix"`
}

// Table is an optional tabular payload rendered into the markdown report,
// e.g. a confusion matrix.
type Table struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Plot is an optional linked image payload for the report.
type Plot struct {
	Title     string `json:"title"`
	Sparkline string `json:"sparkline,omitempty"`
	URL       string `json:"url,omitempty"`
}
