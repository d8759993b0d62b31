package config

import (
	"fmt"
	"os"

	goyaml "gopkg.in/yaml.v3"
)

// Kind is the closed set of evaluator kinds. Config validation rejects
// anything outside this set; dispatch tolerates a kind with no registered
// implementation by skipping it with a warning.
type Kind string

const (
	KindSchema         Kind = "schema"
	KindCategory       Kind = "category"
	KindBudgets        Kind = "budgets"
	KindLLM            Kind = "llm"
	KindEmbedding      Kind = "embedding"
	KindRegex          Kind = "regex"
	KindRougeBleu      Kind = "rouge_bleu"
	KindRequiredFields Kind = "required_fields"
	KindClassification Kind = "classification"
	KindWorkflow       Kind = "workflow"
	KindToolUsage      Kind = "tool_usage"
	KindConversation   Kind = "conversation"
)

// Kinds lists every valid evaluator kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindSchema, KindCategory, KindBudgets, KindLLM, KindEmbedding,
		KindRegex, KindRougeBleu, KindRequiredFields, KindClassification,
		KindWorkflow, KindToolUsage, KindConversation,
	}
}

type Budgets struct {
	P95LatencyMS      float64 `yaml:"p95_latency_ms"`
	MaxCostUSDPerItem float64 `yaml:"max_cost_usd_per_item"`
}

type Fixtures struct {
	Path string `yaml:"path"`
}

type Outputs struct {
	Path string `yaml:"path"`
}

// ToolCall is one expected entry in an ordered tool-call sequence.
type ToolCall struct {
	Name string         `yaml:"name" json:"name"`
	Args map[string]any `yaml:"args" json:"args"`
}

// Evaluator is one evaluator declaration. Kind-specific parameters are all
// optional at the YAML level; the declarative required-field check in the
// evaluator package enforces them per kind before dispatch.
type Evaluator struct {
	Name    string   `yaml:"name"`
	Type    Kind     `yaml:"type"`
	Weight  *float64 `yaml:"weight"`
	Enabled *bool    `yaml:"enabled"`

	MinScore           *float64              `yaml:"min_score"`
	SchemaPath         string                `yaml:"schema_path"`
	ExpectedField      string                `yaml:"expected_field"`
	ExpectedFinalField string                `yaml:"expected_final_field"`
	MaxTurns           *int                  `yaml:"max_turns"`
	Threshold          *float64              `yaml:"threshold"`
	Metric             string                `yaml:"metric"`
	PatternField       string                `yaml:"pattern_field"`
	PatternPath        string                `yaml:"pattern_path"`
	MultiLabel         bool                  `yaml:"multi_label"`
	ExpectedToolCalls  map[string][]ToolCall `yaml:"expected_tool_calls"`
	WorkflowPath       string                `yaml:"workflow_path"`

	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	PromptPath      string   `yaml:"prompt_path"`
	APIKeyEnvVar    string   `yaml:"api_key_env_var"`
	BaseURL         string   `yaml:"base_url"`
	Temperature     *float64 `yaml:"temperature"`
	MaxTokens       *int     `yaml:"max_tokens"`
	TranscriptField string   `yaml:"transcript_field"`
	PerTurnScoring  bool     `yaml:"per_turn_scoring"`
}

// IsEnabled defaults to true when the flag is omitted.
func (e Evaluator) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// WeightValue defaults to 1.0 when weight is omitted. An explicit 0 is a
// valid weight and is preserved.
func (e Evaluator) WeightValue() float64 {
	if e.Weight == nil {
		return 1.0
	}
	return *e.Weight
}

// SimilarityThreshold defaults to 0.8.
func (e Evaluator) SimilarityThreshold() float64 {
	if e.Threshold == nil {
		return 0.8
	}
	return *e.Threshold
}

// JudgeTemperature defaults to 0.1.
func (e Evaluator) JudgeTemperature() float32 {
	if e.Temperature == nil {
		return 0.1
	}
	return float32(*e.Temperature)
}

// JudgeMaxTokens defaults to 1000.
func (e Evaluator) JudgeMaxTokens() int {
	if e.MaxTokens == nil {
		return 1000
	}
	return *e.MaxTokens
}

type Gate struct {
	MinOverallScore float64 `yaml:"min_overall_score"`
	AllowRegression bool    `yaml:"allow_regression"`
}

type Report struct {
	PRComment    bool   `yaml:"pr_comment"`
	ArtifactPath string `yaml:"artifact_path"`
}

type Baseline struct {
	Ref string `yaml:"ref"`
}

type Telemetry struct {
	Mode string `yaml:"mode"`
}

type Config struct {
	Budgets    Budgets     `yaml:"budgets"`
	Fixtures   Fixtures    `yaml:"fixtures"`
	Outputs    Outputs     `yaml:"outputs"`
	Evaluators []Evaluator `yaml:"evaluators"`
	Gate       Gate        `yaml:"gate"`
	Report     Report      `yaml:"report"`
	Baseline   Baseline    `yaml:"baseline"`
	Telemetry  Telemetry   `yaml:"telemetry"`
}

// ValidationError marks a malformed top-level config. The CLI maps it to
// exit code 2 before any evaluation happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid config: " + e.Reason }

// Load reads, decodes, and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML config bytes.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{
		Gate:      Gate{MinOverallScore: 0.9},
		Report:    Report{PRComment: true, ArtifactPath: ".evalgate/results.json"},
		Baseline:  Baseline{Ref: "origin/main"},
		Telemetry: Telemetry{Mode: "local_only"},
	}
	if err := goyaml.Unmarshal(raw, cfg); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Budgets.P95LatencyMS < 1 {
		return &ValidationError{Reason: "budgets.p95_latency_ms must be >= 1"}
	}
	if c.Budgets.MaxCostUSDPerItem < 0 {
		return &ValidationError{Reason: "budgets.max_cost_usd_per_item must be >= 0"}
	}
	if c.Fixtures.Path == "" {
		return &ValidationError{Reason: "fixtures.path is required"}
	}
	if c.Outputs.Path == "" {
		return &ValidationError{Reason: "outputs.path is required"}
	}
	valid := make(map[Kind]struct{}, len(Kinds()))
	for _, k := range Kinds() {
		valid[k] = struct{}{}
	}
	for _, ev := range c.Evaluators {
		if ev.Name == "" {
			return &ValidationError{Reason: "evaluator name is required"}
		}
		if _, ok := valid[ev.Type]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("invalid evaluator type: %s", ev.Type)}
		}
		if w := ev.WeightValue(); w < 0 || w > 1 {
			return &ValidationError{Reason: fmt.Sprintf("evaluator %s: weight must be between 0 and 1", ev.Name)}
		}
	}
	return nil
}
