package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/promptcache"
	"github.com/evalgate/evalgate/pkg/types"
)

// Result is the successful outcome of one evaluator: a score in [0,1], an
// ordered failure list, and optional side-channel payloads. Failures may be
// empty even when the score is below 1 (budget scoring is aggregate-level)
// and may be non-empty with a perfect score (the overlap evaluator logs every
// per-item score).
type Result struct {
	Score    float64
	Failures []string
	Metrics  *types.Metrics
	Latency  *float64
	Cost     *float64
	Table    *types.Table
	Plot     *types.Plot
}

// Evaluator scores the output set against the fixture set. Implementations
// are pure over the read-only set and safe to run concurrently.
type Evaluator interface {
	Kind() config.Kind
	// RequiredFields names the config fields this kind needs. They are
	// checked before dispatch; an evaluator never sees a config missing one.
	RequiredFields() []string
	Evaluate(ctx context.Context, cfg *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error)
}

// ConfigError marks an evaluator declared without its required fields. The
// evaluator is excluded from scoring and the gate is forced to fail.
type ConfigError struct {
	Evaluator string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("evaluator %s: %s", e.Evaluator, e.Reason)
}

// RuntimeError marks a failure while an evaluator was running, including
// timeouts and recovered panics. Same gate consequence as ConfigError.
type RuntimeError struct {
	Evaluator string
	Err       error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("evaluator %s: %v", e.Evaluator, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Registry maps the closed kind set to implementations. It is constructed
// once per run with the run's shared services.
type Registry struct {
	impls map[config.Kind]Evaluator
}

// NewRegistry wires every evaluator kind. The judge and embedding evaluators
// share the provider client; the judge additionally owns the response cache.
func NewRegistry(client llm.Client, cache *promptcache.Store) *Registry {
	r := &Registry{impls: make(map[config.Kind]Evaluator)}
	for _, impl := range []Evaluator{
		&Schema{},
		&Category{},
		&Budgets{},
		&Judge{Client: client, Cache: cache},
		&Embedding{Client: client},
		&Regex{},
		&Overlap{},
		&RequiredFields{},
		&Classification{},
		&Workflow{},
		&ToolUsage{},
		&Conversation{},
	} {
		r.Register(impl)
	}
	return r
}

// Register installs (or replaces) the implementation for impl's kind.
func (r *Registry) Register(impl Evaluator) {
	r.impls[impl.Kind()] = impl
}

// Lookup returns the implementation for kind, or false when none is
// registered. The engine skips unregistered kinds with a warning instead of
// failing the gate.
func (r *Registry) Lookup(kind config.Kind) (Evaluator, bool) {
	impl, ok := r.impls[kind]
	return impl, ok
}

// CheckRequired validates the declarative required-field set for ev against
// its declaration, before the evaluator runs.
func CheckRequired(impl Evaluator, ev config.Evaluator) *ConfigError {
	missing := make([]string, 0)
	for _, field := range impl.RequiredFields() {
		if !fieldPresent(ev, field) {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ConfigError{
		Evaluator: ev.Name,
		Reason:    "missing required field(s): " + strings.Join(missing, ", "),
	}
}

func fieldPresent(ev config.Evaluator, field string) bool {
	switch field {
	case "schema_path":
		return ev.SchemaPath != ""
	case "expected_field":
		return ev.ExpectedField != ""
	case "expected_final_field":
		return ev.ExpectedFinalField != ""
	case "workflow_path":
		return ev.WorkflowPath != ""
	case "expected_tool_calls":
		return len(ev.ExpectedToolCalls) > 0
	case "model":
		return ev.Model != ""
	case "prompt_path":
		return ev.PromptPath != ""
	case "api_key_env_var":
		return ev.APIKeyEnvVar != ""
	default:
		return false
	}
}
