package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	goyaml "gopkg.in/yaml.v3"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// Workflow validates observed step sequences against a directed graph loaded
// from a JSON or YAML edge file. Steps outside the node set, transitions not
// in the adjacency list, and graph nodes never observed across the whole
// batch are all failures. The score is binary: 1.0 only with zero failures.
// The graph is not checked for acyclicity; cyclic graphs are accepted.
type Workflow struct{}

func (Workflow) Kind() config.Kind        { return config.KindWorkflow }
func (Workflow) RequiredFields() []string { return []string{"workflow_path"} }

func (Workflow) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	edges, err := loadWorkflow(ev.WorkflowPath)
	if err != nil {
		return Result{}, err
	}

	nodes := make(map[string]struct{})
	for from, dests := range edges {
		nodes[from] = struct{}{}
		for _, to := range dests {
			nodes[to] = struct{}{}
		}
	}

	observed := make(map[string]struct{})
	fails := make([]string, 0)
	for _, name := range set.Names {
		seq, ok := stepSequence(set.Outputs[name])
		if !ok {
			fails = append(fails, fmt.Sprintf("%s: missing calls/states list", name))
			continue
		}
		for _, step := range seq {
			if _, ok := nodes[step]; !ok {
				fails = append(fails, fmt.Sprintf("%s: extra step %s", name, step))
			}
		}
		for i := 0; i+1 < len(seq); i++ {
			if !contains(edges[seq[i]], seq[i+1]) {
				fails = append(fails, fmt.Sprintf("%s: invalid transition %s->%s", name, seq[i], seq[i+1]))
			}
		}
		for _, step := range seq {
			observed[step] = struct{}{}
		}
	}

	missing := make([]string, 0)
	for node := range nodes {
		if _, ok := observed[node]; !ok {
			missing = append(missing, node)
		}
	}
	sort.Strings(missing)
	for _, step := range missing {
		fails = append(fails, "missing step "+step)
	}

	score := 1.0
	if len(fails) > 0 {
		score = 0.0
	}
	return Result{Score: score, Failures: fails}, nil
}

// loadWorkflow reads {edges: {node: [node, ...]}} from a JSON or YAML file.
func loadWorkflow(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	var doc struct {
		Edges map[string][]string `json:"edges" yaml:"edges"`
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = goyaml.Unmarshal(raw, &doc)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	return doc.Edges, nil
}

// stepSequence pulls the observed steps from an output's "calls" list,
// falling back to "states" when calls is absent or empty. A non-dict output
// or one carrying neither field yields an empty sequence that contributes
// nothing; only a field holding a non-list value is malformed.
func stepSequence(out any) ([]string, bool) {
	obj, ok := out.(map[string]any)
	if !ok {
		return nil, true
	}
	v := obj["calls"]
	if !truthyValue(v) {
		v = obj["states"]
	}
	if !truthyValue(v) {
		return nil, true
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	seq := make([]string, 0, len(raw))
	for _, step := range raw {
		seq = append(seq, labelString(step))
	}
	return seq, true
}

func truthyValue(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case string:
		return vv != ""
	case bool:
		return vv
	case float64:
		return vv != 0
	case []any:
		return len(vv) > 0
	case map[string]any:
		return len(vv) > 0
	default:
		return true
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
