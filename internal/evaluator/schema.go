package evaluator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/fixture"
)

// Schema validates every output against a caller-supplied JSON Schema. The
// score is the fraction of outputs with zero violations; ground truth is not
// consulted.
type Schema struct{}

func (Schema) Kind() config.Kind        { return config.KindSchema }
func (Schema) RequiredFields() []string { return []string{"schema_path"} }

func (Schema) Evaluate(_ context.Context, _ *config.Config, ev config.Evaluator, set *fixture.Set) (Result, error) {
	loader := gojsonschema.NewReferenceLoader("file://" + ev.SchemaPath)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return Result{}, fmt.Errorf("load schema %s: %w", ev.SchemaPath, err)
	}

	violations := make([]string, 0)
	ok := 0
	for _, name := range set.Names {
		res, err := schema.Validate(gojsonschema.NewGoLoader(set.Outputs[name]))
		if err != nil {
			return Result{}, fmt.Errorf("validate %s: %w", name, err)
		}
		if res.Valid() {
			ok++
			continue
		}
		errs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			errs = append(errs, fmt.Sprintf("%s: %s -> %s", name, pointerPath(e.Field()), e.Description()))
		}
		// Sorted by schema path so repeated runs list violations identically.
		sort.Strings(errs)
		violations = append(violations, errs...)
	}

	total := len(set.Names)
	if total == 0 {
		total = 1
	}
	return Result{Score: float64(ok) / float64(total), Failures: violations}, nil
}

func pointerPath(field string) string {
	if field == "(root)" {
		return ""
	}
	return strings.ReplaceAll(field, ".", "/")
}
