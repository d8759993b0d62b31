// Package generator produces randomized fixtures from a JSON Schema, for
// seeding an evaluation suite before real traffic exists.
package generator

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// optionalFieldProbability is the chance a non-required object property is
// included in generated data.
const optionalFieldProbability = 0.75

// Generator derives data from schema shapes using an injected random source,
// so suites are reproducible under a fixed seed.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Suite generates count fixtures from schema, each deep-merged with the
// optional seed data.
func (g *Generator) Suite(schema map[string]any, count int, seed map[string]any) []any {
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.Fixture(schema, seed))
	}
	return out
}

// Fixture generates a single instance and merges seed data over it.
func (g *Generator) Fixture(schema map[string]any, seed map[string]any) any {
	data := g.fromSchema(schema)
	if len(seed) > 0 {
		return mergeSeed(data, seed)
	}
	return data
}

func (g *Generator) fromSchema(schema map[string]any) any {
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		return enum[g.rng.Intn(len(enum))]
	}
	if c, ok := schema["const"]; ok {
		return c
	}

	typ, _ := schema["type"].(string)
	switch typ {
	case "object":
		props, _ := schema["properties"].(map[string]any)
		required := make(map[string]struct{})
		if reqList, ok := schema["required"].([]any); ok {
			for _, r := range reqList {
				if s, ok := r.(string); ok {
					required[s] = struct{}{}
				}
			}
		}
		result := make(map[string]any)
		for _, key := range sortedKeys(props) {
			sub, _ := props[key].(map[string]any)
			if _, req := required[key]; req || g.rng.Float64() < optionalFieldProbability {
				result[key] = g.fromSchema(sub)
			}
		}
		return result
	case "array":
		items, _ := schema["items"].(map[string]any)
		minItems := intOr(schema["minItems"], 1)
		maxItems := intOr(schema["maxItems"], minItems+2)
		length := minItems + g.rng.Intn(maxItems-minItems+1)
		arr := make([]any, 0, length)
		for i := 0; i < length; i++ {
			arr = append(arr, g.fromSchema(items))
		}
		return arr
	case "string":
		if fmtName, _ := schema["format"].(string); fmtName == "uuid" {
			return uuid.New().String()
		}
		minLen := intOr(schema["minLength"], 1)
		maxLen := intOr(schema["maxLength"], minLen+8)
		if maxLen < minLen {
			maxLen = minLen
		}
		const letters = "abcdefghijklmnopqrstuvwxyz"
		length := minLen + g.rng.Intn(maxLen-minLen+1)
		buf := make([]byte, length)
		for i := range buf {
			buf[i] = letters[g.rng.Intn(len(letters))]
		}
		return string(buf)
	case "integer", "number":
		minimum := intOr(schema["minimum"], 0)
		maximum := intOr(schema["maximum"], minimum+100)
		if maximum < minimum {
			maximum = minimum
		}
		return float64(minimum + g.rng.Intn(maximum-minimum+1))
	case "boolean":
		return g.rng.Intn(2) == 1
	}
	return nil
}

// mergeSeed overlays seed values onto generated data recursively; seed wins
// on conflicts.
func mergeSeed(data, seed any) any {
	if seed == nil {
		return data
	}
	seedMap, seedIsMap := seed.(map[string]any)
	dataMap, dataIsMap := data.(map[string]any)
	if seedIsMap && dataIsMap {
		merged := make(map[string]any, len(dataMap))
		for k, v := range dataMap {
			merged[k] = v
		}
		for k, v := range seedMap {
			if existing, ok := merged[k]; ok {
				merged[k] = mergeSeed(existing, v)
			} else {
				merged[k] = v
			}
		}
		return merged
	}
	seedList, seedIsList := seed.([]any)
	dataList, dataIsList := data.([]any)
	if seedIsList && dataIsList {
		length := len(seedList)
		if len(dataList) > length {
			length = len(dataList)
		}
		merged := make([]any, 0, length)
		for i := 0; i < length; i++ {
			switch {
			case i < len(seedList) && i < len(dataList):
				merged = append(merged, mergeSeed(dataList[i], seedList[i]))
			case i < len(seedList):
				merged = append(merged, seedList[i])
			default:
				merged = append(merged, dataList[i])
			}
		}
		return merged
	}
	return seed
}

func intOr(v any, fallback int) int {
	switch vv := v.(type) {
	case float64:
		return int(vv)
	case int:
		return vv
	default:
		return fallback
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Deterministic property order keeps seeded generation reproducible.
	sort.Strings(out)
	return out
}
