package player

import (
	"fmt"
	"math/rand/v2"
	"regexp"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// Generator produces a parameter value from its customization args and the
// params already in scope.
type Generator interface {
	Generate(args map[string]any, params map[string]any) (any, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(args map[string]any, params map[string]any) (any, error)

func (f GeneratorFunc) Generate(args, params map[string]any) (any, error) { return f(args, params) }

// Copier returns args["value"], interpolating {{param}} references when the
// value is a string.
var Copier = GeneratorFunc(func(args, params map[string]any) (any, error) {
	v, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("copier: missing value")
	}
	if s, ok := v.(string); ok {
		return Interpolate(s, params), nil
	}
	return v, nil
})

// RandomSelector picks one of args["list_of_values"].
var RandomSelector = GeneratorFunc(func(args, _ map[string]any) (any, error) {
	list, ok := args["list_of_values"].([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("random selector: list_of_values must be a non-empty list")
	}
	return list[rand.IntN(len(list))], nil
})

// DefaultGenerators maps generator IDs to the built-in generators.
func DefaultGenerators() map[string]Generator {
	return map[string]Generator{
		"Copier":         Copier,
		"RandomSelector": RandomSelector,
	}
}

// applyParamChanges returns a copy of params with changes applied in order.
func applyParamChanges(generators map[string]Generator, params map[string]any, changes []domain.ParamChange) (map[string]any, error) {
	out := make(map[string]any, len(params)+len(changes))
	for k, v := range params {
		out[k] = v
	}
	for _, pc := range changes {
		g, ok := generators[pc.GeneratorID]
		if !ok {
			return nil, fmt.Errorf("param %s: unknown generator %q", pc.Name, pc.GeneratorID)
		}
		v, err := g.Generate(pc.CustomizationArgs, out)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", pc.Name, err)
		}
		out[pc.Name] = v
	}
	return out, nil
}

var paramRef = regexp.MustCompile(`\{\{\s*([A-Za-z_]\w*)\s*\}\}`)

// Interpolate replaces {{name}} with the value of params[name]. Unknown
// names are left as written.
func Interpolate(s string, params map[string]any) string {
	return paramRef.ReplaceAllStringFunc(s, func(m string) string {
		name := paramRef.FindStringSubmatch(m)[1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}
