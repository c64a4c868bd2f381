package artifact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// refPattern matches @name artifact references inside strings.
var refPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+)`)

// Resolve walks an input structure (maps, slices, strings) and replaces
// @name references with stored artifact values. A string that is exactly
// one reference resolves to the raw stored value; a reference embedded in
// a larger string is substituted with its JSON form. Any unknown name
// aborts the whole resolution with a NotFoundError: inputs are never
// partially substituted.
func (r *Registry) Resolve(input any) (any, error) {
	switch val := input.(type) {
	case string:
		return r.resolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.Resolve(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.Resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return input, nil
	}
}

// ResolveInputs resolves a tool input map, preserving its map type.
func (r *Registry) ResolveInputs(inputs map[string]any) (map[string]any, error) {
	if inputs == nil {
		return nil, nil
	}
	resolved, err := r.Resolve(inputs)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// ReferencedNames returns the artifact names referenced by @name tokens
// in a string, in order of first appearance.
func ReferencedNames(s string) []string {
	var names []string
	for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// resolveString handles the two reference forms for a single string.
func (r *Registry) resolveString(s string) (any, error) {
	matches := refPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// Whole-string reference yields the raw stored value.
	if len(matches) == 1 && s == matches[0][0] {
		rec, err := r.Get(matches[0][1])
		if err != nil {
			return nil, err
		}
		return rec.Value, nil
	}

	// Embedded references are substituted with their JSON form.
	var resolveErr error
	out := refPattern.ReplaceAllStringFunc(s, func(token string) string {
		if resolveErr != nil {
			return token
		}
		name := strings.TrimPrefix(token, "@")
		rec, err := r.Get(name)
		if err != nil {
			resolveErr = err
			return token
		}
		return jsonForm(rec.Value)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

// jsonForm serializes a value for embedding inside a larger string.
// Plain strings embed without surrounding quotes.
func jsonForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
