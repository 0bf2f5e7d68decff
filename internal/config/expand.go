package config

import (
	"fmt"
	"strings"

	"github.com/groundwork-io/groundwork/internal/ir"
)

// ExpandCount flattens counted resources into individual instances named
// name[i], substituting ${count.index} in attribute values. Must run
// before graph construction.
func ExpandCount(resources []*ir.Resource) []*ir.Resource {
	var expanded []*ir.Resource
	for _, res := range resources {
		if res.Count <= 0 {
			expanded = append(expanded, res)
			continue
		}
		for i := 0; i < res.Count; i++ {
			clone := cloneResource(res)
			clone.Count = 0
			clone.Name = fmt.Sprintf("%s[%d]", res.Name, i)
			clone.Attributes = substituteIndex(clone.Attributes, i)
			expanded = append(expanded, clone)
		}
	}
	return expanded
}

func cloneResource(res *ir.Resource) *ir.Resource {
	return &ir.Resource{
		Kind:       res.Kind,
		Name:       res.Name,
		Provider:   res.Provider,
		DependsOn:  append([]string{}, res.DependsOn...),
		Attributes: deepCopyMap(res.Attributes),
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

func substituteIndex(attrs map[string]any, index int) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = substituteValue(v, "${count.index}", fmt.Sprintf("%d", index))
	}
	return out
}

func substituteValue(v any, old, replacement string) any {
	switch val := v.(type) {
	case string:
		return strings.ReplaceAll(val, old, replacement)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = substituteValue(item, old, replacement)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substituteValue(item, old, replacement)
		}
		return out
	default:
		return v
	}
}
