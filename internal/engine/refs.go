package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// Reference expressions have the form ${Kind.name.attribute} and may appear
// anywhere inside a string attribute value. A value that is exactly one
// reference resolves to the referenced attribute's native type; otherwise
// references interpolate into the surrounding string.
var refPattern = regexp.MustCompile(`\$\{\s*([A-Za-z]\w*)\.([A-Za-z0-9][\w\-]*(?:\[\d+\])?)\.([A-Za-z_]\w*)\s*\}`)

// Reference is one parsed cross-resource reference.
type Reference struct {
	Kind      string
	Name      string
	Attribute string
}

// Address returns the referenced resource address (kind.name).
func (r Reference) Address() string {
	return r.Kind + "." + r.Name
}

func parseRefs(s string) []Reference {
	var refs []Reference
	for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
		refs = append(refs, Reference{Kind: m[1], Name: m[2], Attribute: m[3]})
	}
	return refs
}

// ExtractRefs walks an attribute value and collects every reference
// expression it contains.
func ExtractRefs(v any) []Reference {
	var refs []Reference
	switch val := v.(type) {
	case string:
		refs = append(refs, parseRefs(val)...)
	case map[string]any:
		for _, v := range val {
			refs = append(refs, ExtractRefs(v)...)
		}
	case map[any]any:
		for _, v := range val {
			refs = append(refs, ExtractRefs(v)...)
		}
	case []any:
		for _, v := range val {
			refs = append(refs, ExtractRefs(v)...)
		}
	}
	return refs
}

// resolveValue substitutes references using lookup. Unresolvable references
// are left in source form so the provider error names them.
func resolveValue(v any, lookup func(ref Reference) (any, bool)) any {
	switch val := v.(type) {
	case string:
		// Exact single reference resolves to the native value.
		if m := refPattern.FindStringSubmatch(val); m != nil && m[0] == strings.TrimSpace(val) {
			ref := Reference{Kind: m[1], Name: m[2], Attribute: m[3]}
			if out, ok := lookup(ref); ok {
				return out
			}
			return val
		}
		return refPattern.ReplaceAllStringFunc(val, func(s string) string {
			m := refPattern.FindStringSubmatch(s)
			ref := Reference{Kind: m[1], Name: m[2], Attribute: m[3]}
			if out, ok := lookup(ref); ok {
				return fmt.Sprintf("%v", out)
			}
			return s
		})
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = resolveValue(v, lookup)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[fmt.Sprintf("%v", k)] = resolveValue(v, lookup)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = resolveValue(v, lookup)
		}
		return out
	default:
		return val
	}
}
