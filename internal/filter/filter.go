// ABOUTME: Narrows descriptor collections by include/exclude attribute rules
// ABOUTME: Parses rule flags of the form attribute=value1,value2

package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Rules maps an attribute name to its set of values. Within one attribute the
// values are alternatives; across attributes every entry must hold.
type Rules map[string][]string

// Apply returns the items that satisfy every include rule and none of the
// exclude rules, in their original order. The input slice is not modified.
func Apply(items []plugin.Descriptor, include, exclude Rules) []plugin.Descriptor {
	result := make([]plugin.Descriptor, 0, len(items))
	for _, item := range items {
		if matchesInclude(item, include) && !matchesExclude(item, exclude) {
			result = append(result, item)
		}
	}
	return result
}

// matchesInclude reports whether item passes every include key.
// A missing attribute fails the key.
func matchesInclude(item plugin.Descriptor, include Rules) bool {
	for attr, values := range include {
		value, ok := item.Attribute(attr)
		if !ok || !contains(values, value) {
			return false
		}
	}
	return true
}

// matchesExclude reports whether any exclude key matches item.
func matchesExclude(item plugin.Descriptor, exclude Rules) bool {
	for attr, values := range exclude {
		value, ok := item.Attribute(attr)
		if ok && contains(values, value) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRules parses flag values like "type=app,datasource". Repeated
// attributes accumulate their values.
func ParseRules(specs []string) (Rules, error) {
	rules := make(Rules)
	for _, spec := range specs {
		attr, rawValues, ok := strings.Cut(spec, "=")
		attr = strings.TrimSpace(attr)
		if !ok || attr == "" {
			return nil, fmt.Errorf("invalid rule %q: expected attribute=value[,value...]", spec)
		}

		var values []string
		for _, v := range strings.Split(rawValues, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("invalid rule %q: no values given", spec)
		}

		rules[attr] = append(rules[attr], values...)
	}
	return rules, nil
}

// Merge returns a new rule set holding the values of both inputs
func Merge(a, b Rules) Rules {
	merged := make(Rules, len(a)+len(b))
	for attr, values := range a {
		merged[attr] = append([]string(nil), values...)
	}
	for attr, values := range b {
		merged[attr] = append(merged[attr], values...)
	}
	return merged
}

// String renders rules deterministically for logs
func (r Rules) String() string {
	if len(r) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strings.Join(r[k], ",")
	}
	return strings.Join(parts, " ")
}
