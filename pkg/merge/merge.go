package merge

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a list value meets a non-list value
// at the same config path.
var ErrTypeMismatch = errors.New("config tip uyuşmazlığı")

// Merge deep-merges override into base and returns the result.
//
// Both inputs are nested maps possibly containing lists at the leaves.
// Maps are merged recursively. When the override holds a list at a path
// where base also has a value, the base value must be a list too and the
// result is the override items followed by the base items. Any other
// override value replaces the base value, including new keys.
//
// Merge order is left-to-right associative: layering defaults, a profile
// and a session override is Merge(Merge(defaults, profile), override).
// Neither input is mutated.
func Merge(base, override map[string]interface{}) (map[string]interface{}, error) {
	return mergeAt(base, override, "")
}

func mergeAt(base, override map[string]interface{}, prefix string) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(base)+len(override))
	for key, val := range base {
		result[key] = val
	}

	for key, overrideVal := range override {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		baseVal, exists := result[key]

		switch typed := overrideVal.(type) {
		case map[string]interface{}:
			if baseMap, ok := baseVal.(map[string]interface{}); exists && ok {
				merged, err := mergeAt(baseMap, typed, path)
				if err != nil {
					return nil, err
				}
				result[key] = merged
				continue
			}
			result[key] = overrideVal

		case []interface{}:
			if !exists {
				result[key] = overrideVal
				continue
			}
			baseList, ok := baseVal.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %s (liste ile %T birleştirilemez)",
					ErrTypeMismatch, path, baseVal)
			}
			// Override items come first, base items after.
			combined := make([]interface{}, 0, len(typed)+len(baseList))
			combined = append(combined, typed...)
			combined = append(combined, baseList...)
			result[key] = combined

		default:
			result[key] = overrideVal
		}
	}

	return result, nil
}
