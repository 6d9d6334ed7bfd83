package spec

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrTemplate is returned when a template references an undefined field.
var ErrTemplate = errors.New("şablon alanı tanımsız")

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// FormatString substitutes {field} placeholders in template with values
// from ns. A placeholder without a matching field fails with ErrTemplate.
func FormatString(template string, ns map[string]string) (string, error) {
	var missing string
	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		field := match[1 : len(match)-1]
		value, ok := ns[field]
		if !ok {
			if missing == "" {
				missing = field
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("%w: {%s} (şablon: %q)", ErrTemplate, missing, template)
	}
	return result, nil
}
