package template

import (
	"regexp"
	"slices"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render substitutes {{name}} placeholders in text with values. Placeholders
// with no matching value are left intact so a partially rendered template is
// visibly unfinished rather than silently blanked.
func Render(text string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// ExtractVariables returns the distinct placeholder names referenced by the
// given texts, in first-seen order.
func ExtractVariables(texts ...string) []string {
	var out []string
	for _, text := range texts {
		for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if name != "" && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}
