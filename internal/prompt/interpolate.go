package prompt

import (
	"regexp"
)

var markerRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Interpolate substitutes {{name}} placeholders in template with values
// from vars. An unresolved placeholder is left verbatim so the caller
// can notice it rather than silently producing a malformed prompt.
func Interpolate(template string, vars map[string]string) string {
	return markerRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[2 : len(match)-2]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}

// Placeholders returns the distinct {{name}} keys referenced by template,
// in first-seen order.
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range markerRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Unresolved returns the distinct {{name}} keys still present in
// rendered, i.e. the placeholders Interpolate couldn't resolve because
// vars had no matching entry. An empty result means rendered is clean.
func Unresolved(rendered string) []string {
	return Placeholders(rendered)
}
