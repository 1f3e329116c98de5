package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		expected string
	}{
		{
			name:     "all placeholders resolved",
			template: "hello {{name}}",
			vars:     map[string]string{"name": "world"},
			expected: "hello world",
		},
		{
			name:     "unresolved placeholder left verbatim",
			template: "hello {{name}}, {{missing}}",
			vars:     map[string]string{"name": "world"},
			expected: "hello world, {{missing}}",
		},
		{
			name:     "repeated placeholder substituted everywhere",
			template: "{{x}} and {{x}} again",
			vars:     map[string]string{"x": "one"},
			expected: "one and one again",
		},
		{
			name:     "no placeholders is a no-op",
			template: "plain text",
			vars:     map[string]string{"name": "world"},
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Interpolate(tt.template, tt.vars))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} {{b}} {{a}}")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMutatorsChangeTemplate(t *testing.T) {
	tmpl := "Describe what you notice. Then recall {{context}}."

	assert.NotEqual(t, tmpl, synonymSubstitution(tmpl), "synonymSubstitution should change the template")
	assert.NotEqual(t, tmpl, clauseReordering(tmpl), "clauseReordering should change the template")
	assert.NotEqual(t, tmpl, placeholderRebinding(tmpl), "placeholderRebinding should change the template")
}
