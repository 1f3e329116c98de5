package prompt

import (
	"fmt"
	"strings"
)

// ParentScoreDecay is how much of a parent's score a mutated child
// inherits at birth, before it has any feedback of its own.
const ParentScoreDecay = 0.8

var synonyms = map[string][]string{
	"describe":  {"summarize", "characterize", "outline"},
	"recall":    {"remember", "retrieve", "recollect"},
	"consider":  {"reflect on", "weigh", "think about"},
	"summarize": {"describe", "condense", "distill"},
	"explain":   {"clarify", "unpack", "elaborate on"},
}

// mutator produces a variant template from a parent template. Returning
// the input unchanged means this mutator found nothing to change.
type mutator func(template string) string

// mutatorsFor is the fixed set of named mutation strategies evolve()
// cycles through.
var mutatorsFor = []mutator{
	synonymSubstitution,
	clauseReordering,
	placeholderRebinding,
}

// synonymSubstitution swaps the first recognized verb for the first
// synonym listed for it, so the same parent always yields the same
// variant.
func synonymSubstitution(template string) string {
	words := strings.Fields(template)
	for i, w := range words {
		key := strings.ToLower(strings.Trim(w, ".,:;!?"))
		if alts, ok := synonyms[key]; ok {
			words[i] = alts[0]
			return strings.Join(words, " ")
		}
	}
	return template
}

// clauseReordering swaps the first two period-separated clauses, giving
// the model the same content in a different emphasis order.
func clauseReordering(template string) string {
	clauses := strings.SplitN(template, ". ", 3)
	if len(clauses) < 2 {
		return template
	}
	clauses[0], clauses[1] = clauses[1], clauses[0]
	return strings.Join(clauses, ". ")
}

// placeholderRebinding emphasizes the template's first placeholder by
// referencing it a second time, rather than renaming it: callers always
// render against a fixed set of variable names (Select's vars map), so
// a mutant that invents a new placeholder name nobody supplies would
// leave that placeholder unresolved in every rendering from then on,
// and Select now rejects that as a pattern mismatch.
func placeholderRebinding(template string) string {
	placeholders := Placeholders(template)
	if len(placeholders) == 0 {
		return template
	}
	first := placeholders[0]
	emphasis := fmt.Sprintf(" Stay with {{%s}} specifically.", first)
	if strings.Contains(template, emphasis) {
		return template
	}
	return template + emphasis
}
