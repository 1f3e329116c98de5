package concept

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[A-Za-z]{3,}`)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "that": true,
	"this": true, "with": true, "from": true, "was": true, "about": true,
	"have": true, "has": true, "not": true, "but": true, "you": true,
	"your": true, "its": true, "into": true, "onto": true, "their": true,
}

// DeriveLabel picks a concept's human-readable label from its member
// thoughts' content: the highest-TF-IDF unigram across the set, breaking
// ties alphabetically for determinism. This resolves an open ambiguity
// in label derivation by pinning one fixed rule rather than ad-hoc
// tokenization.
func DeriveLabel(contents []string) string {
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)

	for _, content := range contents {
		seen := make(map[string]bool)
		for _, tok := range tokenRe.FindAllString(strings.ToLower(content), -1) {
			if stopwords[tok] {
				continue
			}
			termFreq[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	if len(termFreq) == 0 {
		return "unlabeled"
	}

	n := float64(len(contents))
	type scored struct {
		term  string
		score float64
	}
	scores := make([]scored, 0, len(termFreq))
	for term, tf := range termFreq {
		idf := 1.0
		if df := docFreq[term]; df > 0 {
			idf = math.Log(n/float64(df)) + 1
		}
		scores = append(scores, scored{term: term, score: float64(tf) * idf})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].term < scores[j].term
	})
	return scores[0].term
}

