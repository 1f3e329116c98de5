package memory

import (
	"sort"

	"github.com/ehrlich-b/noetic/internal/embedding"
)

// Ranked pairs a thought with its score under whichever mode produced it.
type Ranked struct {
	Thought *Thought
	Score   float64
}

// Retrieve ranks thoughts against query under the requested mode.
// Similarity uses the vector index alone. Activation-weighted re-ranks
// the top 4k index hits by a blend of similarity and activation.
// Spreading seeds from the single nearest thought and performs a
// bounded, damped breadth-first walk over the association graph.
func (g *Graph) Retrieve(query string, k int, mode RetrieveMode) ([]Ranked, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	vecs, err := g.embedder.Embed([]string{query})
	if err != nil {
		return nil, err
	}
	vec := embedding.Normalize(vecs[0])

	switch mode {
	case ModeActivationWeighted:
		return g.retrieveActivationWeightedLocked(vec, k), nil
	case ModeSpreading:
		return g.retrieveSpreadingLocked(vec, k), nil
	default:
		return g.retrieveSimilarityLocked(vec, k), nil
	}
}

// shortlistByCosine takes the L2 candidate shortlist Search already
// found (cheap to compute over the whole index) and gives it a final,
// precise ordering by true cosine similarity, using the exact vectors
// held in the index rather than the L2 distance Search returned.
func (g *Graph) shortlistByCosine(vec []float32, hits []embedding.Neighbor, n int) []Ranked {
	ids := make([]string, 0, len(hits))
	candidates := make([][]float32, 0, len(hits))
	for _, h := range hits {
		other, ok := g.index.Get(h.ID)
		if !ok {
			continue
		}
		ids = append(ids, h.ID)
		candidates = append(candidates, other)
	}

	out := make([]Ranked, 0, n)
	for _, m := range embedding.TopN(vec, candidates, n) {
		t, ok := g.thoughts[ids[m.Index]]
		if !ok {
			continue
		}
		out = append(out, Ranked{Thought: t, Score: float64(m.Similarity)})
	}
	return out
}

func (g *Graph) retrieveSimilarityLocked(vec []float32, k int) []Ranked {
	hits := g.index.Search(vec, k)
	return g.shortlistByCosine(vec, hits, k)
}

func (g *Graph) retrieveActivationWeightedLocked(vec []float32, k int) []Ranked {
	hits := g.index.Search(vec, 4*k)
	scored := g.shortlistByCosine(vec, hits, len(hits))
	out := make([]Ranked, 0, len(scored))
	for _, r := range scored {
		score := ActivationAlpha*r.Score + (1-ActivationAlpha)*r.Thought.Activation
		out = append(out, Ranked{Thought: r.Thought, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k < len(out) {
		out = out[:k]
	}
	return out
}

func (g *Graph) retrieveSpreadingLocked(vec []float32, k int) []Ranked {
	seeds := g.index.Search(vec, 1)
	if len(seeds) == 0 {
		return nil
	}

	scores := map[string]float64{seeds[0].ID: 1.0}
	frontier := []string{seeds[0].ID}

	for depth := 0; depth < SpreadingMaxDepth; depth++ {
		var next []string
		seen := make(map[string]bool)
		for _, id := range frontier {
			source, ok := g.thoughts[id]
			if !ok {
				continue
			}
			for _, a := range source.Associations {
				contribution := a.Weight * scores[id] * SpreadingDamping
				scores[a.Target] += contribution
				if !seen[a.Target] {
					seen[a.Target] = true
					next = append(next, a.Target)
				}
			}
		}
		frontier = next
	}

	ranked := make([]Ranked, 0, len(scores))
	for id, score := range scores {
		t, ok := g.thoughts[id]
		if !ok {
			continue
		}
		ranked = append(ranked, Ranked{Thought: t, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Thought.Seq < ranked[j].Thought.Seq
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
