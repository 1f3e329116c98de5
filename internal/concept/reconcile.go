package concept

import (
	"sort"
	"time"

	"github.com/ehrlich-b/noetic/internal/embedding"
)

const (
	// MergeSimilarity is the cosine threshold above which a new cluster
	// is folded into an existing concept outright.
	MergeSimilarity = 0.85
	// RelatedSimilarity is the lower threshold for recording a related
	// edge when a cluster is ambiguous between two or more concepts.
	RelatedSimilarity = 0.70
	// EdgeSimilarity is the centroid-similarity floor for drawing a
	// concept-graph edge between two concepts that share no members.
	EdgeSimilarity = 0.60
)

// reconcileResult is what Reconcile decides for one freshly-clustered
// group of thought ids.
type reconcileResult struct {
	// matched is the existing concept merged into, or nil if a new
	// concept was created.
	matched *Concept
	created *Concept
}

// Reconcile folds one new cluster into the existing concept population:
// merge into the best match above MergeSimilarity, merge into the best
// of several ambiguous matches above RelatedSimilarity (recording the
// runner-up as a related edge), or create a new emerging concept.
func Reconcile(existing []*Concept, memberIDs []string, centroid []float32, label string, now func() time.Time) reconcileResult {
	type scored struct {
		c   *Concept
		sim float64
	}
	var candidates []scored
	for _, c := range existing {
		if c.Stage == StageFading && len(c.Members) == 0 {
			continue
		}
		candidates = append(candidates, scored{c: c, sim: CosineSimilarity(centroid, c.Centroid)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })

	if len(candidates) > 0 && candidates[0].sim >= MergeSimilarity {
		best := candidates[0].c
		mergeInto(best, memberIDs, centroid, now)
		return reconcileResult{matched: best}
	}

	aboveRelated := 0
	for _, s := range candidates {
		if s.sim >= RelatedSimilarity {
			aboveRelated++
		}
	}
	if aboveRelated >= 2 {
		best := candidates[0].c
		mergeInto(best, memberIDs, centroid, now)
		second := candidates[1].c
		addEdge(best, second.ID, candidates[1].sim)
		addEdge(second, best.ID, candidates[1].sim)
		return reconcileResult{matched: best}
	}

	nc := &Concept{
		ID:          newConceptID(),
		Label:       label,
		Stage:       StageEmerging,
		Centroid:    centroid,
		Members:     append([]string{}, memberIDs...),
		FirstSeen:   now(),
		LastUpdated: now(),
	}
	return reconcileResult{created: nc}
}

// mergeInto unions members, recomputes the centroid as a membership-
// weighted mean of the old and new sets, and bumps last-updated.
func mergeInto(c *Concept, newMembers []string, newCentroid []float32, now func() time.Time) {
	oldCount := len(c.Members)
	for _, id := range newMembers {
		c.addMember(id)
	}
	newCount := len(newMembers)
	total := oldCount + newCount
	if total == 0 {
		return
	}
	wOld := float64(oldCount) / float64(total)
	wNew := float64(newCount) / float64(total)
	c.Centroid = weightedMean(c.Centroid, newCentroid, wOld, wNew)
	c.LastUpdated = now()
}

func weightedMean(a, b []float32, wa, wb float64) []float32 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return embedding.Blend(a, b, float32(wa), float32(wb))
}

func addEdge(c *Concept, target string, weight float64) {
	for i, e := range c.Edges {
		if e.Target == target {
			if weight > c.Edges[i].Weight {
				c.Edges[i].Weight = weight
			}
			return
		}
	}
	c.Edges = append(c.Edges, Edge{Target: target, Weight: weight})
}

// RecomputeEdges recomputes the concept graph from scratch: for every
// pair sharing at least one member or with centroid similarity at or
// above EdgeSimilarity, set edge weight = Jaccard(members) + 0.5 ·
// centroid similarity, clipped to 1.
func RecomputeEdges(concepts []*Concept) {
	for _, c := range concepts {
		c.Edges = nil
	}
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			a, b := concepts[i], concepts[j]
			jaccard := jaccardSimilarity(a.Members, b.Members)
			cos := CosineSimilarity(a.Centroid, b.Centroid)
			if jaccard == 0 && cos < EdgeSimilarity {
				continue
			}
			weight := jaccard + 0.5*cos
			if weight > 1 {
				weight = 1
			}
			addEdge(a, b.ID, weight)
			addEdge(b, a.ID, weight)
		}
	}
}

func jaccardSimilarity(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, id := range a {
		setA[id] = true
	}
	setB := make(map[string]bool, len(b))
	for _, id := range b {
		setB[id] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for id := range setA {
		if setB[id] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
