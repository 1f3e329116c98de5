package concept

import (
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Unix(0, 0) }

func gridVec(x, y float32) []float32 { return []float32{x, y} }

func TestClusterFindsTwoDisjointGroups(t *testing.T) {
	points := make(map[string][]float32)
	for i := 0; i < 10; i++ {
		points[idFor("stars", i)] = gridVec(float32(i)*0.01, 0)
	}
	for i := 0; i < 10; i++ {
		points[idFor("soup", i)] = gridVec(10+float32(i)*0.01, 10)
	}

	clusters := Cluster(points, MinClusterSize)
	if len(clusters) < 2 {
		t.Fatalf("Cluster: got %d clusters, want >= 2", len(clusters))
	}

	for _, cl := range clusters {
		if len(cl) < MinClusterSize {
			t.Errorf("cluster size %d below MinClusterSize %d", len(cl), MinClusterSize)
		}
	}

	// The two groups should not be mixed into a single cluster.
	starsCluster := clusterContaining(clusters, idFor("stars", 0))
	soupCluster := clusterContaining(clusters, idFor("soup", 0))
	if starsCluster == soupCluster {
		t.Fatal("stars and soup groups ended up in the same cluster")
	}
}

func idFor(group string, i int) string {
	return group + "-" + string(rune('a'+i))
}

func clusterContaining(clusters [][]string, id string) int {
	for ci, cl := range clusters {
		for _, m := range cl {
			if m == id {
				return ci
			}
		}
	}
	return -1
}

func TestCentroidIsElementwiseMean(t *testing.T) {
	got := Centroid([][]float32{{0, 0}, {2, 4}})
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("Centroid: got %v, want [1 2]", got)
	}
}

func TestReconcileCreatesNewConceptWhenNoMatch(t *testing.T) {
	result := Reconcile(nil, []string{"a", "b", "c", "d"}, []float32{1, 0}, "stars", fixedNow)
	if result.created == nil {
		t.Fatal("Reconcile: want a created concept when no existing concepts match")
	}
	if result.created.Stage != StageEmerging {
		t.Errorf("new concept stage: got %v, want emerging", result.created.Stage)
	}
}

func TestReconcileMergesAboveThreshold(t *testing.T) {
	existing := &Concept{ID: "c1", Centroid: []float32{1, 0}, Members: []string{"x", "y"}}
	result := Reconcile([]*Concept{existing}, []string{"a", "b"}, []float32{1, 0}, "stars", fixedNow)
	if result.matched != existing {
		t.Fatal("Reconcile: want merge into existing near-identical concept")
	}
	if len(existing.Members) != 4 {
		t.Errorf("merged members: got %d, want 4", len(existing.Members))
	}
}

func TestAdvanceLifecycleTransitionsEmergingToEstablished(t *testing.T) {
	c := &Concept{
		ID:            "c1",
		Stage:         StageEmerging,
		Members:       make([]string, 2*MinClusterSize),
		CyclesExisted: MinCyclesEstablished - 1,
	}
	kept, deleted := AdvanceLifecycle([]*Concept{c}, map[string]float64{"c1": 0})
	if len(deleted) != 0 {
		t.Fatalf("unexpected deletion: %v", deleted)
	}
	if kept[0].Stage != StageEstablished {
		t.Errorf("stage after advance: got %v, want established", kept[0].Stage)
	}
}

func TestAdvanceLifecycleDeletesEmptyFadingConcept(t *testing.T) {
	c := &Concept{ID: "c1", Stage: StageFading, Members: nil, BelowMinCycles: FadingCycles}
	kept, deleted := AdvanceLifecycle([]*Concept{c}, map[string]float64{"c1": 0})
	if len(kept) != 0 || len(deleted) != 1 {
		t.Fatalf("got kept=%d deleted=%d, want kept=0 deleted=1", len(kept), len(deleted))
	}
}
