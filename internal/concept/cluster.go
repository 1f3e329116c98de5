package concept

import (
	"math"
	"sort"

	"github.com/ehrlich-b/noetic/internal/embedding"
	"gonum.org/v1/gonum/floats"
)

// MinClusterSize is the minimum member count for a cluster to be
// considered signal rather than noise.
const MinClusterSize = 4

// ActivationFloor is θ: thoughts below this activation are excluded
// from clustering entirely.
const ActivationFloor = 0.2

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// kDistanceEpsilon estimates DBSCAN's epsilon from the k-th nearest
// neighbor distance of every point, the standard k-distance heuristic:
// sort each point's k-distance, and take the mean plus one standard
// deviation as the "knee" — cheap to compute and stable enough for the
// corpus sizes this substrate expects (tens of thousands of thoughts).
func kDistanceEpsilon(points [][]float64, k int) float64 {
	if len(points) <= k {
		return 0
	}
	kDistances := make([]float64, len(points))
	for i, p := range points {
		dists := make([]float64, 0, len(points)-1)
		for j, q := range points {
			if i == j {
				continue
			}
			dists = append(dists, euclidean(p, q))
		}
		sort.Float64s(dists)
		idx := k - 1
		if idx >= len(dists) {
			idx = len(dists) - 1
		}
		kDistances[i] = dists[idx]
	}
	mean := floats.Sum(kDistances) / float64(len(kDistances))
	var variance float64
	for _, d := range kDistances {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(kDistances))
	return mean + math.Sqrt(variance)
}

// Cluster runs a DBSCAN pass over points (thought id -> embedding),
// returning the id sets of each cluster found. Points not assigned to
// any cluster (noise) are omitted.
func Cluster(points map[string][]float32, minPts int) [][]string {
	ids := make([]string, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic iteration order for reproducible runs

	orderedVecs := make([][]float64, len(ids))
	for i, id := range ids {
		orderedVecs[i] = toFloat64(points[id])
	}

	eps := kDistanceEpsilon(orderedVecs, minPts)
	if eps == 0 {
		return nil
	}

	visited := make(map[string]bool, len(ids))
	assigned := make(map[string]bool, len(ids))
	var clusters [][]string

	neighbors := func(i int) []int {
		var out []int
		for j := range ids {
			if i == j {
				continue
			}
			if euclidean(orderedVecs[i], orderedVecs[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	for i, id := range ids {
		if visited[id] {
			continue
		}
		visited[id] = true
		neigh := neighbors(i)
		if len(neigh)+1 < minPts {
			continue // noise, ignored
		}

		cluster := []string{id}
		assigned[id] = true
		queue := append([]int{}, neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			jid := ids[j]
			if !visited[jid] {
				visited[jid] = true
				jNeigh := neighbors(j)
				if len(jNeigh)+1 >= minPts {
					queue = append(queue, jNeigh...)
				}
			}
			if !assigned[jid] {
				assigned[jid] = true
				cluster = append(cluster, jid)
			}
		}

		if len(cluster) >= minPts {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

// Centroid returns the element-wise mean of a set of vectors.
func Centroid(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dims := len(vecs[0])
	sums := make([]float64, dims)
	for _, v := range vecs {
		for i, f := range v {
			sums[i] += float64(f)
		}
	}
	floats.Scale(1/float64(len(vecs)), sums)
	out := make([]float32, dims)
	for i, s := range sums {
		out[i] = float32(s)
	}
	return out
}

// CosineSimilarity returns the cosine similarity between a and b as a
// float64, for callers (centroid scoring, reconciliation) that compare
// against float64-valued thresholds.
func CosineSimilarity(a, b []float32) float64 {
	return float64(embedding.Cosine(a, b))
}
