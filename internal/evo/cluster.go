package evo

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const clusterMaxIterations = 50

// clusterPopulation partitions genomes into k species queues by Lloyd
// k-means over their genetic-distance feature vectors. Returned groups hold
// indices into the input slice; every group is non-empty.
func clusterPopulation[G Genome](genomes []G, k int, rng *rand.Rand) ([][]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("species count must be > 0, got %d", k)
	}
	if len(genomes) < k {
		return nil, fmt.Errorf("cannot split %d genomes into %d species", len(genomes), k)
	}
	if k == 1 {
		all := make([]int, len(genomes))
		for i := range genomes {
			all[i] = i
		}
		return [][]int{all}, nil
	}

	features := make([][]float64, len(genomes))
	dim := len(genomes[0].ClusterFeatures())
	for i, g := range genomes {
		f := g.ClusterFeatures()
		if len(f) != dim {
			return nil, fmt.Errorf("genome %d: feature length %d, want %d", g.Identity(), len(f), dim)
		}
		features[i] = f
	}

	centroids := initialCentroids(features, k, rng)
	assignment := make([]int, len(features))

	for iter := 0; iter < clusterMaxIterations; iter++ {
		changed := false
		for i, f := range features {
			best := nearestCentroid(f, centroids)
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}
		recomputeCentroids(features, assignment, centroids)
	}

	groups := make([][]int, k)
	for i, c := range assignment {
		groups[c] = append(groups[c], i)
	}
	fillEmptyClusters(groups, features, centroids)
	return groups, nil
}

// initialCentroids picks k distinct members as starting centroids.
func initialCentroids(features [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(features))
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float64(nil), features[perm[c]]...)
	}
	return centroids
}

func nearestCentroid(f []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		if d := floats.Distance(f, centroid, 2); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func recomputeCentroids(features [][]float64, assignment []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range centroids {
		sums[c] = make([]float64, len(centroids[c]))
	}
	for i, f := range features {
		c := assignment[i]
		floats.Add(sums[c], f)
		counts[c]++
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		copy(centroids[c], sums[c])
	}
}

// fillEmptyClusters steals the member farthest from its centroid out of the
// largest group, so every species queue starts populated.
func fillEmptyClusters(groups [][]int, features [][]float64, centroids [][]float64) {
	for c := range groups {
		if len(groups[c]) > 0 {
			continue
		}
		donor := 0
		for g := range groups {
			if len(groups[g]) > len(groups[donor]) {
				donor = g
			}
		}
		if len(groups[donor]) <= 1 {
			continue
		}
		farthest := 0
		farthestDist := -1.0
		for pos, idx := range groups[donor] {
			if d := floats.Distance(features[idx], centroids[donor], 2); d > farthestDist {
				farthestDist = d
				farthest = pos
			}
		}
		moved := groups[donor][farthest]
		groups[donor] = append(groups[donor][:farthest], groups[donor][farthest+1:]...)
		groups[c] = append(groups[c], moved)
	}
}
