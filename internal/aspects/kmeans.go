package aspects

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type KMeansConfig struct {
	K       int
	NInit   int
	MaxIter int
	Seed    int64
}

type KMeansResult struct {
	Centroids   *mat.Dense
	Assignments []int
	Inertia     float64
	Iterations  int
}

// KMeans runs Lloyd's algorithm with k-means++ seeding NInit times from one
// seeded source and keeps the run with the lowest inertia. The same data and
// seed always give the same result.
func KMeans(data *mat.Dense, cfg KMeansConfig) KMeansResult {
	n, _ := data.Dims()
	k := min(cfg.K, n)
	if k <= 0 {
		return KMeansResult{}
	}
	nInit := max(cfg.NInit, 1)
	maxIter := max(cfg.MaxIter, 1)

	rng := rand.New(rand.NewSource(cfg.Seed))

	var best KMeansResult
	for run := 0; run < nInit; run++ {
		centroids := initKMeansPlusPlus(data, k, rng)
		res := lloyd(data, centroids, maxIter)
		if run == 0 || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best
}

func initKMeansPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	distances := make([]float64, n)
	for i := range distances {
		distances[i] = math.Inf(1)
	}

	for c := 1; c < k; c++ {
		last := centroids.RawRowView(c - 1)
		total := 0.0
		for j := 0; j < n; j++ {
			if dist := sqDist(data.RawRowView(j), last); dist < distances[j] {
				distances[j] = dist
			}
			total += distances[j]
		}

		if total == 0 {
			centroids.SetRow(c, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * total
		chosen := n - 1
		cum := 0.0
		for j, dist := range distances {
			cum += dist
			if cum >= target && dist > 0 {
				chosen = j
				break
			}
		}
		centroids.SetRow(c, data.RawRowView(chosen))
	}
	return centroids
}

func lloyd(data, centroids *mat.Dense, maxIter int) KMeansResult {
	n, _ := data.Dims()
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := assign(data, centroids, assignments)
		if !changed {
			break
		}
		updateCentroids(data, centroids, assignments)
	}

	return KMeansResult{
		Centroids:   centroids,
		Assignments: assignments,
		Inertia:     inertia(data, centroids, assignments),
		Iterations:  iter,
	}
}

// assign moves every point to its nearest centroid, lowest index on ties.
func assign(data, centroids *mat.Dense, assignments []int) bool {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	changed := false

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		bestCluster, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dist := sqDist(point, centroids.RawRowView(c)); dist < bestDist {
				bestCluster, bestDist = c, dist
			}
		}
		if assignments[i] != bestCluster {
			assignments[i] = bestCluster
			changed = true
		}
	}
	return changed
}

// updateCentroids recomputes each centroid as the mean of its points. An
// empty cluster keeps its previous centroid.
func updateCentroids(data, centroids *mat.Dense, assignments []int) {
	k, d := centroids.Dims()
	sums := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i, c := range assignments {
		floats.Add(sums.RawRowView(c), data.RawRowView(i))
		counts[c]++
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		row := sums.RawRowView(c)
		floats.Scale(1/float64(counts[c]), row)
		centroids.SetRow(c, row)
	}
}

func inertia(data, centroids *mat.Dense, assignments []int) float64 {
	total := 0.0
	for i, c := range assignments {
		total += sqDist(data.RawRowView(i), centroids.RawRowView(c))
	}
	return total
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
