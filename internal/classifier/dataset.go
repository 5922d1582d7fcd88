package classifier

import (
	"errors"
	"math"
	"math/rand"

	"github.com/spacesedan/aspectflow/internal/embeddings"
	"github.com/spacesedan/aspectflow/internal/models"
)

var ErrNoTrainingRows = errors.New("no usable training rows")

// FilterValid drops rows whose embedding is empty, has the wrong dimension
// or holds NaN/Inf, and rows whose label is out of range. The expected
// dimension is taken from the first usable row. kept holds the original
// indices of the surviving rows.
func FilterValid(x [][]float64, y []models.Sentiment) (fx [][]float64, fy []models.Sentiment, kept []int) {
	dim := 0
	for i, v := range x {
		if dim == 0 && embeddings.IsValid(v, 0) {
			dim = len(v)
		}
		if !embeddings.IsValid(v, dim) {
			continue
		}
		if i >= len(y) || y[i] < 0 || int(y[i]) >= models.NumSentiments {
			continue
		}
		fx = append(fx, v)
		fy = append(fy, y[i])
		kept = append(kept, i)
	}
	return fx, fy, kept
}

// TrainTestSplit shuffles 0..n-1 with a seeded source and returns the
// training and test indices. The test share is rounded up, but at least one
// row is always left for training.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTest = max(0, min(nTest, n-1))

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest]
}

func subset[T any](items []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
