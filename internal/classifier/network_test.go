package classifier

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyData places each class around its own axis in a 4-d space.
func toyData(n int, seed int64) ([][]float64, []models.Sentiment) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]models.Sentiment, n)
	for i := range x {
		class := i % models.NumSentiments
		v := make([]float64, 4)
		for j := range v {
			v[j] = rng.NormFloat64() * 0.1
		}
		v[class] += 1
		x[i] = v
		y[i] = models.Sentiment(class)
	}
	return x, y
}

func toyConfig() Config {
	return Config{
		Epochs:          30,
		BatchSize:       32,
		ValidationSplit: 0.1,
		DropoutRate:     0.3,
		LearningRate:    0.01,
		Seed:            123,
	}
}

func TestNetworkLearnsSeparableClasses(t *testing.T) {
	x, y := toyData(300, 1)
	net := NewNetwork(4, toyConfig())

	history, err := net.Fit(x, y)
	require.NoError(t, err)
	require.Len(t, history, 30)
	assert.Less(t, history[len(history)-1].Loss, history[0].Loss)

	testX, testY := toyData(60, 2)
	loss, acc, err := net.Evaluate(testX, testY)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.9)
	assert.False(t, math.IsNaN(loss))

	preds, err := net.Predict([][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, []models.Sentiment{models.Negative, models.Neutral, models.Positive}, preds)
}

func TestNetworkDeterministic(t *testing.T) {
	x, y := toyData(90, 3)
	cfg := toyConfig()
	cfg.Epochs = 3

	a := NewNetwork(4, cfg)
	b := NewNetwork(4, cfg)
	ha, err := a.Fit(x, y)
	require.NoError(t, err)
	hb, err := b.Fit(x, y)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestProbabilitiesSumToOne(t *testing.T) {
	net := NewNetwork(4, toyConfig())
	probs, err := net.Probabilities([][]float64{{0.2, -1, 3, 0}})
	require.NoError(t, err)

	row := probs.RawRowView(0)
	require.Len(t, row, models.NumSentiments)
	sum := 0.0
	for _, p := range row {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestFitErrors(t *testing.T) {
	net := NewNetwork(4, toyConfig())

	_, err := net.Fit(nil, nil)
	var trainErr *TrainingError
	require.True(t, errors.As(err, &trainErr))
	assert.Equal(t, "fit", trainErr.Stage)
	assert.ErrorIs(t, err, ErrNoTrainingRows)

	_, err = net.Fit([][]float64{{1, 2}}, []models.Sentiment{models.Positive})
	assert.True(t, errors.As(err, &trainErr))

	_, err = net.Fit([][]float64{{1, 2, 3, 4}}, nil)
	assert.Error(t, err)
}

func TestPredictWrongDimension(t *testing.T) {
	net := NewNetwork(4, toyConfig())
	_, err := net.Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestEvaluateEmpty(t *testing.T) {
	net := NewNetwork(4, toyConfig())
	loss, acc, err := net.Evaluate(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, loss)
	assert.Zero(t, acc)
}

func TestFilterValid(t *testing.T) {
	x := [][]float64{
		{1, 2},
		{},
		{math.NaN(), 1},
		{1, 2, 3},
		{math.Inf(1), 0},
		{3, 4},
		{5, 6},
	}
	y := []models.Sentiment{0, 1, 2, 0, 1, 2, models.Sentiment(7)}

	fx, fy, kept := FilterValid(x, y)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, fx)
	assert.Equal(t, []models.Sentiment{0, 2}, fy)
	assert.Equal(t, []int{0, 5}, kept)
}

func TestFilterValidAllInvalid(t *testing.T) {
	fx, fy, kept := FilterValid([][]float64{{math.NaN()}, {}}, []models.Sentiment{0, 1})
	assert.Empty(t, fx)
	assert.Empty(t, fy)
	assert.Empty(t, kept)
}

func TestTrainTestSplit(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		testSize  float64
		wantTrain int
		wantTest  int
	}{
		{"eighty twenty", 10, 0.2, 8, 2},
		{"rounds test up", 3, 0.2, 2, 1},
		{"keeps one training row", 1, 0.2, 1, 0},
		{"no test share", 5, 0, 5, 0},
		{"empty", 0, 0.2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, test := TrainTestSplit(tt.n, tt.testSize, 123)
			assert.Len(t, train, tt.wantTrain)
			assert.Len(t, test, tt.wantTest)

			all := append(append([]int{}, train...), test...)
			sort.Ints(all)
			for i, v := range all {
				assert.Equal(t, i, v)
			}
		})
	}
}

func TestTrainTestSplitSeeded(t *testing.T) {
	trainA, testA := TrainTestSplit(50, 0.2, 123)
	trainB, testB := TrainTestSplit(50, 0.2, 123)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
}

func TestArtifactRoundTrip(t *testing.T) {
	x, y := toyData(90, 4)
	cfg := toyConfig()
	cfg.Epochs = 5
	net := NewNetwork(4, cfg)
	_, err := net.Fit(x, y)
	require.NoError(t, err)

	art, err := net.Artifact(models.SentimentLabels(), 0.5, 0.8)
	require.NoError(t, err)
	assert.NotEmpty(t, art.ModelID)

	var buf bytes.Buffer
	require.NoError(t, art.Encode(&buf))
	decoded, err := DecodeArtifact(&buf)
	require.NoError(t, err)
	assert.Equal(t, art.ModelID, decoded.ModelID)
	assert.Equal(t, 0.8, decoded.TestAccuracy)

	restored, err := decoded.Network()
	require.NoError(t, err)

	want, err := net.Probabilities(x)
	require.NoError(t, err)
	got, err := restored.Probabilities(x)
	require.NoError(t, err)
	assert.Equal(t, want.RawMatrix().Data, got.RawMatrix().Data)
}

func TestSaveAndLoadArtifact(t *testing.T) {
	net := NewNetwork(4, toyConfig())
	art, err := net.Artifact(models.SentimentLabels(), 0, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "sentiment_model.bin")
	require.NoError(t, SaveArtifact(art, path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, art.InputDim, loaded.InputDim)
	assert.Len(t, loaded.Layers, 3)
}

func TestDecodeArtifactGarbage(t *testing.T) {
	_, err := DecodeArtifact(bytes.NewBufferString("not a model"))
	assert.Error(t, err)
}
