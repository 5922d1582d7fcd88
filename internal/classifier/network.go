// Package classifier is a small feed-forward network over sentence
// embeddings that predicts Negative/Neutral/Positive:
//
//	Dense(128, relu) -> Dropout -> Dense(64, relu) -> Dense(3, softmax)
//
// It is trained with Adam on sparse categorical cross-entropy.
package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/spacesedan/aspectflow/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	Hidden1 = 128
	Hidden2 = 64

	DefaultEpochs          = 5
	DefaultBatchSize       = 128
	DefaultValidationSplit = 0.1
	DefaultDropoutRate     = 0.3
	DefaultLearningRate    = 1e-3

	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
	probFloor   = 1e-7
)

type Config struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	DropoutRate     float64
	LearningRate    float64
	Seed            int64
}

func (c Config) withDefaults() Config {
	if c.Epochs <= 0 {
		c.Epochs = DefaultEpochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = DefaultValidationSplit
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		c.DropoutRate = DefaultDropoutRate
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	return c
}

type EpochMetrics struct {
	Epoch       int
	Loss        float64
	Accuracy    float64
	ValLoss     float64
	ValAccuracy float64
}

type layer struct {
	w *mat.Dense // in x out
	b []float64

	mw, vw *mat.Dense
	mb, vb []float64
}

func newLayer(in, out int, rng *rand.Rand) *layer {
	limit := math.Sqrt(6 / float64(in+out))
	weights := make([]float64, in*out)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * limit
	}
	return &layer{
		w:  mat.NewDense(in, out, weights),
		b:  make([]float64, out),
		mw: mat.NewDense(in, out, nil),
		vw: mat.NewDense(in, out, nil),
		mb: make([]float64, out),
		vb: make([]float64, out),
	}
}

// affine computes x*w + b.
func (l *layer) affine(x mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(x, l.w)
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(z.RawRowView(i), l.b)
	}
	return &z
}

type Network struct {
	cfg      Config
	inputDim int
	layers   [3]*layer
	rng      *rand.Rand
	step     int
}

func NewNetwork(inputDim int, cfg Config) *Network {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Network{
		cfg:      cfg,
		inputDim: inputDim,
		layers: [3]*layer{
			newLayer(inputDim, Hidden1, rng),
			newLayer(Hidden1, Hidden2, rng),
			newLayer(Hidden2, models.NumSentiments, rng),
		},
		rng: rng,
	}
}

func (n *Network) InputDim() int {
	return n.inputDim
}

type activations struct {
	x, z1, a1, mask, z2, a2, probs *mat.Dense
}

func (n *Network) forward(x *mat.Dense, training bool) activations {
	act := activations{x: x}

	act.z1 = n.layers[0].affine(x)
	act.a1 = relu(act.z1)
	if training && n.cfg.DropoutRate > 0 {
		act.mask = n.dropoutMask(act.a1.Dims())
		act.a1.MulElem(act.a1, act.mask)
	}

	act.z2 = n.layers[1].affine(act.a1)
	act.a2 = relu(act.z2)

	act.probs = softmax(n.layers[2].affine(act.a2))
	return act
}

// dropoutMask returns an inverted dropout mask: kept units are scaled by
// 1/(1-rate) so inference needs no rescaling.
func (n *Network) dropoutMask(rows, cols int) *mat.Dense {
	keep := 1 - n.cfg.DropoutRate
	data := make([]float64, rows*cols)
	for i := range data {
		if n.rng.Float64() < keep {
			data[i] = 1 / keep
		}
	}
	return mat.NewDense(rows, cols, data)
}

func (n *Network) backward(act activations, y []int) {
	rows, _ := act.probs.Dims()

	dz3 := mat.DenseCopyOf(act.probs)
	for i, label := range y {
		dz3.Set(i, label, dz3.At(i, label)-1)
	}
	dz3.Scale(1/float64(rows), dz3)

	grads := [3]struct {
		w *mat.Dense
		b []float64
	}{}

	grads[2].w, grads[2].b = paramGrads(act.a2, dz3)
	var da2 mat.Dense
	da2.Mul(dz3, n.layers[2].w.T())
	dz2 := reluGrad(&da2, act.z2)

	grads[1].w, grads[1].b = paramGrads(act.a1, dz2)
	var da1 mat.Dense
	da1.Mul(dz2, n.layers[1].w.T())
	if act.mask != nil {
		da1.MulElem(&da1, act.mask)
	}
	dz1 := reluGrad(&da1, act.z1)

	grads[0].w, grads[0].b = paramGrads(act.x, dz1)

	n.step++
	for i, l := range n.layers {
		n.adam(l, grads[i].w, grads[i].b)
	}
}

func paramGrads(input, dz *mat.Dense) (*mat.Dense, []float64) {
	var dw mat.Dense
	dw.Mul(input.T(), dz)

	_, cols := dz.Dims()
	db := make([]float64, cols)
	for j := 0; j < cols; j++ {
		db[j] = mat.Sum(dz.ColView(j))
	}
	return &dw, db
}

func (n *Network) adam(l *layer, dw *mat.Dense, db []float64) {
	t := float64(n.step)
	lr := n.cfg.LearningRate * math.Sqrt(1-math.Pow(adamBeta2, t)) / (1 - math.Pow(adamBeta1, t))

	update := func(param, grad, m, v []float64) {
		for i, g := range grad {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
			param[i] -= lr * m[i] / (math.Sqrt(v[i]) + adamEpsilon)
		}
	}

	update(l.w.RawMatrix().Data, dw.RawMatrix().Data, l.mw.RawMatrix().Data, l.vw.RawMatrix().Data)
	update(l.b, db, l.mb, l.vb)
}

// Fit trains on x/y. Following Keras' validation_split, the last
// ValidationSplit share of the rows (before shuffling) is held out and
// reported after every epoch.
func (n *Network) Fit(x [][]float64, y []models.Sentiment) ([]EpochMetrics, error) {
	if len(x) == 0 {
		return nil, &TrainingError{Stage: "fit", Err: ErrNoTrainingRows}
	}
	if len(x) != len(y) {
		return nil, &TrainingError{Stage: "fit", Err: fmt.Errorf("%d rows but %d labels", len(x), len(y))}
	}
	for i, v := range x {
		if len(v) != n.inputDim {
			return nil, &TrainingError{Stage: "fit", Err: fmt.Errorf("row %d has dimension %d, want %d", i, len(v), n.inputDim)}
		}
	}

	labels := toInts(y)
	splitAt := int(math.Floor(float64(len(x)) * (1 - n.cfg.ValidationSplit)))
	if splitAt <= 0 {
		splitAt = len(x)
	}
	fitX, fitY := x[:splitAt], labels[:splitAt]
	valX, valY := x[splitAt:], labels[splitAt:]

	var valMatrix *mat.Dense
	if len(valX) > 0 {
		valMatrix = toDense(valX)
	}

	history := make([]EpochMetrics, 0, n.cfg.Epochs)
	order := make([]int, len(fitX))
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= n.cfg.Epochs; epoch++ {
		start := time.Now()
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		lossSum, correct := 0.0, 0
		for b := 0; b < len(order); b += n.cfg.BatchSize {
			idx := order[b:min(b+n.cfg.BatchSize, len(order))]
			batchX := toDense(subset(fitX, idx))
			batchY := subset(fitY, idx)

			act := n.forward(batchX, true)
			loss, hits := scoreBatch(act.probs, batchY)
			lossSum += loss * float64(len(idx))
			correct += hits

			n.backward(act, batchY)
		}

		m := EpochMetrics{
			Epoch:    epoch,
			Loss:     lossSum / float64(len(order)),
			Accuracy: float64(correct) / float64(len(order)),
		}
		if valMatrix != nil {
			probs := n.forward(valMatrix, false).probs
			loss, hits := scoreBatch(probs, valY)
			m.ValLoss = loss
			m.ValAccuracy = float64(hits) / float64(len(valY))
		}
		if math.IsNaN(m.Loss) {
			return history, &TrainingError{Stage: "fit", Err: fmt.Errorf("loss diverged at epoch %d", epoch)}
		}
		history = append(history, m)

		slog.Info("[Classifier] Epoch complete",
			slog.Int("epoch", epoch),
			slog.Float64("loss", m.Loss),
			slog.Float64("accuracy", m.Accuracy),
			slog.Float64("val_loss", m.ValLoss),
			slog.Float64("val_accuracy", m.ValAccuracy),
			slog.Duration("elapsed", time.Since(start)))
	}

	return history, nil
}

// Evaluate returns the mean cross-entropy loss and accuracy on x/y. An empty
// set scores zero on both.
func (n *Network) Evaluate(x [][]float64, y []models.Sentiment) (loss, accuracy float64, err error) {
	if len(x) == 0 {
		return 0, 0, nil
	}
	if len(x) != len(y) {
		return 0, 0, &TrainingError{Stage: "evaluate", Err: fmt.Errorf("%d rows but %d labels", len(x), len(y))}
	}
	probs, err := n.Probabilities(x)
	if err != nil {
		return 0, 0, &TrainingError{Stage: "evaluate", Err: err}
	}
	loss, hits := scoreBatch(probs, toInts(y))
	return loss, float64(hits) / float64(len(y)), nil
}

// Probabilities returns one softmax row per input. Safe for concurrent use
// once training is done.
func (n *Network) Probabilities(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no rows to score")
	}
	for i, v := range x {
		if len(v) != n.inputDim {
			return nil, fmt.Errorf("row %d has dimension %d, want %d", i, len(v), n.inputDim)
		}
	}
	return n.forward(toDense(x), false).probs, nil
}

// Predict returns the arg-max class for every row.
func (n *Network) Predict(x [][]float64) ([]models.Sentiment, error) {
	probs, err := n.Probabilities(x)
	if err != nil {
		return nil, err
	}
	out := make([]models.Sentiment, len(x))
	for i := range out {
		out[i] = models.Sentiment(floats.MaxIdx(probs.RawRowView(i)))
	}
	return out, nil
}

func scoreBatch(probs *mat.Dense, y []int) (loss float64, hits int) {
	for i, label := range y {
		row := probs.RawRowView(i)
		loss -= math.Log(math.Max(row[label], probFloor))
		if floats.MaxIdx(row) == label {
			hits++
		}
	}
	return loss / float64(len(y)), hits
}

func relu(z *mat.Dense) *mat.Dense {
	var a mat.Dense
	a.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, z)
	return &a
}

func reluGrad(upstream, z *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		if z.At(i, j) > 0 {
			return v
		}
		return 0
	}, upstream)
	return &out
}

func softmax(z *mat.Dense) *mat.Dense {
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		maxV := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - maxV)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return z
}

func toDense(rows [][]float64) *mat.Dense {
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data)
}

func toInts(y []models.Sentiment) []int {
	out := make([]int, len(y))
	for i, s := range y {
		out[i] = int(s)
	}
	return out
}
