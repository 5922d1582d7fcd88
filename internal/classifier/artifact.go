package classifier

import (
	"encoding/gob"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

const ArtifactFormatVersion = 1

type layerBlob struct {
	Rows, Cols int
	Weights    []byte
	Bias       []float64
}

// Artifact is the persisted network: architecture, weights and the metrics
// recorded when it was trained.
type Artifact struct {
	FormatVersion int
	ModelID       string
	CreatedAt     time.Time
	InputDim      int
	DropoutRate   float64
	Layers        []layerBlob
	Labels        []string
	TestLoss      float64
	TestAccuracy  float64
}

func (n *Network) Artifact(labels []string, testLoss, testAccuracy float64) (*Artifact, error) {
	a := &Artifact{
		FormatVersion: ArtifactFormatVersion,
		ModelID:       uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		InputDim:      n.inputDim,
		DropoutRate:   n.cfg.DropoutRate,
		Labels:        labels,
		TestLoss:      testLoss,
		TestAccuracy:  testAccuracy,
	}
	for i, l := range n.layers {
		w, err := l.w.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal layer %d: %w", i, err)
		}
		rows, cols := l.w.Dims()
		a.Layers = append(a.Layers, layerBlob{Rows: rows, Cols: cols, Weights: w, Bias: append([]float64(nil), l.b...)})
	}
	return a, nil
}

func (a *Artifact) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(a)
}

func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode classifier artifact: %w", err)
	}
	if a.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("unsupported classifier artifact format %d", a.FormatVersion)
	}
	return &a, nil
}

// Network rebuilds an inference-only network from the artifact.
func (a *Artifact) Network() (*Network, error) {
	if len(a.Layers) != 3 {
		return nil, fmt.Errorf("classifier artifact has %d layers, want 3", len(a.Layers))
	}

	n := &Network{
		cfg:      Config{DropoutRate: a.DropoutRate}.withDefaults(),
		inputDim: a.InputDim,
		rng:      rand.New(rand.NewSource(0)),
	}
	for i, blob := range a.Layers {
		var w mat.Dense
		if err := w.UnmarshalBinary(blob.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layer %d: %w", i, err)
		}
		rows, cols := w.Dims()
		if rows != blob.Rows || cols != blob.Cols || len(blob.Bias) != cols {
			return nil, fmt.Errorf("layer %d shape mismatch", i)
		}
		n.layers[i] = &layer{
			w:  &w,
			b:  blob.Bias,
			mw: mat.NewDense(rows, cols, nil),
			vw: mat.NewDense(rows, cols, nil),
			mb: make([]float64, cols),
			vb: make([]float64, cols),
		}
	}
	return n, nil
}

func SaveArtifact(a *Artifact, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := a.Encode(f); err != nil {
		return fmt.Errorf("failed to write classifier artifact: %w", err)
	}
	return f.Close()
}

func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeArtifact(f)
}
