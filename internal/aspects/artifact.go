package aspects

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
)

const ArtifactFormatVersion = 1

// Artifact is the persisted clustering model. The taxonomy travels with the
// centroids because its labels are only valid for this exact model.
type Artifact struct {
	FormatVersion   int
	RunID           string
	CreatedAt       time.Time
	Seed            int64
	TaxonomyVersion string
	TaxonomyYAML    []byte
	Centroids       []byte
	Assignments     map[string]int
}

func (c *Clusterer) Artifact(runID string) (*Artifact, error) {
	if c.centroids == nil {
		return nil, fmt.Errorf("clusterer has not been fitted")
	}
	centroids, err := c.centroids.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal centroids: %w", err)
	}
	taxonomy, err := c.taxonomy.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal taxonomy: %w", err)
	}
	return &Artifact{
		FormatVersion:   ArtifactFormatVersion,
		RunID:           runID,
		CreatedAt:       time.Now().UTC(),
		Seed:            c.opts.Seed,
		TaxonomyVersion: c.taxonomy.Version,
		TaxonomyYAML:    taxonomy,
		Centroids:       centroids,
		Assignments:     c.assignments,
	}, nil
}

func (a *Artifact) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(a)
}

func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode cluster artifact: %w", err)
	}
	if a.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("unsupported cluster artifact format %d", a.FormatVersion)
	}
	return &a, nil
}

// CentroidMatrix unpacks the stored centroids.
func (a *Artifact) CentroidMatrix() (*mat.Dense, error) {
	var m mat.Dense
	if err := m.UnmarshalBinary(a.Centroids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal centroids: %w", err)
	}
	return &m, nil
}

// PhraseMap rebuilds the label mapping from the stored assignments and
// taxonomy.
func (a *Artifact) PhraseMap() (PhraseMap, error) {
	taxonomy, err := ParseTaxonomy(a.TaxonomyYAML)
	if err != nil {
		return PhraseMap{}, err
	}
	if taxonomy.Version != a.TaxonomyVersion {
		return PhraseMap{}, fmt.Errorf("taxonomy version %s does not match artifact %s", taxonomy.Version, a.TaxonomyVersion)
	}
	labels := make(map[string]string, len(a.Assignments))
	for phrase, idx := range a.Assignments {
		labels[phrase] = taxonomy.Label(idx)
	}
	return NewPhraseMap(labels, taxonomy.Fallback), nil
}

// SaveArtifact writes the gob artifact and a copy of the taxonomy YAML next
// to it.
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
		return fmt.Errorf("failed to write cluster artifact: %w", err)
	}

	taxonomyPath := filepath.Join(filepath.Dir(path), "aspects.yaml")
	if err := os.WriteFile(taxonomyPath, a.TaxonomyYAML, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", taxonomyPath, err)
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
