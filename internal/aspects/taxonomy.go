package aspects

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const DefaultFallbackLabel = "miscellaneous"

// Taxonomy is the hand-curated cluster index -> aspect label table. It is
// only meaningful for the clustering model it was written against, which the
// Version tag identifies.
type Taxonomy struct {
	Version  string         `yaml:"version"`
	Fallback string         `yaml:"fallback"`
	Clusters map[int]string `yaml:"clusters"`
}

func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse aspect taxonomy: %w", err)
	}
	if t.Fallback == "" {
		t.Fallback = DefaultFallbackLabel
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aspect taxonomy %s: %w", path, err)
	}
	return ParseTaxonomy(data)
}

// Validate checks that cluster indices are contiguous from 0, every label is
// set, the table has DefaultNumClusters entries and unknown phrases fall back
// to DefaultFallbackLabel.
func (t *Taxonomy) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("aspect taxonomy has no version")
	}
	if len(t.Clusters) == 0 {
		return fmt.Errorf("aspect taxonomy %s has no clusters", t.Version)
	}
	for i := 0; i < len(t.Clusters); i++ {
		label, ok := t.Clusters[i]
		if !ok {
			return fmt.Errorf("aspect taxonomy %s is missing cluster %d", t.Version, i)
		}
		if label == "" {
			return fmt.Errorf("aspect taxonomy %s has an empty label for cluster %d", t.Version, i)
		}
	}
	if len(t.Clusters) != DefaultNumClusters {
		return fmt.Errorf("aspect taxonomy %s has %d clusters, want %d", t.Version, len(t.Clusters), DefaultNumClusters)
	}
	if t.Fallback != DefaultFallbackLabel {
		return fmt.Errorf("aspect taxonomy %s has fallback %q, want %q", t.Version, t.Fallback, DefaultFallbackLabel)
	}
	return nil
}

// Size is the number of clusters the table expects.
func (t *Taxonomy) Size() int {
	return len(t.Clusters)
}

// Label returns the label for a cluster index, or the fallback for an index
// outside the table.
func (t *Taxonomy) Label(idx int) string {
	if label, ok := t.Clusters[idx]; ok {
		return label
	}
	return t.Fallback
}

// Labels lists the table's labels in cluster order.
func (t *Taxonomy) Labels() []string {
	keys := make([]int, 0, len(t.Clusters))
	for k := range t.Clusters {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = t.Clusters[k]
	}
	return out
}

func (t *Taxonomy) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}
