package config

import _ "embed"

// DefaultAspectsYAML is the curated cluster to aspect table shipped with the
// binary. ASPECT_TAXONOMY_PATH overrides it.
//
//go:embed aspects.yaml
var DefaultAspectsYAML []byte
