package predict

import "attrinfer/internal/graph"

// Candidate is a predicted value together with its clique-weighted score.
type Candidate struct {
	Value string `json:"value"`
	Score int    `json:"score"`
}

// Scored maps each node to zero or one Candidate.
type Scored map[graph.NodeID][]Candidate

// Options tunes the clique-weighted predictor.
type Options struct {
	// CliqueThreshold is the size a neighborhood clique must exceed before
	// the candidate pool is narrowed to it.
	CliqueThreshold int `yaml:"clique_threshold" json:"clique_threshold"`
	// MaxNeighborhood skips clique enumeration for nodes with more neighbors
	// than this. Zero disables the cap.
	MaxNeighborhood int `yaml:"max_neighborhood" json:"max_neighborhood"`
	// CacheSize bounds the number of memoised neighborhoods. Zero disables
	// the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// Parallel runs attribute types concurrently during arbitration.
	Parallel bool `yaml:"parallel" json:"parallel"`
}

// DefaultOptions returns the settings of the reference method.
func DefaultOptions() Options {
	return Options{
		CliqueThreshold: 4,
		MaxNeighborhood: 0,
		CacheSize:       4096,
		Parallel:        false,
	}
}
