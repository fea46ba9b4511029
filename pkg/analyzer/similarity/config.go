package similarity

import (
	"fmt"

	"github.com/panbanda/sift/pkg/tokenizer"
)

// Config holds the engine options of an analysis run.
type Config struct {
	// KmerLength is the number of tokens hashed into one fingerprint.
	KmerLength int `json:"kmer_length"`
	// WindowSize is the number of consecutive k-mers per winnowing window.
	WindowSize int `json:"window_size"`
	// MaxHashPercentage ignores hashes present in more than this fraction of
	// the files. 0 disables the filter.
	MaxHashPercentage float64 `json:"max_hash_percentage,omitempty"`
	// MaxHashCount ignores hashes present in more than this many files.
	// 0 disables the filter.
	MaxHashCount int `json:"max_hash_count,omitempty"`
	// GapTolerance is the largest ordinal step that still continues a block.
	GapTolerance int `json:"gap_tolerance"`
	// MinBlockLength drops blocks with fewer fingerprints.
	MinBlockLength int `json:"min_block_length"`
	// MinSimilarity drops pairs scoring below it from the report.
	MinSimilarity float64 `json:"min_similarity,omitempty"`
	// Limit keeps only the most similar pairs. 0 means no limit.
	Limit    int                `json:"limit,omitempty"`
	Language tokenizer.Language `json:"language"`
	// FailOnParseError aborts the run on the first file that cannot be
	// tokenized instead of reporting it.
	FailOnParseError   bool `json:"fail_on_parse_error,omitempty"`
	RejectSyntaxErrors bool `json:"reject_syntax_errors,omitempty"`
	// ClusterThreshold is the similarity that links two files into the same
	// cluster.
	ClusterThreshold float64 `json:"cluster_threshold"`
}

// DefaultConfig returns the default engine options.
func DefaultConfig() Config {
	return Config{
		KmerLength:       23,
		WindowSize:       17,
		GapTolerance:     1,
		MinBlockLength:   1,
		Language:         tokenizer.LangAuto,
		ClusterThreshold: 0.75,
	}
}

// Validate checks the options that do not depend on the input.
func (c Config) Validate() error {
	switch {
	case c.KmerLength <= 0:
		return fmt.Errorf("%w: kmer length must be positive, got %d", ErrInvalidConfiguration, c.KmerLength)
	case c.WindowSize <= 0:
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfiguration, c.WindowSize)
	case c.MaxHashPercentage < 0 || c.MaxHashPercentage > 1:
		return fmt.Errorf("%w: max hash percentage must be within [0, 1], got %g", ErrInvalidConfiguration, c.MaxHashPercentage)
	case c.MaxHashCount < 0:
		return fmt.Errorf("%w: max hash count must not be negative, got %d", ErrInvalidConfiguration, c.MaxHashCount)
	case c.GapTolerance < 1:
		return fmt.Errorf("%w: gap tolerance must be at least 1, got %d", ErrInvalidConfiguration, c.GapTolerance)
	case c.MinBlockLength < 1:
		return fmt.Errorf("%w: min block length must be at least 1, got %d", ErrInvalidConfiguration, c.MinBlockLength)
	case c.MinSimilarity < 0 || c.MinSimilarity > 1:
		return fmt.Errorf("%w: min similarity must be within [0, 1], got %g", ErrInvalidConfiguration, c.MinSimilarity)
	case c.Limit < 0:
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidConfiguration, c.Limit)
	case c.ClusterThreshold < 0 || c.ClusterThreshold > 1:
		return fmt.Errorf("%w: cluster threshold must be within [0, 1], got %g", ErrInvalidConfiguration, c.ClusterThreshold)
	}
	if _, err := tokenizer.ParseLanguage(string(c.Language)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// validateInput checks the options against the number of input files.
func (c Config) validateInput(files int) error {
	if files < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientInput, files)
	}
	if files == 2 && c.MaxHashPercentage > 0 {
		return fmt.Errorf("%w: max hash percentage needs more than two files, every shared hash is in 100%% of them", ErrInvalidConfiguration)
	}
	return nil
}
