package similarity

import (
	"errors"
	"fmt"

	"github.com/panbanda/sift/pkg/region"
	"github.com/panbanda/sift/pkg/stats"
	"github.com/panbanda/sift/pkg/tokenizer"
)

var (
	// ErrInsufficientInput is returned when fewer than two files can be
	// compared.
	ErrInsufficientInput = errors.New("at least two files are required")
	// ErrInvalidConfiguration is returned for option values the analysis
	// cannot run with.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// FailureKind tells which stage a file failed in.
type FailureKind string

const (
	FailureRead  FailureKind = "read"
	FailureParse FailureKind = "parse"
)

// FileFailure records a file that was left out of the analysis.
type FileFailure struct {
	Path    string      `json:"path"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"error"`
	Err     error       `json:"-"`
}

// NewFileFailure creates a failure record for path.
func NewFileFailure(path string, kind FailureKind, err error) FileFailure {
	return FileFailure{Path: path, Kind: kind, Message: err.Error(), Err: err}
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Path, f.Kind, f.Message)
}

// Unwrap returns the underlying error.
func (f FileFailure) Unwrap() error {
	return f.Err
}

// FileInfo describes an analyzed file.
type FileInfo struct {
	Path         string             `json:"path"`
	Language     tokenizer.Language `json:"language"`
	Digest       string             `json:"digest"`
	Tokens       int                `json:"tokens"`
	Fingerprints int                `json:"fingerprints"`
}

// Match is a run of aligned fingerprints, as half-open ranges over the
// ordinals of each file's selected fingerprints.
type Match struct {
	LeftKmers  region.Range `json:"left_kmers"`
	RightKmers region.Range `json:"right_kmers"`
}

// Block is a Match mapped back to token ranges and source regions.
type Block struct {
	Match          Match         `json:"match"`
	LeftTokens     region.Range  `json:"left_tokens"`
	RightTokens    region.Range  `json:"right_tokens"`
	LeftSelection  region.Region `json:"left_selection"`
	RightSelection region.Region `json:"right_selection"`
}

// ScoredDiff is the comparison result of one file pair.
type ScoredDiff struct {
	Left       FileInfo `json:"left"`
	Right      FileInfo `json:"right"`
	Similarity float64  `json:"similarity"`
	// Shared is the number of distinct fingerprints both files contain.
	Shared int `json:"shared"`
	// Identical is set when both files have the same content digest.
	Identical bool    `json:"identical,omitempty"`
	Blocks    []Block `json:"blocks,omitempty"`
}

// Cluster is a group of files connected by pairs at or above the cluster
// threshold.
type Cluster struct {
	ID    int      `json:"id"`
	Files []string `json:"files"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalFiles     int `json:"total_files"`
	AnalyzedFiles  int `json:"analyzed_files"`
	FailedFiles    int `json:"failed_files"`
	ComparedPairs  int `json:"compared_pairs"`
	ReportedPairs  int `json:"reported_pairs"`
	IdenticalPairs int `json:"identical_pairs"`
	// DistinctHashes is the number of distinct fingerprints in the index.
	DistinctHashes int `json:"distinct_hashes"`
	// Similarity summarizes the scores of all compared pairs, before
	// MinSimilarity and Limit are applied.
	Similarity stats.Distribution `json:"similarity"`
}

// Report is the result of one analysis run.
type Report struct {
	Files    []FileInfo    `json:"files"`
	Diffs    []ScoredDiff  `json:"diffs"`
	Clusters []Cluster     `json:"clusters,omitempty"`
	Failures []FileFailure `json:"failures,omitempty"`
	Summary  Summary       `json:"summary"`
	Options  Config        `json:"options"`
}
