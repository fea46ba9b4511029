package similarity

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/sift/pkg/fingerprint"
	"github.com/panbanda/sift/pkg/index"
)

// CompareOptions controls which hashes count as evidence.
type CompareOptions struct {
	// MaxHashPercentage excludes hashes found in more than this fraction of
	// the files. 0 disables the filter.
	MaxHashPercentage float64
	// MaxHashCount excludes hashes found in more than this many files.
	// 0 disables the filter.
	MaxHashCount int
	// Ignored hashes never count, typically those of template files.
	Ignored map[uint64]struct{}
}

// Pair links the ordinal of a fingerprint in the left file to the ordinal of
// a fingerprint with the same hash in the right file.
type Pair struct {
	Left  int
	Right int
}

// PairResult is the raw comparison of two indexed files.
type PairResult struct {
	Left       int
	Right      int
	Similarity float64
	Shared     int
	Pairs      []Pair
}

// Candidate is a file pair sharing at least one counted hash.
type Candidate struct {
	Left   int
	Right  int
	Shared int
}

// Comparer scores file pairs using a fingerprint index. It only reads the
// index and is safe for concurrent use once constructed.
type Comparer struct {
	idx      *index.Index
	total    int
	opts     CompareOptions
	excluded map[uint64]struct{}
	// distinct holds the sorted distinct counted hashes of each file.
	distinct [][]uint64
}

// NewComparer prepares pairwise comparison of files, whose fingerprints
// have been inserted into idx under their slice index.
func NewComparer(idx *index.Index, files [][]fingerprint.Fingerprint, opts CompareOptions) (*Comparer, error) {
	if opts.MaxHashPercentage > 0 && len(files) == 2 {
		return nil, fmt.Errorf("%w: max hash percentage needs more than two files", ErrInvalidConfiguration)
	}

	c := &Comparer{
		idx:      idx,
		total:    len(files),
		opts:     opts,
		excluded: make(map[uint64]struct{}),
		distinct: make([][]uint64, len(files)),
	}

	idx.Range(func(hash uint64, set *roaring.Bitmap) bool {
		if c.exclude(hash, int(set.GetCardinality())) {
			c.excluded[hash] = struct{}{}
		}
		return true
	})

	for i, fps := range files {
		hashes := make([]uint64, 0, len(fps))
		for _, fp := range fps {
			if !c.Excluded(fp.Hash) {
				hashes = append(hashes, fp.Hash)
			}
		}
		slices.Sort(hashes)
		c.distinct[i] = slices.Compact(hashes)
	}
	return c, nil
}

func (c *Comparer) exclude(hash uint64, files int) bool {
	if _, ok := c.opts.Ignored[hash]; ok {
		return true
	}
	if c.opts.MaxHashPercentage > 0 && c.total > 0 &&
		float64(files)/float64(c.total) > c.opts.MaxHashPercentage {
		return true
	}
	return c.opts.MaxHashCount > 0 && files > c.opts.MaxHashCount
}

// Excluded reports whether hash is left out of scoring and alignment.
func (c *Comparer) Excluded(hash uint64) bool {
	_, ok := c.excluded[hash]
	return ok
}

// Distinct returns the number of distinct counted hashes of a file.
func (c *Comparer) Distinct(file int) int {
	return len(c.distinct[file])
}

// Compare scores left against right. Pairs holds every combination of
// ordinals of the shared hashes, in no particular order.
func (c *Comparer) Compare(left, right int) PairResult {
	result := PairResult{Left: left, Right: right}
	a, b := c.distinct[left], c.distinct[right]

	var leftOrdinals, rightOrdinals []int
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			result.Shared++
			leftOrdinals, rightOrdinals = leftOrdinals[:0], rightOrdinals[:0]
			for _, occ := range c.idx.OccurrencesOf(a[i]) {
				switch occ.File {
				case left:
					leftOrdinals = append(leftOrdinals, occ.Ordinal)
				case right:
					rightOrdinals = append(rightOrdinals, occ.Ordinal)
				}
			}
			for _, l := range leftOrdinals {
				for _, r := range rightOrdinals {
					result.Pairs = append(result.Pairs, Pair{Left: l, Right: r})
				}
			}
			i++
			j++
		}
	}

	result.Similarity = Dice(result.Shared, len(a), len(b))
	return result
}

// Dice returns 2*shared / (left + right), or 0 when both sets are empty.
func Dice(shared, left, right int) float64 {
	if left+right == 0 {
		return 0
	}
	return 2 * float64(shared) / float64(left+right)
}

// CandidatePairs walks the index once and returns every file pair sharing
// at least one counted hash, ordered by left then right file.
func (c *Comparer) CandidatePairs() []Candidate {
	counts := make(map[Pair]int)
	var files []uint32
	c.idx.Range(func(hash uint64, set *roaring.Bitmap) bool {
		if c.Excluded(hash) || set.GetCardinality() < 2 {
			return true
		}
		files = set.ToArray()
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				counts[Pair{Left: int(files[i]), Right: int(files[j])}]++
			}
		}
		return true
	})

	candidates := make([]Candidate, 0, len(counts))
	for p, n := range counts {
		candidates = append(candidates, Candidate{Left: p.Left, Right: p.Right, Shared: n})
	}
	slices.SortFunc(candidates, func(x, y Candidate) int {
		if x.Left != y.Left {
			return x.Left - y.Left
		}
		return x.Right - y.Right
	})
	return candidates
}
