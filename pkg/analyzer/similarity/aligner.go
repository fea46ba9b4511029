package similarity

import (
	"cmp"
	"slices"

	"github.com/panbanda/sift/pkg/fingerprint"
	"github.com/panbanda/sift/pkg/region"
	"github.com/panbanda/sift/pkg/tokenizer"
)

// Aligner groups matching fingerprint pairs into blocks of code that occur
// in the same order in both files.
type Aligner struct {
	minBlockLength int
	// steps are the predecessor offsets tried when extending a run,
	// nearest first.
	steps []Pair
}

// NewAligner creates an aligner. A pair continues a run when both of its
// ordinals advance by 1 to gapTolerance over the run's last pair. Runs with
// fewer than minBlockLength pairs are dropped.
func NewAligner(gapTolerance, minBlockLength int) *Aligner {
	gapTolerance = max(gapTolerance, 1)
	steps := make([]Pair, 0, gapTolerance*gapTolerance)
	for dl := 1; dl <= gapTolerance; dl++ {
		for dr := 1; dr <= gapTolerance; dr++ {
			steps = append(steps, Pair{Left: dl, Right: dr})
		}
	}
	slices.SortStableFunc(steps, func(a, b Pair) int {
		if c := cmp.Compare(max(a.Left, a.Right), max(b.Left, b.Right)); c != 0 {
			return c
		}
		return cmp.Compare(a.Left+a.Right, b.Left+b.Right)
	})
	return &Aligner{
		minBlockLength: max(minBlockLength, 1),
		steps:          steps,
	}
}

type run struct {
	first, last Pair
	length      int
}

func (r *run) match() Match {
	return Match{
		LeftKmers:  region.NewRange(r.first.Left, r.last.Left+1),
		RightKmers: region.NewRange(r.first.Right, r.last.Right+1),
	}
}

// Align clusters pairs into matches ordered by left, then right ordinal.
// Matches contained in another match on both sides are dropped.
func (a *Aligner) Align(pairs []Pair) []Match {
	if len(pairs) == 0 {
		return nil
	}

	sorted := slices.Clone(pairs)
	slices.SortFunc(sorted, comparePairs)
	sorted = slices.Compact(sorted)

	var runs []*run
	open := make(map[Pair]*run, len(sorted))
	for _, p := range sorted {
		var current *run
		for _, step := range a.steps {
			prev := Pair{Left: p.Left - step.Left, Right: p.Right - step.Right}
			if r, ok := open[prev]; ok {
				delete(open, prev)
				current = r
				break
			}
		}
		if current == nil {
			current = &run{first: p}
			runs = append(runs, current)
		}
		current.last = p
		current.length++
		open[p] = current
	}

	matches := make([]Match, 0, len(runs))
	for _, r := range runs {
		if r.length >= a.minBlockLength {
			matches = append(matches, r.match())
		}
	}
	return squash(matches)
}

// squash drops matches lying within a larger match on both sides.
func squash(matches []Match) []Match {
	slices.SortStableFunc(matches, func(x, y Match) int {
		return cmp.Compare(y.LeftKmers.Len()+y.RightKmers.Len(), x.LeftKmers.Len()+x.RightKmers.Len())
	})

	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		contained := false
		for _, k := range kept {
			if k.LeftKmers.ContainsRange(m.LeftKmers) && k.RightKmers.ContainsRange(m.RightKmers) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, m)
		}
	}

	slices.SortFunc(kept, func(x, y Match) int {
		if c := cmp.Compare(x.LeftKmers.From, y.LeftKmers.From); c != 0 {
			return c
		}
		return cmp.Compare(x.RightKmers.From, y.RightKmers.From)
	})
	return kept
}

func comparePairs(x, y Pair) int {
	if c := cmp.Compare(x.Left, y.Left); c != 0 {
		return c
	}
	return cmp.Compare(x.Right, y.Right)
}

// Side is one file of a compared pair.
type Side struct {
	File         *tokenizer.TokenizedFile
	Fingerprints []fingerprint.Fingerprint
}

// tokens converts a k-mer ordinal range into the token range it covers. The
// first and last fingerprints of a file are the window minimum for every
// k-mer before or after them, so a range reaching either one extends to that
// end of the token stream.
func (s Side) tokens(kmers region.Range, k int) region.Range {
	from := s.Fingerprints[kmers.From].Position
	if kmers.From == 0 {
		from = 0
	}
	to := s.Fingerprints[kmers.To-1].Position + k
	if kmers.To == len(s.Fingerprints) {
		to = len(s.File.Tokens)
	}
	return region.NewRange(from, min(to, len(s.File.Tokens)))
}

// Blocks maps matches back to token ranges and source selections. k is the
// k-mer length the fingerprints were computed with.
func (a *Aligner) Blocks(matches []Match, left, right Side, k int) []Block {
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		lt := left.tokens(m.LeftKmers, k)
		rt := right.tokens(m.RightKmers, k)
		blocks = append(blocks, Block{
			Match:          m,
			LeftTokens:     lt,
			RightTokens:    rt,
			LeftSelection:  left.File.Selection(lt),
			RightSelection: right.File.Selection(rt),
		})
	}
	return blocks
}
