// Package region provides source coordinates and index ranges used to map
// fingerprints back to the code they were computed from.
package region

import (
	"cmp"
	"fmt"
	"slices"
)

// Region is a span of source text. Lines and columns are 0-based and the end
// position is exclusive.
type Region struct {
	StartLine int `json:"start_line" yaml:"start_line"`
	StartCol  int `json:"start_col" yaml:"start_col"`
	EndLine   int `json:"end_line" yaml:"end_line"`
	EndCol    int `json:"end_col" yaml:"end_col"`
}

// New creates a region from its four coordinates.
func New(startLine, startCol, endLine, endCol int) Region {
	return Region{
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

type point struct {
	line, col int
}

func (p point) compare(o point) int {
	if c := cmp.Compare(p.line, o.line); c != 0 {
		return c
	}
	return cmp.Compare(p.col, o.col)
}

func (p point) before(o point) bool {
	return p.compare(o) < 0
}

func minPoint(a, b point) point {
	if b.before(a) {
		return b
	}
	return a
}

func maxPoint(a, b point) point {
	if a.before(b) {
		return b
	}
	return a
}

func (r Region) start() point { return point{r.StartLine, r.StartCol} }
func (r Region) end() point   { return point{r.EndLine, r.EndCol} }

func between(start, end point) Region {
	return Region{StartLine: start.line, StartCol: start.col, EndLine: end.line, EndCol: end.col}
}

// IsEmpty reports whether the region covers no text.
func (r Region) IsEmpty() bool {
	return !r.start().before(r.end())
}

// Contains reports whether o lies entirely within r.
func (r Region) Contains(o Region) bool {
	return !o.start().before(r.start()) && !r.end().before(o.end())
}

// Overlaps reports whether r and o share at least one position.
func (r Region) Overlaps(o Region) bool {
	return r.start().before(o.end()) && o.start().before(r.end())
}

// Union returns the smallest region covering both r and o.
func (r Region) Union(o Region) Region {
	return between(minPoint(r.start(), o.start()), maxPoint(r.end(), o.end()))
}

// String formats the region as "line:col-line:col".
func (r Region) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartCol, r.EndLine, r.EndCol)
}

// Merge returns the union of all given regions. It returns the zero Region
// when called without arguments.
func Merge(regions ...Region) Region {
	if len(regions) == 0 {
		return Region{}
	}
	merged := regions[0]
	for _, r := range regions[1:] {
		merged = merged.Union(r)
	}
	return merged
}

// covering returns the non-empty regions of others that overlap r.
func covering(r Region, others []Region) []Region {
	out := make([]Region, 0, len(others))
	for _, o := range others {
		if !o.IsEmpty() && o.Overlaps(r) {
			out = append(out, o)
		}
	}
	return out
}

// FirstDiff returns the first non-empty part of r that is not covered by any
// of the others. The second return value is false when r is fully covered.
func FirstDiff(r Region, others []Region) (Region, bool) {
	cover := covering(r, others)
	slices.SortFunc(cover, func(x, y Region) int {
		return x.start().compare(y.start())
	})

	cursor := r.start()
	for _, o := range cover {
		if cursor.before(o.start()) {
			return between(cursor, minPoint(o.start(), r.end())), true
		}
		cursor = maxPoint(cursor, o.end())
		if !cursor.before(r.end()) {
			return Region{}, false
		}
	}
	if cursor.before(r.end()) {
		return between(cursor, r.end()), true
	}
	return Region{}, false
}

// LastDiff is FirstDiff scanning from the end: it returns the last non-empty
// part of r not covered by any of the others.
func LastDiff(r Region, others []Region) (Region, bool) {
	cover := covering(r, others)
	slices.SortFunc(cover, func(x, y Region) int {
		return y.end().compare(x.end())
	})

	cursor := r.end()
	for _, o := range cover {
		if o.end().before(cursor) {
			return between(maxPoint(o.end(), r.start()), cursor), true
		}
		cursor = minPoint(cursor, o.start())
		if !r.start().before(cursor) {
			return Region{}, false
		}
	}
	if r.start().before(cursor) {
		return between(r.start(), cursor), true
	}
	return Region{}, false
}
