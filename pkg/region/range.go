package region

import "fmt"

// Range is a half-open interval [From, To) over token or fingerprint indices.
type Range struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// NewRange creates a range. It panics when to < from, which indicates a
// programming error in the caller.
func NewRange(from, to int) Range {
	if to < from {
		panic(fmt.Sprintf("region: invalid range [%d, %d)", from, to))
	}
	return Range{From: from, To: to}
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.To - r.From
}

// IsEmpty reports whether the range has no indices.
func (r Range) IsEmpty() bool {
	return r.To <= r.From
}

// Contains reports whether i lies within the range.
func (r Range) Contains(i int) bool {
	return i >= r.From && i < r.To
}

// ContainsRange reports whether o lies entirely within r.
func (r Range) ContainsRange(o Range) bool {
	return o.From >= r.From && o.To <= r.To
}

// Overlaps reports whether the ranges share an index.
func (r Range) Overlaps(o Range) bool {
	return r.From < o.To && o.From < r.To
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.From, r.To)
}
