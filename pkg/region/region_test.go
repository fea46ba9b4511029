package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegion_IsEmpty(t *testing.T) {
	assert.True(t, New(1, 2, 1, 2).IsEmpty())
	assert.True(t, New(2, 0, 1, 5).IsEmpty())
	assert.False(t, New(1, 2, 1, 3).IsEmpty())
	assert.False(t, New(1, 9, 2, 0).IsEmpty())
}

func TestRegion_ContainsAndOverlaps(t *testing.T) {
	outer := New(1, 0, 10, 0)

	assert.True(t, outer.Contains(New(2, 4, 3, 1)))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(New(0, 5, 2, 0)))

	assert.True(t, outer.Overlaps(New(9, 5, 12, 0)))
	assert.False(t, outer.Overlaps(New(10, 0, 11, 0)), "end is exclusive")
	assert.False(t, New(0, 0, 1, 0).Overlaps(outer))
}

func TestRegion_Union(t *testing.T) {
	a := New(2, 4, 3, 0)
	b := New(1, 8, 2, 10)

	assert.Equal(t, New(1, 8, 3, 0), a.Union(b))
	assert.Equal(t, a.Union(b), b.Union(a))
}

func TestMerge(t *testing.T) {
	assert.Equal(t, Region{}, Merge())
	assert.Equal(t, New(0, 3, 5, 1), Merge(New(2, 0, 2, 4), New(0, 3, 0, 9), New(4, 0, 5, 1)))
}

func TestFirstDiff(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		others []Region
		want   Region
		found  bool
	}{
		{
			name:   "no children",
			region: New(0, 0, 2, 0),
			want:   New(0, 0, 2, 0),
			found:  true,
		},
		{
			name:   "leading gap",
			region: New(2, 2, 4, 3),
			others: []Region{New(2, 11, 2, 16), New(2, 16, 2, 18), New(2, 19, 4, 3)},
			want:   New(2, 2, 2, 11),
			found:  true,
		},
		{
			name:   "gap between children",
			region: New(0, 0, 0, 20),
			others: []Region{New(0, 5, 0, 10), New(0, 0, 0, 5), New(0, 12, 0, 20)},
			want:   New(0, 10, 0, 12),
			found:  true,
		},
		{
			name:   "trailing gap",
			region: New(0, 0, 1, 0),
			others: []Region{New(0, 0, 0, 30)},
			want:   New(0, 30, 1, 0),
			found:  true,
		},
		{
			name:   "fully covered",
			region: New(0, 0, 0, 10),
			others: []Region{New(0, 0, 0, 6), New(0, 4, 0, 10)},
			found:  false,
		},
		{
			name:   "children outside are ignored",
			region: New(3, 0, 3, 10),
			others: []Region{New(0, 0, 1, 0), New(3, 0, 3, 4)},
			want:   New(3, 4, 3, 10),
			found:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstDiff(tt.region, tt.others)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLastDiff(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		others []Region
		want   Region
		found  bool
	}{
		{
			name:   "no children",
			region: New(0, 0, 2, 0),
			want:   New(0, 0, 2, 0),
			found:  true,
		},
		{
			name:   "trailing whitespace after the last child",
			region: New(2, 2, 11, 2),
			others: []Region{New(6, 2, 6, 30), New(2, 2, 4, 3), New(8, 2, 10, 3)},
			want:   New(10, 3, 11, 2),
			found:  true,
		},
		{
			name:   "closing token after the children",
			region: New(2, 2, 4, 3),
			others: []Region{New(2, 11, 2, 16), New(2, 16, 2, 18), New(3, 4, 3, 19)},
			want:   New(3, 19, 4, 3),
			found:  true,
		},
		{
			name:   "gap between children",
			region: New(0, 0, 0, 20),
			others: []Region{New(0, 5, 0, 10), New(0, 0, 0, 5), New(0, 12, 0, 20)},
			want:   New(0, 10, 0, 12),
			found:  true,
		},
		{
			name:   "leading gap only",
			region: New(0, 0, 1, 0),
			others: []Region{New(0, 4, 1, 0)},
			want:   New(0, 0, 0, 4),
			found:  true,
		},
		{
			name:   "fully covered",
			region: New(0, 0, 0, 10),
			others: []Region{New(0, 0, 0, 6), New(0, 4, 0, 10)},
			found:  false,
		},
		{
			name:   "children outside are ignored",
			region: New(3, 0, 3, 10),
			others: []Region{New(5, 0, 6, 0), New(3, 6, 3, 10)},
			want:   New(3, 0, 3, 6),
			found:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LastDiff(tt.region, tt.others)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFirstAndLastDiffAgreeOnSingleGap(t *testing.T) {
	full := New(1, 0, 1, 20)
	others := []Region{New(1, 0, 1, 8), New(1, 12, 1, 20)}

	first, ok := FirstDiff(full, others)
	assert.True(t, ok)
	last, ok := LastDiff(full, others)
	assert.True(t, ok)
	assert.Equal(t, New(1, 8, 1, 12), first)
	assert.Equal(t, first, last)
}

func TestRange(t *testing.T) {
	r := NewRange(3, 7)

	assert.Equal(t, 4, r.Len())
	assert.False(t, r.IsEmpty())
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(7))
	assert.True(t, r.ContainsRange(NewRange(4, 7)))
	assert.False(t, r.ContainsRange(NewRange(2, 5)))
	assert.True(t, r.Overlaps(NewRange(6, 9)))
	assert.False(t, r.Overlaps(NewRange(7, 9)))
	assert.Equal(t, "[3, 7)", r.String())

	assert.Panics(t, func() { NewRange(5, 4) })
}
