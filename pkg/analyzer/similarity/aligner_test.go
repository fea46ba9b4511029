package similarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/sift/pkg/fingerprint"
	"github.com/panbanda/sift/pkg/region"
	"github.com/panbanda/sift/pkg/source"
	"github.com/panbanda/sift/pkg/tokenizer"
)

func match(lf, lt, rf, rt int) Match {
	return Match{LeftKmers: region.NewRange(lf, lt), RightKmers: region.NewRange(rf, rt)}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name     string
		gap      int
		minBlock int
		pairs    []Pair
		want     []Match
	}{
		{
			name:  "empty",
			gap:   1,
			pairs: nil,
			want:  nil,
		},
		{
			name:  "two diagonal runs",
			gap:   1,
			pairs: []Pair{{5, 9}, {0, 0}, {2, 2}, {6, 10}, {1, 1}},
			want:  []Match{match(0, 3, 0, 3), match(5, 7, 9, 11)},
		},
		{
			name:  "gap breaks run",
			gap:   1,
			pairs: []Pair{{0, 0}, {2, 2}},
			want:  []Match{match(0, 1, 0, 1), match(2, 3, 2, 3)},
		},
		{
			name:  "gap within tolerance",
			gap:   2,
			pairs: []Pair{{0, 0}, {2, 2}, {3, 4}},
			want:  []Match{match(0, 4, 0, 5)},
		},
		{
			name:     "short runs dropped",
			gap:      1,
			minBlock: 2,
			pairs:    []Pair{{0, 0}, {1, 1}, {7, 3}},
			want:     []Match{match(0, 2, 0, 2)},
		},
		{
			name:  "duplicate pairs compacted",
			gap:   1,
			pairs: []Pair{{0, 0}, {0, 0}, {1, 1}, {1, 1}},
			want:  []Match{match(0, 2, 0, 2)},
		},
		{
			name:  "contained match squashed",
			gap:   1,
			pairs: []Pair{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {1, 2}},
			want:  []Match{match(0, 4, 0, 4)},
		},
		{
			name:  "crossing matches kept",
			gap:   1,
			pairs: []Pair{{0, 4}, {1, 5}, {4, 0}, {5, 1}},
			want:  []Match{match(0, 2, 4, 6), match(4, 6, 0, 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAligner(tt.gap, tt.minBlock).Align(tt.pairs)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlignDoesNotModifyInput(t *testing.T) {
	pairs := []Pair{{2, 2}, {0, 0}, {1, 1}}
	NewAligner(1, 1).Align(pairs)
	assert.Equal(t, []Pair{{2, 2}, {0, 0}, {1, 1}}, pairs)
}

func TestAlignPrefersDiagonal(t *testing.T) {
	// (1,1) and (1,2) both follow (0,0) with gap 2. The diagonal step wins,
	// so the run continues through (1,1) and (2,2).
	got := NewAligner(2, 1).Align([]Pair{{0, 0}, {1, 1}, {1, 2}, {2, 2}})
	require.NotEmpty(t, got)
	assert.Equal(t, match(0, 3, 0, 3), got[0])
}

func charSide(t *testing.T, content string, fps ...fingerprint.Fingerprint) Side {
	t.Helper()
	tf, err := tokenizer.Tokenize(context.Background(), tokenizer.NewCharTokenizer(),
		source.NewFile("f.txt", []byte(content)), tokenizer.LangChar)
	require.NoError(t, err)
	return Side{File: tf, Fingerprints: fps}
}

func TestBlocks(t *testing.T) {
	left := charSide(t, "abcdef",
		fingerprint.Fingerprint{Hash: 1, Position: 0},
		fingerprint.Fingerprint{Hash: 2, Position: 2},
		fingerprint.Fingerprint{Hash: 3, Position: 4},
	)
	right := charSide(t, "xx\nabcdef",
		fingerprint.Fingerprint{Hash: 1, Position: 2},
		fingerprint.Fingerprint{Hash: 2, Position: 4},
		fingerprint.Fingerprint{Hash: 4, Position: 5},
	)

	a := NewAligner(1, 1)
	blocks := a.Blocks([]Match{match(0, 2, 0, 2)}, left, right, 3)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, match(0, 2, 0, 2), b.Match)
	assert.Equal(t, region.NewRange(0, 5), b.LeftTokens)
	// The right match starts at the first fingerprint, so it takes in the
	// leading "xx" as well.
	assert.Equal(t, region.NewRange(0, 7), b.RightTokens)
	assert.Equal(t, region.New(0, 0, 0, 5), b.LeftSelection)
	assert.Equal(t, region.New(0, 0, 1, 5), b.RightSelection)

	blocks = a.Blocks([]Match{match(0, 2, 1, 3)}, left, right, 3)
	require.Len(t, blocks, 1)
	assert.Equal(t, region.NewRange(4, 8), blocks[0].RightTokens)
	assert.Equal(t, region.New(1, 2, 1, 6), blocks[0].RightSelection)

	// The last k-mer runs past the end of the stream.
	blocks = a.Blocks([]Match{match(2, 3, 0, 1)}, left, right, 3)
	require.Len(t, blocks, 1)
	assert.Equal(t, region.NewRange(4, 6), blocks[0].LeftTokens)
	assert.Equal(t, region.New(0, 4, 0, 6), blocks[0].LeftSelection)

	assert.Nil(t, a.Blocks(nil, left, right, 3))
}

func TestBlocksReachFileEdges(t *testing.T) {
	// The left file has no fingerprint on its first or last k-mer, yet a
	// match over all of its fingerprints covers every token. The right match
	// stops short of both ends of its file.
	left := charSide(t, "abcdefgh",
		fingerprint.Fingerprint{Hash: 1, Position: 1},
		fingerprint.Fingerprint{Hash: 2, Position: 3},
	)
	right := charSide(t, "xx\nabcdefgh",
		fingerprint.Fingerprint{Hash: 7, Position: 0},
		fingerprint.Fingerprint{Hash: 1, Position: 3},
		fingerprint.Fingerprint{Hash: 2, Position: 5},
		fingerprint.Fingerprint{Hash: 8, Position: 7},
	)

	blocks := NewAligner(1, 1).Blocks([]Match{match(0, 2, 1, 3)}, left, right, 3)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, region.NewRange(0, 8), b.LeftTokens)
	assert.Equal(t, region.New(0, 0, 0, 8), b.LeftSelection)
	assert.Equal(t, region.NewRange(3, 8), b.RightTokens)
	assert.Equal(t, region.New(1, 1, 1, 6), b.RightSelection)
}
