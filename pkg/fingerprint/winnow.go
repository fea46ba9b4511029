package fingerprint

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameters is returned when the k-mer length or window size is
// not a positive integer.
var ErrInvalidParameters = errors.New("k-mer length and window size must be positive")

// Fingerprint is a selected k-mer hash together with the index of the first
// token of that k-mer.
type Fingerprint struct {
	Hash     uint64 `json:"hash"`
	Position int    `json:"position"`
}

// Winnower selects fingerprints such that every window of w consecutive
// k-mers contributes at least one of them. Any shared run of at least
// w+k-1 symbols is therefore guaranteed to produce a shared fingerprint.
type Winnower struct {
	windowSize int
	k          int
}

// NewWinnower creates a winnower for windows of w k-mers of length k.
func NewWinnower(w, k int) (*Winnower, error) {
	if w <= 0 || k <= 0 {
		return nil, fmt.Errorf("%w: k=%d, w=%d", ErrInvalidParameters, k, w)
	}
	return &Winnower{windowSize: w, k: k}, nil
}

// WindowSize returns the number of k-mers per window.
func (wn *Winnower) WindowSize() int { return wn.windowSize }

// K returns the k-mer length.
func (wn *Winnower) K() int { return wn.k }

// Winnow fingerprints a complete symbol sequence.
func (wn *Winnower) Winnow(symbols []string) []Fingerprint {
	s := wn.NewStream()
	fingerprints := make([]Fingerprint, 0, 2*len(symbols)/(wn.windowSize+1)+1)
	for _, sym := range symbols {
		if fp, ok := s.Push(HashSymbol(sym)); ok {
			fingerprints = append(fingerprints, fp)
		}
	}
	return fingerprints
}

// Stream is the incremental form of Winnow. It consumes one symbol at a time
// and needs no lookahead beyond the current window.
type Stream struct {
	hash     *RollingHash
	buffer   []uint64
	w        int
	k        int
	filePos  int
	bufPos   int
	minPos   int
	consumed int
}

// NewStream starts a new fingerprint stream, positions counted from 0.
func (wn *Winnower) NewStream() *Stream {
	buffer := make([]uint64, wn.windowSize)
	for i := range buffer {
		buffer[i] = math.MaxUint64
	}
	return &Stream{
		hash:    NewRollingHash(wn.k),
		buffer:  buffer,
		w:       wn.windowSize,
		k:       wn.k,
		filePos: -wn.k,
	}
}

// Push feeds one symbol value. It returns a fingerprint and true whenever a
// new minimum is selected.
func (s *Stream) Push(symbol uint64) (Fingerprint, bool) {
	s.consumed++
	s.filePos++
	h := s.hash.Next(symbol)
	if s.filePos < 0 {
		return Fingerprint{}, false
	}

	s.bufPos = (s.bufPos + 1) % s.w
	s.buffer[s.bufPos] = h

	if s.minPos == s.bufPos {
		// The previous minimum left the window: rescan from the oldest slot
		// to the newest so ties resolve to the rightmost hash.
		s.minPos = (s.bufPos + 1) % s.w
		for i := 1; i < s.w; i++ {
			j := (s.bufPos + 1 + i) % s.w
			if s.buffer[j] <= s.buffer[s.minPos] {
				s.minPos = j
			}
		}
		return s.selected(), true
	}

	if s.buffer[s.bufPos] <= s.buffer[s.minPos] {
		s.minPos = s.bufPos
		return s.selected(), true
	}
	return Fingerprint{}, false
}

func (s *Stream) selected() Fingerprint {
	age := (s.bufPos - s.minPos + s.w) % s.w
	return Fingerprint{
		Hash:     s.buffer[s.minPos],
		Position: s.filePos - age,
	}
}

// Consumed returns the number of symbols pushed so far.
func (s *Stream) Consumed() int {
	return s.consumed
}
