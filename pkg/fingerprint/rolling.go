// Package fingerprint reduces a symbol stream to a sparse set of k-mer hashes
// using a rolling hash and the winnowing selection scheme.
package fingerprint

import "github.com/cespare/xxhash/v2"

// base is the multiplier of the polynomial rolling hash. Arithmetic wraps
// modulo 2^64.
const base uint64 = 0x100000001b3

// HashSymbol maps a token symbol to the 64-bit value fed to a RollingHash.
func HashSymbol(symbol string) uint64 {
	return xxhash.Sum64String(symbol)
}

// RollingHash maintains the hash of the last k symbols fed to it.
//
// Until k symbols have been consumed the returned value is a pre-fill hash
// that must not be used as a k-mer hash; callers track the symbol count.
type RollingHash struct {
	k      int
	window []uint64
	pos    int
	hash   uint64
	// outgoing is base^(k-1), the weight of the oldest symbol in the window.
	outgoing uint64
}

// NewRollingHash creates a rolling hash over windows of k symbols.
func NewRollingHash(k int) *RollingHash {
	outgoing := uint64(1)
	for i := 1; i < k; i++ {
		outgoing *= base
	}
	return &RollingHash{
		k:        k,
		window:   make([]uint64, k),
		outgoing: outgoing,
	}
}

// Next feeds one symbol and returns the hash of the current window in O(1).
func (h *RollingHash) Next(symbol uint64) uint64 {
	old := h.window[h.pos]
	h.window[h.pos] = symbol
	h.pos = (h.pos + 1) % h.k

	h.hash = (h.hash-old*h.outgoing)*base + symbol
	return h.hash
}

// K returns the window length.
func (h *RollingHash) K() int {
	return h.k
}
