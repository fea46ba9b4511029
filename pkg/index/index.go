// Package index maps fingerprint hashes to the files and positions they
// occur at.
package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/sift/pkg/fingerprint"
)

// Occurrence records one place a hash was selected.
type Occurrence struct {
	// File is the index of the file in the analysis input.
	File int `json:"file"`
	// Ordinal is the index of the fingerprint in the file's selected list.
	Ordinal int `json:"ordinal"`
	// Position is the index of the k-mer's first token.
	Position int `json:"position"`
}

type entry struct {
	occurrences []Occurrence
	files       *roaring.Bitmap
}

// Index is a hash to occurrence multimap. Writers are serialised; readers may
// run concurrently once all writes are done. An Index belongs to a single
// analysis run.
type Index struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
}

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[uint64]*entry)}
}

// Insert records that fp was selected as the ordinal-th fingerprint of file.
func (idx *Index) Insert(file, ordinal int, fp fingerprint.Fingerprint) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insert(file, ordinal, fp)
}

// AddFile inserts all fingerprints of a file, ordinals following slice order.
func (idx *Index) AddFile(file int, fps []fingerprint.Fingerprint) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for ordinal, fp := range fps {
		idx.insert(file, ordinal, fp)
	}
}

func (idx *Index) insert(file, ordinal int, fp fingerprint.Fingerprint) {
	e, ok := idx.entries[fp.Hash]
	if !ok {
		e = &entry{files: roaring.New()}
		idx.entries[fp.Hash] = e
	}
	e.occurrences = append(e.occurrences, Occurrence{File: file, Ordinal: ordinal, Position: fp.Position})
	e.files.Add(uint32(file))
}

// OccurrencesOf returns every occurrence of hash in insertion order. The
// slice is shared and must not be modified.
func (idx *Index) OccurrencesOf(hash uint64) []Occurrence {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if e, ok := idx.entries[hash]; ok {
		return e.occurrences
	}
	return nil
}

// FileCount returns the number of distinct files containing hash.
func (idx *Index) FileCount(hash uint64) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if e, ok := idx.entries[hash]; ok {
		return int(e.files.GetCardinality())
	}
	return 0
}

// Files returns a copy of the set of files containing hash.
func (idx *Index) Files(hash uint64) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if e, ok := idx.entries[hash]; ok {
		return e.files.Clone()
	}
	return roaring.New()
}

// Hashes returns the number of distinct hashes in the index.
func (idx *Index) Hashes() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Range calls fn for every hash with the set of files containing it, in no
// particular order, until fn returns false. The bitmap must not be modified
// and fn must not write to the index.
func (idx *Index) Range(fn func(hash uint64, files *roaring.Bitmap) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for hash, e := range idx.entries {
		if !fn(hash, e.files) {
			return
		}
	}
}
