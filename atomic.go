package dhbloom

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// AtomicFilter is a thread-safe Bloom filter. It uses the same sizing,
// hashing and index derivation as Filter, so both types agree on which bits
// an item maps to, but stores its bits in atomic.Uint64 words and sets them
// with an atomic OR. Bits are only ever set, so a Contains that happens
// after an Insert always observes that Insert.
type AtomicFilter struct {
	words []atomic.Uint64 // ceil(m/64) words, bit i lives in words[i/64]
	m     uint64          // Number of bits
	k     uint32          // Number of bit positions per item
	hash  HashAlgorithm   // Base hash function
	count atomic.Uint64   // Number of insert calls (approximate item count)
}

// NewAtomic creates a thread-safe filter sized for expectedItems items at
// the target false positive rate fpRate. Errors match those of New.
func NewAtomic(expectedItems int, fpRate float64) (*AtomicFilter, error) {
	return NewAtomicWithConfig(Config{
		ExpectedItems:     expectedItems,
		FalsePositiveRate: fpRate,
		Hash:              DefaultHash,
	})
}

// NewAtomicWithConfig creates a thread-safe filter from cfg.
func NewAtomicWithConfig(cfg Config) (*AtomicFilter, error) {
	m, k, hash, err := cfg.params()
	if err != nil {
		return nil, err
	}
	return newAtomicFilter(m, k, hash), nil
}

// NewAtomicWithParams creates a thread-safe filter with explicit parameters.
func NewAtomicWithParams(m uint64, k uint32, hash HashAlgorithm) (*AtomicFilter, error) {
	if err := ValidateParams(m, k); err != nil {
		return nil, err
	}
	if !hash.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHash, uint8(hash))
	}
	return newAtomicFilter(m, k, hash), nil
}

func newAtomicFilter(m uint64, k uint32, hash HashAlgorithm) *AtomicFilter {
	return &AtomicFilter{
		words: make([]atomic.Uint64, wordsFor(m)),
		m:     m,
		k:     k,
		hash:  hash,
	}
}

// Insert adds data to the filter atomically.
func (f *AtomicFilter) Insert(data []byte) {
	f.insertHash(f.hash.sum(data))
}

// InsertString adds a string to the filter atomically without allocating.
func (f *AtomicFilter) InsertString(s string) {
	f.insertHash(f.hash.sumString(s))
}

// InsertUint64 adds v, hashed as 8 little-endian bytes.
func (f *AtomicFilter) InsertUint64(v uint64) {
	f.insertHash(f.hash.sumUint64(v))
}

// insertHash sets bits atomically using pre-computed hash values.
func (f *AtomicFilter) insertHash(h1, h2 uint64) {
	for i := uint32(0); i < f.k; i++ {
		pos := location(h1, h2, i, f.m)
		f.words[pos/64].Or(uint64(1) << (pos % 64))
	}
	f.count.Add(1)
}

// Contains reports whether data might be in the filter.
// This operation is safe to call concurrently with Insert.
func (f *AtomicFilter) Contains(data []byte) bool {
	return f.containsHash(f.hash.sum(data))
}

// ContainsString reports whether s might be in the filter.
func (f *AtomicFilter) ContainsString(s string) bool {
	return f.containsHash(f.hash.sumString(s))
}

// ContainsUint64 reports whether v might be in the filter.
func (f *AtomicFilter) ContainsUint64(v uint64) bool {
	return f.containsHash(f.hash.sumUint64(v))
}

func (f *AtomicFilter) containsHash(h1, h2 uint64) bool {
	for i := uint32(0); i < f.k; i++ {
		pos := location(h1, h2, i, f.m)
		if f.words[pos/64].Load()&(uint64(1)<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// TestAndInsert inserts data and reports whether it might have been present
// beforehand. The test and the insert are separate steps: two goroutines
// inserting the same new item may both observe false.
func (f *AtomicFilter) TestAndInsert(data []byte) bool {
	h1, h2 := f.hash.sum(data)
	present := f.containsHash(h1, h2)
	f.insertHash(h1, h2)
	return present
}

// TestAndInsertString is TestAndInsert for strings.
func (f *AtomicFilter) TestAndInsertString(s string) bool {
	h1, h2 := f.hash.sumString(s)
	present := f.containsHash(h1, h2)
	f.insertHash(h1, h2)
	return present
}

// BitCount returns m, the number of bits in the filter.
func (f *AtomicFilter) BitCount() uint64 {
	return f.m
}

// HashCount returns k, the number of bit positions per item.
func (f *AtomicFilter) HashCount() uint32 {
	return f.k
}

// Hash returns the base hash algorithm.
func (f *AtomicFilter) Hash() HashAlgorithm {
	return f.hash
}

// Count returns the number of insert calls.
func (f *AtomicFilter) Count() uint64 {
	return f.count.Load()
}

// EstimatedFillRatio returns the proportion of bits that are set.
func (f *AtomicFilter) EstimatedFillRatio() float64 {
	var setBits uint64
	for i := range f.words {
		setBits += uint64(bits.OnesCount64(f.words[i].Load()))
	}
	return float64(setBits) / float64(f.m)
}

// EstimatedFalsePositiveRate estimates the current false positive rate.
func (f *AtomicFilter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.m, f.k, f.count.Load())
}
