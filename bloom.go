package dhbloom

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

const (
	// DefaultCapacity is the expected item count used by DefaultConfig.
	DefaultCapacity = 1000
	// DefaultFPRate is the target false positive rate used by DefaultConfig.
	DefaultFPRate = 0.01
)

// Config holds the construction parameters of a filter.
type Config struct {
	// ExpectedItems is the number of distinct items the filter is sized for.
	// Inserting more is allowed but raises the false positive rate above
	// FalsePositiveRate.
	ExpectedItems int

	// FalsePositiveRate is the target probability, strictly between 0 and 1,
	// that Contains reports an item that was never inserted once
	// ExpectedItems items are in the filter.
	FalsePositiveRate float64

	// Hash selects the base hash function. The zero value means DefaultHash.
	Hash HashAlgorithm
}

// DefaultConfig returns a configuration for 1000 items at a 1% false
// positive rate using the default hash.
func DefaultConfig() Config {
	return Config{
		ExpectedItems:     DefaultCapacity,
		FalsePositiveRate: DefaultFPRate,
		Hash:              DefaultHash,
	}
}

// Validate reports whether c describes a constructible filter.
func (c Config) Validate() error {
	_, _, _, err := c.params()
	return err
}

// params resolves c into the bit count, hash count and hash algorithm.
func (c Config) params() (m uint64, k uint32, hash HashAlgorithm, err error) {
	hash = c.Hash
	if hash == 0 {
		hash = DefaultHash
	}
	if !hash.valid() {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrUnknownHash, uint8(c.Hash))
	}
	m, k, err = OptimalParams(c.ExpectedItems, c.FalsePositiveRate)
	if err != nil {
		return 0, 0, 0, err
	}
	return m, k, hash, nil
}

// Filter is a Bloom filter over a packed bit array. It derives its k bit
// positions from two base hash values per item using double hashing:
//
//	index_i = (h1 + i*h2) mod m, for i in [0, k)
//
// Filter is not safe for concurrent use; see AtomicFilter.
type Filter struct {
	bits  *bitset.BitSet // m bits, never cleared
	m     uint64         // Number of bits
	k     uint32         // Number of bit positions per item
	hash  HashAlgorithm  // Base hash function
	count uint64         // Number of insert calls (approximate item count)
}

// New creates a filter sized for expectedItems items at the target false
// positive rate fpRate. It returns an error wrapping ErrInvalidCapacity or
// ErrInvalidFPRate if expectedItems <= 0 or fpRate is outside (0, 1).
func New(expectedItems int, fpRate float64) (*Filter, error) {
	return NewWithConfig(Config{
		ExpectedItems:     expectedItems,
		FalsePositiveRate: fpRate,
		Hash:              DefaultHash,
	})
}

// NewWithConfig creates a filter from cfg.
func NewWithConfig(cfg Config) (*Filter, error) {
	m, k, hash, err := cfg.params()
	if err != nil {
		return nil, err
	}
	return newFilter(m, k, hash), nil
}

// NewWithParams creates a filter with an explicit bit count m and hash
// count k, bypassing the sizing formulas.
func NewWithParams(m uint64, k uint32, hash HashAlgorithm) (*Filter, error) {
	if err := ValidateParams(m, k); err != nil {
		return nil, err
	}
	if !hash.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHash, uint8(hash))
	}
	return newFilter(m, k, hash), nil
}

func newFilter(m uint64, k uint32, hash HashAlgorithm) *Filter {
	return &Filter{
		bits: bitset.New(uint(m)),
		m:    m,
		k:    k,
		hash: hash,
	}
}

// Insert adds data to the filter.
func (f *Filter) Insert(data []byte) {
	f.insertHash(f.hash.sum(data))
}

// InsertString adds a string to the filter without allocating.
func (f *Filter) InsertString(s string) {
	f.insertHash(f.hash.sumString(s))
}

// InsertUint64 adds v, hashed as 8 little-endian bytes.
func (f *Filter) InsertUint64(v uint64) {
	f.insertHash(f.hash.sumUint64(v))
}

// insertHash sets the k bits derived from the base hashes.
func (f *Filter) insertHash(h1, h2 uint64) {
	for i := uint32(0); i < f.k; i++ {
		f.bits.Set(uint(location(h1, h2, i, f.m)))
	}
	f.count++
}

// Contains reports whether data might be in the filter. A false result
// means data was never inserted; a true result may be a false positive.
func (f *Filter) Contains(data []byte) bool {
	return f.containsHash(f.hash.sum(data))
}

// ContainsString reports whether s might be in the filter without allocating.
func (f *Filter) ContainsString(s string) bool {
	return f.containsHash(f.hash.sumString(s))
}

// ContainsUint64 reports whether v might be in the filter.
func (f *Filter) ContainsUint64(v uint64) bool {
	return f.containsHash(f.hash.sumUint64(v))
}

// containsHash checks the k bits derived from the base hashes.
func (f *Filter) containsHash(h1, h2 uint64) bool {
	for i := uint32(0); i < f.k; i++ {
		if !f.bits.Test(uint(location(h1, h2, i, f.m))) {
			return false
		}
	}
	return true
}

// TestAndInsert inserts data and reports whether it might have been
// present beforehand. The base hashes are computed once.
func (f *Filter) TestAndInsert(data []byte) bool {
	h1, h2 := f.hash.sum(data)
	present := f.containsHash(h1, h2)
	f.insertHash(h1, h2)
	return present
}

// TestAndInsertString is TestAndInsert for strings.
func (f *Filter) TestAndInsertString(s string) bool {
	h1, h2 := f.hash.sumString(s)
	present := f.containsHash(h1, h2)
	f.insertHash(h1, h2)
	return present
}

// BitCount returns m, the number of bits in the filter.
func (f *Filter) BitCount() uint64 {
	return f.m
}

// HashCount returns k, the number of bit positions per item.
func (f *Filter) HashCount() uint32 {
	return f.k
}

// Hash returns the base hash algorithm.
func (f *Filter) Hash() HashAlgorithm {
	return f.hash
}

// Count returns the number of insert calls. Repeated inserts of the same
// item are counted each time.
func (f *Filter) Count() uint64 {
	return f.count
}

// EstimatedFillRatio returns the proportion of bits that are set.
func (f *Filter) EstimatedFillRatio() float64 {
	return float64(f.bits.Count()) / float64(f.m)
}

// EstimatedFalsePositiveRate estimates the current false positive rate
// based on the number of items inserted.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.m, f.k, f.count)
}
