// Package dhbloom provides Bloom filters that derive their bit positions by
// double hashing.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not – if the filter says an element is not present,
// it definitely is not. If it says an element might be present, it could be a
// false positive. Elements cannot be removed.
//
// # Architecture
//
// Sizing: for n expected items and a target false positive rate p, the
// filter uses the closed-form optimum
//
//	m = ceil(-(n * ln(p)) / ln(2)²)   bits
//	k = round((m / n) * ln(2))        bit positions per item (at least 1)
//
// Double hashing: instead of computing k independent hash functions, every
// operation computes two base hash values h1 and h2 and derives
//
//	index_i = (h1 + i*h2) mod m, for i in [0, k)
//
// with wrapping 64-bit arithmetic. The cost of hashing is therefore constant
// in k. This is the construction from "Less Hashing, Same Performance".
//
// Storage: bits are packed 64 to a word, so a filter occupies about m/8 bytes.
//
// # Implementations
//
// [Filter] is the fastest option for single-threaded workloads. It has no
// synchronization and is not safe for concurrent use.
//
// [AtomicFilter] sets bits with [sync/atomic.Uint64.Or] and is safe for
// concurrent Insert and Contains. Both types map an item to the same bits.
//
// # Choosing Parameters
//
// Use [New] or [NewAtomic] with your expected number of items and desired
// false positive rate:
//
//	// Filter for 1 million items with 1% false positive rate
//	f, err := dhbloom.New(1_000_000, 0.01)
//
// This yields m = 9,585,059 bits (about 1.2 MB) and k = 7. Invalid
// parameters (a non-positive item count or a rate outside (0, 1)) are
// returned as errors; they are never silently replaced. [NewWithConfig]
// additionally selects the base hash function, and [NewWithParams] accepts m
// and k directly.
//
// # Hash Functions
//
// [HashXXH3] (the default) and [HashMurmur3] take h1 and h2 from the two
// halves of a 128-bit hash. [HashXXHash] takes h1 from 64-bit xxHash and h2
// from a SplitMix64 scramble of h1. All are deterministic across processes.
//
// # False Positive Rate
//
// When the filter holds its configured number of items, it achieves
// approximately the target false positive rate. Inserting more items than
// that is allowed and never fails, but the rate rises above the target and
// nothing reports it. Use [Filter.EstimatedFalsePositiveRate] to monitor it.
//
// # Serialization
//
// Both filter types implement [encoding.BinaryMarshaler]. [UnmarshalBinary]
// and [UnmarshalAtomicBinary] restore a filter and verify its checksum.
//
// # References
//
//   - Less Hashing, Same Performance: https://www.eecs.harvard.edu/~michaelm/postscripts/rsa2008.pdf
//   - Space/Time Trade-offs in Hash Coding with Allowable Errors (Bloom, 1970)
package dhbloom
