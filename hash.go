package dhbloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// HashAlgorithm selects the hash function that produces the two base hash
// values h1 and h2 for an item. Every algorithm is deterministic across
// processes, so serialized filters can be reloaded anywhere.
type HashAlgorithm uint8

const (
	// HashXXH3 uses the 128-bit xxh3 hash; the low and high halves are h1 and h2.
	HashXXH3 HashAlgorithm = iota + 1
	// HashMurmur3 uses the 128-bit murmur3 hash; its two 64-bit halves are h1 and h2.
	HashMurmur3
	// HashXXHash uses 64-bit xxHash as h1 and a SplitMix64 scramble of it as h2.
	HashXXHash
)

// DefaultHash is the hash algorithm used by New and NewAtomic.
const DefaultHash = HashXXH3

// ErrUnknownHash is returned for a HashAlgorithm value that names no algorithm.
var ErrUnknownHash = errors.New("dhbloom: unknown hash algorithm")

var hashNames = map[HashAlgorithm]string{
	HashXXH3:    "xxh3",
	HashMurmur3: "murmur3",
	HashXXHash:  "xxhash",
}

// String returns the lowercase name of the algorithm.
func (a HashAlgorithm) String() string {
	if name, ok := hashNames[a]; ok {
		return name
	}
	return fmt.Sprintf("HashAlgorithm(%d)", uint8(a))
}

// ParseHashAlgorithm returns the algorithm with the given name (case-insensitive).
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	for a, n := range hashNames {
		if strings.EqualFold(n, name) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHash, name)
}

func (a HashAlgorithm) valid() bool {
	_, ok := hashNames[a]
	return ok
}

// sum returns the two base hash values for data.
func (a HashAlgorithm) sum(data []byte) (h1, h2 uint64) {
	switch a {
	case HashMurmur3:
		return murmur3.Sum128(data)
	case HashXXHash:
		h1 = xxhash.Sum64(data)
		return h1, mix(h1)
	default:
		h := xxh3.Hash128(data)
		return h.Lo, h.Hi
	}
}

// sumString is sum for strings without copying them.
func (a HashAlgorithm) sumString(s string) (h1, h2 uint64) {
	switch a {
	case HashMurmur3:
		return murmur3.Sum128(stringBytes(s))
	case HashXXHash:
		h1 = xxhash.Sum64String(s)
		return h1, mix(h1)
	default:
		h := xxh3.HashString128(s)
		return h.Lo, h.Hi
	}
}

// sumUint64 hashes v as 8 little-endian bytes.
func (a HashAlgorithm) sumUint64(v uint64) (h1, h2 uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return a.sum(buf[:])
}

// location returns the i-th bit index derived from the base hashes:
// (h1 + i*h2) mod m, with wrapping 64-bit arithmetic.
func location(h1, h2 uint64, i uint32, m uint64) uint64 {
	return (h1 + uint64(i)*h2) % m
}

// mix scrambles x with the SplitMix64 finalizer to derive a second,
// decorrelated hash from a single 64-bit hash.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// stringBytes views s as a byte slice. The result must not be modified.
func stringBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
