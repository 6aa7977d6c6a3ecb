package dhbloom

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

var allHashes = []HashAlgorithm{HashXXH3, HashMurmur3, HashXXHash}

func TestHashStringMatchesBytes(t *testing.T) {
	inputs := []string{"", "a", "hello world", "user:12345", string(make([]byte, 1000))}
	for _, a := range allHashes {
		for _, s := range inputs {
			b1, b2 := a.sum([]byte(s))
			s1, s2 := a.sumString(s)
			require.Equal(t, b1, s1, "%v h1 for %q", a, s)
			require.Equal(t, b2, s2, "%v h2 for %q", a, s)
		}
	}
}

func TestHashPairs(t *testing.T) {
	data := []byte("double hashing")

	h := xxh3.Hash128(data)
	h1, h2 := HashXXH3.sum(data)
	require.Equal(t, h.Lo, h1)
	require.Equal(t, h.Hi, h2)

	m1, m2 := murmur3.Sum128(data)
	h1, h2 = HashMurmur3.sum(data)
	require.Equal(t, m1, h1)
	require.Equal(t, m2, h2)

	h1, h2 = HashXXHash.sum(data)
	require.Equal(t, mix(h1), h2)
}

func TestHashDeterministic(t *testing.T) {
	for _, a := range allHashes {
		h1, h2 := a.sum([]byte("stable"))
		for range 10 {
			g1, g2 := a.sum([]byte("stable"))
			require.Equal(t, h1, g1)
			require.Equal(t, h2, g2)
		}
	}
}

func TestHashUint64(t *testing.T) {
	for _, a := range allHashes {
		h1, h2 := a.sumUint64(0x0102030405060708)
		w1, w2 := a.sum([]byte{8, 7, 6, 5, 4, 3, 2, 1})
		require.Equal(t, w1, h1)
		require.Equal(t, w2, h2)
	}
}

func TestHashHalvesDiffer(t *testing.T) {
	// h1 == h2 for many inputs would mean the two halves are correlated.
	for _, a := range allHashes {
		var equal int
		for i := range 10000 {
			h1, h2 := a.sum(fmt.Appendf(nil, "key-%d", i))
			if h1 == h2 {
				equal++
			}
		}
		require.Zero(t, equal, "%v", a)
	}
}

func TestLocation(t *testing.T) {
	require.Equal(t, uint64(3), location(3, 5, 0, 10))
	require.Equal(t, uint64(8), location(3, 5, 1, 10))
	require.Equal(t, uint64(3), location(3, 5, 2, 10))

	// Wrapping arithmetic: h1 + i*h2 overflows uint64 before the modulo.
	const m = 1000
	h1, h2 := ^uint64(0), uint64(2)
	require.Equal(t, (h1+h2)%m, location(h1, h2, 1, m))
	require.Equal(t, uint64(1), location(h1, h2, 1, m)%m)

	for i := range uint32(100) {
		require.Less(t, location(0xdeadbeefcafebabe, 0x0123456789abcdef, i, 9_585_059), uint64(9_585_059))
	}
}

func TestHashAlgorithmNames(t *testing.T) {
	for _, a := range allHashes {
		parsed, err := ParseHashAlgorithm(a.String())
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	}

	a, err := ParseHashAlgorithm("XXH3")
	require.NoError(t, err)
	require.Equal(t, HashXXH3, a)

	_, err = ParseHashAlgorithm("sha256")
	require.True(t, errors.Is(err, ErrUnknownHash))

	require.Equal(t, "HashAlgorithm(9)", HashAlgorithm(9).String())
	require.False(t, HashAlgorithm(0).valid())
}
