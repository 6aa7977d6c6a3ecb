package dhbloom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimalParams(t *testing.T) {
	tests := []struct {
		items  int
		fpRate float64
		wantM  uint64
		wantK  uint32
	}{
		{1_000_000, 0.01, 9_585_059, 7},
		{1000, 0.01, 9586, 7},
		{10000, 0.001, 143_776, 10},
		{100000, 0.0001, 1_917_012, 13},
		{100, 0.1, 480, 3},
		{5000, 0.05, 31_177, 4},
		{1, 0.5, 2, 1},
		{1, 0.99, 1, 1}, // k rounds to 1 from 0.69
	}

	for _, tt := range tests {
		m, k, err := OptimalParams(tt.items, tt.fpRate)
		require.NoError(t, err)
		require.Equal(t, tt.wantM, m, "items=%d fpRate=%v", tt.items, tt.fpRate)
		require.Equal(t, tt.wantK, k, "items=%d fpRate=%v", tt.items, tt.fpRate)
	}
}

func TestOptimalParamsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		fpRate  float64
		wantErr error
	}{
		{"zero items", 0, 0.01, ErrInvalidCapacity},
		{"negative items", -5, 0.01, ErrInvalidCapacity},
		{"zero rate", 100, 0.0, ErrInvalidFPRate},
		{"rate one", 100, 1.0, ErrInvalidFPRate},
		{"negative rate", 100, -0.5, ErrInvalidFPRate},
		{"rate above one", 100, 1.5, ErrInvalidFPRate},
		{"NaN rate", 100, math.NaN(), ErrInvalidFPRate},
		{"infinite rate", 100, math.Inf(1), ErrInvalidFPRate},
		{"too many bits", math.MaxInt, 1e-300, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, k, err := OptimalParams(tt.items, tt.fpRate)
			require.ErrorIs(t, err, tt.wantErr)
			require.Zero(t, m)
			require.Zero(t, k)
		})
	}
}

func TestValidateParams(t *testing.T) {
	require.NoError(t, ValidateParams(1, 1))
	require.NoError(t, ValidateParams(maxBitCount, maxHashCount))
	require.ErrorIs(t, ValidateParams(0, 7), ErrInvalidBitCount)
	require.ErrorIs(t, ValidateParams(maxBitCount+1, 7), ErrTooLarge)
	require.ErrorIs(t, ValidateParams(100, 0), ErrInvalidHashCount)
	require.ErrorIs(t, ValidateParams(100, maxHashCount+1), ErrInvalidHashCount)
}

func TestEstimateFalsePositiveRate(t *testing.T) {
	// Test against known formula
	m := uint64(51200)
	k := uint32(7)
	items := uint64(5000)

	estimated := EstimateFalsePositiveRate(m, k, items)

	// Manual calculation: (1 - e^(-kn/m))^k
	expected := math.Pow(1-math.Exp(-float64(k)*float64(items)/float64(m)), float64(k))
	require.InDelta(t, expected, estimated, 1e-12)

	require.Zero(t, EstimateFalsePositiveRate(m, k, 0))
	require.Zero(t, EstimateFalsePositiveRate(0, k, items))
}

func TestEstimateFalsePositiveRateAtCapacity(t *testing.T) {
	for _, p := range []float64{0.1, 0.01, 0.001} {
		m, k, err := OptimalParams(100_000, p)
		require.NoError(t, err)

		// Rounding k away from the real-valued optimum costs a little, so
		// allow a small margin over the target.
		est := EstimateFalsePositiveRate(m, k, 100_000)
		require.Less(t, est, p*1.1, "p=%v m=%d k=%d", p, m, k)
	}
}

func TestEstimateFalsePositiveRateGrowsPastCapacity(t *testing.T) {
	m, k, err := OptimalParams(1000, 0.01)
	require.NoError(t, err)

	prev := 0.0
	for n := uint64(250); n <= 4000; n *= 2 {
		est := EstimateFalsePositiveRate(m, k, n)
		require.Greater(t, est, prev)
		prev = est
	}
}

func TestWordsFor(t *testing.T) {
	require.Equal(t, uint64(1), wordsFor(1))
	require.Equal(t, uint64(1), wordsFor(64))
	require.Equal(t, uint64(2), wordsFor(65))
	require.Equal(t, uint64(149_767), wordsFor(9_585_059))
}
