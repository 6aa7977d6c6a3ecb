package dhbloom

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014

	// maxBitCount bounds m so that word counts and serialized sizes stay
	// addressable as int on 64-bit platforms.
	maxBitCount = uint64(1) << 56

	// maxHashCount bounds k. The smallest positive float64 rate yields k≈1075.
	maxHashCount = 4096
)

// Configuration errors. Constructors wrap these with the offending value so
// callers can match them with errors.Is.
var (
	// ErrInvalidCapacity is returned when the expected item count is not positive.
	ErrInvalidCapacity = errors.New("dhbloom: expected items must be positive")

	// ErrInvalidFPRate is returned when the false positive rate is outside (0, 1).
	ErrInvalidFPRate = errors.New("dhbloom: false positive rate must be in (0, 1)")

	// ErrInvalidBitCount is returned for a zero bit count.
	ErrInvalidBitCount = errors.New("dhbloom: bit count must be positive")

	// ErrInvalidHashCount is returned for a hash count of zero or above the supported maximum.
	ErrInvalidHashCount = errors.New("dhbloom: invalid hash count")

	// ErrTooLarge is returned when the derived bit array would exceed the supported size.
	ErrTooLarge = errors.New("dhbloom: filter too large")
)

// OptimalParams derives the bit count m and hash count k for a filter that
// holds expectedItems items at the given false positive rate:
//
//	m = ceil(-(n * ln(p)) / ln(2)^2)
//	k = round((m / n) * ln(2)), at least 1
//
// Invalid inputs are reported as errors and are never clamped.
func OptimalParams(expectedItems int, fpRate float64) (m uint64, k uint32, err error) {
	if expectedItems <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidCapacity, expectedItems)
	}
	// Written as a negated conjunction so NaN is rejected too.
	if !(fpRate > 0 && fpRate < 1) {
		return 0, 0, fmt.Errorf("%w: got %v", ErrInvalidFPRate, fpRate)
	}

	n := float64(expectedItems)
	mFloat := math.Ceil(-(n * math.Log(fpRate)) / ln2Squared)
	if mFloat > float64(maxBitCount) {
		return 0, 0, fmt.Errorf("%w: %d items at rate %v needs %.0f bits", ErrTooLarge, expectedItems, fpRate, mFloat)
	}
	m = max(uint64(mFloat), 1)

	kFloat := math.Round(float64(m) / n * ln2)
	if kFloat > maxHashCount {
		return 0, 0, fmt.Errorf("%w: rate %v needs %.0f hashes", ErrInvalidHashCount, fpRate, kFloat)
	}
	k = max(uint32(kFloat), 1)

	return m, k, nil
}

// ValidateParams checks explicit filter parameters.
func ValidateParams(m uint64, k uint32) error {
	if m == 0 {
		return ErrInvalidBitCount
	}
	if m > maxBitCount {
		return fmt.Errorf("%w: %d bits", ErrTooLarge, m)
	}
	if k == 0 || k > maxHashCount {
		return fmt.Errorf("%w: got %d, want 1-%d", ErrInvalidHashCount, k, maxHashCount)
	}
	return nil
}

// EstimateFalsePositiveRate estimates the false positive rate of a filter
// with m bits and k hashes holding itemsAdded items.
// Formula: (1 - e^(-kn/m))^k
func EstimateFalsePositiveRate(m uint64, k uint32, itemsAdded uint64) float64 {
	if m == 0 || itemsAdded == 0 {
		return 0
	}

	mf := float64(m)
	n := float64(itemsAdded)
	kf := float64(k)

	return math.Pow(1-math.Exp(-kf*n/mf), kf)
}

// wordsFor returns the number of 64-bit words needed to hold m bits.
func wordsFor(m uint64) uint64 {
	return (m + 63) / 64
}
