// analysis measures the empirical false positive rate of dhbloom filters
// filled to capacity and compares it with the configured target, the
// closed-form estimate, and bits-and-blooms/bloom as a baseline.
//
//	go run . -probes 1000000
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	bab "github.com/bits-and-blooms/bloom/v3"
	"github.com/jcalabro/dhbloom"
)

// tester is the query surface shared by every measured filter.
type tester interface {
	Contains(data []byte) bool
}

// babFilter adapts bits-and-blooms to tester.
type babFilter struct{ *bab.BloomFilter }

func (f babFilter) Contains(data []byte) bool { return f.Test(data) }

// row is one measured configuration.
type row struct {
	items     int
	target    float64
	name      string
	bits      uint64
	hashes    uint32
	estimated float64
	measured  float64
}

var (
	itemCounts = []int{1_000, 10_000, 100_000}
	fpRates    = []float64{0.1, 0.01, 0.001}
	hashes     = []dhbloom.HashAlgorithm{dhbloom.HashXXH3, dhbloom.HashMurmur3, dhbloom.HashXXHash}
)

func main() {
	probes := flag.Int("probes", 200_000, "Number of absent items queried per configuration")
	seed := flag.Uint64("seed", 1, "Seed for generated keys")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := analyze(os.Stdout, logger, *probes, *seed); err != nil {
		logger.Error("analysis failed", "err", err)
		os.Exit(1)
	}
}

func analyze(w io.Writer, logger *slog.Logger, probes int, seed uint64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "items\ttarget\tfilter\tbits\tk\testimated\tmeasured\tratio\t")

	for _, n := range itemCounts {
		for _, p := range fpRates {
			rows, err := measureConfig(n, p, probes, seed)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%g\t%s\t%d\t%d\t%.5f\t%.5f\t%.2f\t\n",
					r.items, r.target, r.name, r.bits, r.hashes, r.estimated, r.measured, r.measured/r.target)
				if r.measured > 1.5*r.target {
					logger.Warn("measured rate well above target",
						"filter", r.name, "items", n, "target", p, "measured", r.measured)
				}
			}
		}
	}
	return tw.Flush()
}

// measureConfig fills one filter per hash algorithm, plus the baseline,
// with n random keys and probes each with keys that were never inserted.
func measureConfig(n int, p float64, probes int, seed uint64) ([]row, error) {
	rng := rand.New(rand.NewPCG(seed, uint64(n)))
	inserted := make([][]byte, n)
	for i := range inserted {
		inserted[i] = fmt.Appendf(nil, "in-%016x", rng.Uint64())
	}
	absent := make([][]byte, probes)
	for i := range absent {
		// Distinct prefix guarantees no overlap with inserted keys.
		absent[i] = fmt.Appendf(nil, "out-%016x", rng.Uint64())
	}

	var rows []row
	for _, h := range hashes {
		f, err := dhbloom.NewWithConfig(dhbloom.Config{ExpectedItems: n, FalsePositiveRate: p, Hash: h})
		if err != nil {
			return nil, err
		}
		for _, key := range inserted {
			f.Insert(key)
		}
		rows = append(rows, row{
			items:     n,
			target:    p,
			name:      "dhbloom/" + h.String(),
			bits:      f.BitCount(),
			hashes:    f.HashCount(),
			estimated: f.EstimatedFalsePositiveRate(),
			measured:  falsePositiveRate(f, absent),
		})
	}

	bf := bab.NewWithEstimates(uint(n), p)
	for _, key := range inserted {
		bf.Add(key)
	}
	rows = append(rows, row{
		items:     n,
		target:    p,
		name:      "bits-and-blooms",
		bits:      uint64(bf.Cap()),
		hashes:    uint32(bf.K()),
		estimated: dhbloom.EstimateFalsePositiveRate(uint64(bf.Cap()), uint32(bf.K()), uint64(n)),
		measured:  falsePositiveRate(babFilter{bf}, absent),
	})

	return rows, nil
}

func falsePositiveRate(f tester, absent [][]byte) float64 {
	var hits int
	for _, key := range absent {
		if f.Contains(key) {
			hits++
		}
	}
	return float64(hits) / float64(len(absent))
}
