// Package minhash fingerprints reads with a windowed MinHash over k-mers and
// folds groups of lanes into one bucket hash per sketch repetition.
//
// Every lane and every fold output is computed independently, so both steps
// run as a parallel map over disjoint output slots when more than one worker
// is configured. Results never depend on the worker count.
package minhash

import (
	"errors"
	"math"

	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"
)

// FoldSeed is the seed used when folding a group of lanes into one value.
const FoldSeed = 42

// Sum32 is the seeded 32-bit hash all fingerprints are built on.
func Sum32(b []byte, seed uint32) uint32 {
	return murmur3.Sum32WithSeed(b, seed)
}

// Fingerprinter computes a fixed number of MinHash lanes over the k-mers of a sequence.
type Fingerprinter struct {
	k       int
	lanes   int
	workers int
}

// NewFingerprinter returns a fingerprinter producing `lanes` values per sequence.
// workers <= 1 runs lanes sequentially.
func NewFingerprinter(k, lanes, workers int) (*Fingerprinter, error) {
	if k <= 0 {
		return nil, errors.New("minhash: k must be > 0")
	}
	if lanes <= 0 {
		return nil, errors.New("minhash: lane count must be > 0")
	}
	if workers < 1 {
		workers = 1
	}
	return &Fingerprinter{k: k, lanes: lanes, workers: workers}, nil
}

// Fingerprint fills dst (grown to one value per lane if needed) and returns it.
func (f *Fingerprinter) Fingerprint(seq []byte, dst []uint32) []uint32 {
	if cap(dst) < f.lanes {
		dst = make([]uint32, f.lanes)
	}
	dst = dst[:f.lanes]
	parallelRange(f.workers, f.lanes, func(lo, hi int) {
		for n := lo; n < hi; n++ {
			dst[n] = lane(f.k, seq, uint32(n))
		}
	})
	return dst
}

// lane scans every window with start+k+1 < len(seq), so the last full k-mer
// is never considered. The stored value is a second hash of the argmin k-mer, not the minimum itself.
func lane(k int, seq []byte, n uint32) uint32 {
	var out uint32
	minimum := uint32(math.MaxUint32)
	for start := 0; start+k+1 < len(seq); start++ {
		w := seq[start : start+k]
		if h := Sum32(w, n); h < minimum {
			minimum = h
			out = Sum32(w, 3*n)
		}
	}
	return out
}

// parallelRange splits [0,n) into at most `workers` contiguous ranges.
func parallelRange(workers, n int, fn func(lo, hi int)) {
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}
	if workers > n {
		workers = n
	}
	step := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += step {
		hi := min(lo+step, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
