// Package race implements the RACE density sketch: R repetitions of B counters,
// where each folded fingerprint lands in one bucket per repetition and the
// density score of a read is the sum of its bucket counters.
//
// Scores are unnormalised: after N reads have been added, a score lies in
// [0, N*R]. Callers that need a density divide externally.
//
// A Sketch is owned by a single streaming driver. It is not safe for
// concurrent QueryAndAdd calls.
package race

import (
	"errors"
	"fmt"
	"math"
)

var ErrShapeMismatch = errors.New("race: sketch shape mismatch")

// Querier is the read-only side of a sketch.
type Querier interface {
	Repetitions() int
	Query(folded []uint32) float64
}

type Sketch struct {
	reps   int
	width  int
	counts []uint64 // row-major reps x width
}

// New returns an all-zero sketch with reps repetitions of width buckets.
func New(reps, width int) (*Sketch, error) {
	if err := checkShape(reps, width); err != nil {
		return nil, err
	}
	return &Sketch{reps: reps, width: width, counts: make([]uint64, reps*width)}, nil
}

func checkShape(reps, width int) error {
	if reps <= 0 || reps > math.MaxInt32 {
		return fmt.Errorf("race: repetitions must be in (0, %d], got %d", math.MaxInt32, reps)
	}
	if width <= 0 || width > math.MaxInt32 {
		return fmt.Errorf("race: range must be in (0, %d], got %d", math.MaxInt32, width)
	}
	if uint64(reps)*uint64(width) > math.MaxInt/8 {
		return fmt.Errorf("race: %dx%d counters do not fit in memory", reps, width)
	}
	return nil
}

func (s *Sketch) Repetitions() int { return s.reps }
func (s *Sketch) Range() int       { return s.width }

// SizeBytes is the in-memory size of the counter matrix.
func (s *Sketch) SizeBytes() uint64 { return uint64(len(s.counts)) * 8 }

func (s *Sketch) bucket(r int, h uint32) int {
	return r*s.width + int(h%uint32(s.width))
}

// QueryAndAdd returns the causal score of folded and then counts it.
// Each repetition reads its bucket before incrementing it, so a read never
// contributes to its own score.
func (s *Sketch) QueryAndAdd(folded []uint32) float64 {
	var acc uint64
	for r := 0; r < s.reps; r++ {
		i := s.bucket(r, folded[r])
		acc += s.counts[i]
		s.counts[i]++
	}
	return float64(acc)
}

// Query returns the score of folded without changing any counter.
func (s *Sketch) Query(folded []uint32) float64 {
	var acc uint64
	for r := 0; r < s.reps; r++ {
		acc += s.counts[s.bucket(r, folded[r])]
	}
	return float64(acc)
}

// Count returns counter (r, b).
func (s *Sketch) Count(r, b int) uint64 { return s.counts[r*s.width+b] }

// ReadOnly returns a view that can score reads but never mutate s.
func (s *Sketch) ReadOnly() View { return View{s: s} }

// View is a read-only handle onto a Sketch.
type View struct{ s *Sketch }

func (v View) Repetitions() int              { return v.s.reps }
func (v View) Query(folded []uint32) float64 { return v.s.Query(folded) }

var (
	_ Querier = (*Sketch)(nil)
	_ Querier = View{}
)

// Stats summarises the counter matrix.
type Stats struct {
	Repetitions int
	Range       int
	Records     uint64 // reads added; every read increments exactly one counter per row
	Occupied    int    // non-zero counters across all rows
	MaxCount    uint64
}

func (s *Sketch) Stats() Stats {
	st := Stats{Repetitions: s.reps, Range: s.width}
	for i, c := range s.counts {
		if i < s.width {
			st.Records += c
		}
		if c > 0 {
			st.Occupied++
		}
		if c > st.MaxCount {
			st.MaxCount = c
		}
	}
	return st
}
