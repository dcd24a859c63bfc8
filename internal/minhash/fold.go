package minhash

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Folder compresses reps*power raw lanes into reps values, one per sketch repetition.
// Output i is Sum32 over the little-endian bytes of raw[i*power:(i+1)*power].
type Folder struct {
	reps    int
	power   int
	workers int
	buf     []byte
}

func NewFolder(reps, power, workers int) (*Folder, error) {
	if reps <= 0 {
		return nil, errors.New("minhash: repetitions must be > 0")
	}
	if power <= 0 {
		return nil, errors.New("minhash: hash power must be > 0")
	}
	if workers < 1 {
		workers = 1
	}
	return &Folder{reps: reps, power: power, workers: workers, buf: make([]byte, 4*reps*power)}, nil
}

// Fold writes one value per repetition into dst and returns it.
func (f *Folder) Fold(raw, dst []uint32) ([]uint32, error) {
	if len(raw) != f.reps*f.power {
		return dst, fmt.Errorf("minhash: fold got %d lanes, want %d", len(raw), f.reps*f.power)
	}
	if cap(dst) < f.reps {
		dst = make([]uint32, f.reps)
	}
	dst = dst[:f.reps]
	for i, v := range raw {
		binary.LittleEndian.PutUint32(f.buf[4*i:], v)
	}
	width := 4 * f.power
	parallelRange(f.workers, f.reps, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = Sum32(f.buf[i*width:(i+1)*width], FoldSeed)
		}
	})
	return dst, nil
}
