package race

import (
	"errors"
	"fmt"

	"racesample/internal/minhash"
)

// Params are the hashing and sketch shape parameters of a run. Only
// Repetitions and Range are persisted; K and HashPower must be supplied
// identically across runs that share a savefile.
type Params struct {
	Range       int // B, buckets per repetition
	Repetitions int // R
	HashPower   int // MinHash lanes folded into each repetition
	K           int // k-mer length
	Workers     int // lane fan-out; <= 1 is sequential
}

func (p Params) Validate() error {
	switch {
	case p.Range <= 0:
		return errors.New("--range must be > 0")
	case p.Repetitions <= 0:
		return errors.New("--reps must be > 0")
	case p.HashPower <= 0:
		return errors.New("--hashes must be > 0")
	case p.K <= 0:
		return errors.New("--k must be > 0")
	}
	return nil
}

// HashCount is the number of raw MinHash lanes per read.
func (p Params) HashCount() int { return p.Repetitions * p.HashPower }

// hasher owns the scratch buffers reused for every read.
type hasher struct {
	fp     *minhash.Fingerprinter
	fold   *minhash.Folder
	raw    []uint32
	folded []uint32
}

func newHasher(p Params) (*hasher, error) {
	fp, err := minhash.NewFingerprinter(p.K, p.HashCount(), p.Workers)
	if err != nil {
		return nil, err
	}
	fold, err := minhash.NewFolder(p.Repetitions, p.HashPower, p.Workers)
	if err != nil {
		return nil, err
	}
	return &hasher{
		fp:     fp,
		fold:   fold,
		raw:    make([]uint32, p.HashCount()),
		folded: make([]uint32, p.Repetitions),
	}, nil
}

func (h *hasher) hash(seq []byte) []uint32 {
	h.raw = h.fp.Fingerprint(seq, h.raw)
	// Widths are fixed at construction, so Fold cannot fail here.
	h.folded, _ = h.fold.Fold(h.raw, h.folded)
	return h.folded
}

// Scorer turns sequences into causal density scores and adds them to the sketch.
type Scorer struct {
	h      *hasher
	sketch *Sketch
}

func NewScorer(p Params, s *Sketch) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Repetitions() != p.Repetitions || s.Range() != p.Range {
		return nil, fmt.Errorf("%w: params are %dx%d, sketch is %dx%d",
			ErrShapeMismatch, p.Repetitions, p.Range, s.Repetitions(), s.Range())
	}
	h, err := newHasher(p)
	if err != nil {
		return nil, err
	}
	return &Scorer{h: h, sketch: s}, nil
}

// ScoreAndAdd fingerprints seq, folds it and runs QueryAndAdd.
func (sc *Scorer) ScoreAndAdd(seq []byte) float64 {
	return sc.sketch.QueryAndAdd(sc.h.hash(seq))
}

// ReadOnly returns a scorer bound to a read-only view of the same sketch.
// It shares scratch buffers with sc and must be used from the same goroutine.
func (sc *Scorer) ReadOnly() *ReadScorer {
	return &ReadScorer{h: sc.h, view: sc.sketch.ReadOnly()}
}

// ReadScorer scores sequences against a sketch without updating it.
type ReadScorer struct {
	h    *hasher
	view Querier
}

func (rs *ReadScorer) Score(seq []byte) float64 {
	return rs.view.Query(rs.h.hash(seq))
}
