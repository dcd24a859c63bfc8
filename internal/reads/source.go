// Package reads assembles single-end, interleaved and paired-end reads from
// one or two record streams and applies the skip policy for malformed records.
package reads

import (
	"errors"
	"fmt"
	"io"

	"github.com/ledgerwatch/log/v3"

	"racesample/internal/fastx"
	"racesample/internal/logging"
)

type Layout int

const (
	Single Layout = iota + 1
	Interleaved
	Paired
)

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "SE":
		return Single, nil
	case "I":
		return Interleaved, nil
	case "PE":
		return Paired, nil
	}
	return 0, fmt.Errorf("invalid format %q, please specify either SE, PE, or I", s)
}

func (l Layout) String() string {
	switch l {
	case Single:
		return "SE"
	case Interleaved:
		return "I"
	case Paired:
		return "PE"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Streams is the number of input (and output) files the layout uses.
func (l Layout) Streams() int {
	if l == Paired {
		return 2
	}
	return 1
}

var (
	ErrSecondFileShort = errors.New("second file ended before the first")
	ErrTooManySkips    = errors.New("too many consecutive malformed records")
)

// Read is one logical read. For Interleaved both mates are in Chunks[0]; for
// Paired Chunks[1] and Offsets[1] come from the second file. The sequence
// scored for a pair is the concatenation of both mates. Slices are valid
// until the next call on the Source.
type Read struct {
	Seq     []byte
	Chunks  [2][]byte
	Offsets [2]int64
}

// Source yields reads in stream order.
type Source struct {
	layout   Layout
	r1, r2   *fastx.Reader
	maxSkips int
	logger   log.Logger

	seq   []byte
	chunk []byte

	skipped int
}

// NewSource builds a source over r1 (and r2 for Paired). maxSkips bounds the
// number of consecutive malformed records tolerated before Next fails.
func NewSource(layout Layout, r1, r2 *fastx.Reader, maxSkips int, logger log.Logger) (*Source, error) {
	if r1 == nil {
		return nil, errors.New("reads: missing first input")
	}
	if layout == Paired && r2 == nil {
		return nil, errors.New("reads: paired layout needs two inputs")
	}
	if layout != Paired {
		r2 = nil
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Source{layout: layout, r1: r1, r2: r2, maxSkips: maxSkips, logger: logger}, nil
}

func (s *Source) Layout() Layout { return s.layout }

// Skipped is the total number of malformed records skipped so far.
func (s *Source) Skipped() int { return s.skipped }

// Seekable reports whether every underlying input can be re-read by offset.
func (s *Source) Seekable() bool {
	return s.r1.Seekable() && (s.r2 == nil || s.r2.Seekable())
}

// Next returns the next well-formed read or io.EOF. Malformed records are
// logged and skipped; more than maxSkips in a row aborts with ErrTooManySkips.
func (s *Source) Next() (Read, error) {
	consecutive := 0
	for {
		rd, err := s.next()
		if err == nil {
			return rd, nil
		}
		var pe *fastx.ParseError
		if !errors.As(err, &pe) {
			return Read{}, err
		}
		s.skipped++
		consecutive++
		s.logger.Warn("Skipping malformed record", "file", pe.Path, "offset", pe.Offset, "reason", pe.Reason)
		if consecutive > s.maxSkips {
			return Read{}, fmt.Errorf("%w (%d) ending at %s", ErrTooManySkips, consecutive, pe)
		}
	}
}

// ReadAt re-parses the read whose offsets were reported by an earlier Next.
func (s *Source) ReadAt(off [2]int64) (Read, error) {
	if err := s.seek(off); err != nil {
		return Read{}, err
	}
	rd, err := s.next()
	if errors.Is(err, io.EOF) {
		return Read{}, fmt.Errorf("no record at byte %d of %s: %w", off[0], s.r1.Path(), io.ErrUnexpectedEOF)
	}
	return rd, err
}

// Rewind restarts the stream from the beginning of every input. The skip
// count restarts with it.
func (s *Source) Rewind() error {
	if err := s.seek([2]int64{}); err != nil {
		return err
	}
	s.skipped = 0
	return nil
}

func (s *Source) seek(off [2]int64) error {
	if err := s.r1.Seek(off[0]); err != nil {
		return err
	}
	if s.r2 != nil {
		return s.r2.Seek(off[1])
	}
	return nil
}

func (s *Source) next() (Read, error) {
	switch s.layout {
	case Interleaved:
		return s.nextInterleaved()
	case Paired:
		return s.nextPaired()
	}
	rec, err := s.r1.Next()
	if err != nil {
		return Read{}, err
	}
	return Read{Seq: rec.Seq, Chunks: [2][]byte{rec.Chunk}, Offsets: [2]int64{rec.Offset}}, nil
}

// hold copies the first mate out of the reader's buffers.
func (s *Source) hold(rec fastx.Record) {
	s.seq = append(s.seq[:0], rec.Seq...)
	s.chunk = append(s.chunk[:0], rec.Chunk...)
}

func (s *Source) nextInterleaved() (Read, error) {
	first, err := s.r1.Next()
	if err != nil {
		var pe *fastx.ParseError
		if errors.As(err, &pe) {
			// drop the mate too so later records stay paired
			if _, merr := s.r1.Next(); merr != nil && !errors.Is(merr, io.EOF) && !errors.As(merr, &pe) {
				return Read{}, merr
			}
		}
		return Read{}, err
	}
	s.hold(first)
	off := first.Offset
	second, err := s.r1.Next()
	if errors.Is(err, io.EOF) {
		return Read{}, &fastx.ParseError{Path: s.r1.Path(), Offset: off, Reason: "interleaved input ended before the second mate"}
	}
	if err != nil {
		return Read{}, err
	}
	s.seq = append(s.seq, second.Seq...)
	s.chunk = append(s.chunk, second.Chunk...)
	return Read{Seq: s.seq, Chunks: [2][]byte{s.chunk}, Offsets: [2]int64{off}}, nil
}

func (s *Source) nextPaired() (Read, error) {
	first, err := s.r1.Next()
	if errors.Is(err, io.EOF) {
		if _, err2 := s.r2.Next(); err2 == nil {
			s.logger.Warn("Second file has reads past the end of the first; ignoring them", "file", s.r2.Path())
		}
		return Read{}, io.EOF
	}
	var firstErr error
	firstOff := first.Offset
	if err != nil {
		var pe *fastx.ParseError
		if !errors.As(err, &pe) {
			return Read{}, err
		}
		// keep both files in step: drop the mate as well
		firstErr = err
		firstOff = pe.Offset
	} else {
		s.hold(first)
	}
	second, err := s.r2.Next()
	if errors.Is(err, io.EOF) {
		return Read{}, fmt.Errorf("%w: %s has no mate for the record at byte %d of %s",
			ErrSecondFileShort, s.r2.Path(), firstOff, s.r1.Path())
	}
	if firstErr != nil {
		return Read{}, firstErr
	}
	if err != nil {
		var pe *fastx.ParseError
		if errors.As(err, &pe) {
			pe.Reason = "second file: " + pe.Reason
		}
		return Read{}, err
	}
	s.seq = append(s.seq, second.Seq...)
	return Read{
		Seq:     s.seq,
		Chunks:  [2][]byte{s.chunk, second.Chunk},
		Offsets: [2]int64{first.Offset, second.Offset},
	}, nil
}
