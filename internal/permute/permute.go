// Package permute reorders a read set by ascending density score without
// holding the reads in memory: a score pass records (offset, score) per read,
// then reads are re-fetched by offset one bounded batch at a time.
package permute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"racesample/internal/race"
	"racesample/internal/reads"
)

// ScoreMode selects how the per-read score is derived.
type ScoreMode int

const (
	// Running is the causal score at the time the read was inserted.
	Running ScoreMode = iota
	// Normalized divides the running score by the read's 1-based stream index.
	Normalized
	// Full scores every read against the completed sketch in a second pass.
	Full
)

func ParseScoreMode(s string) (ScoreMode, error) {
	switch s {
	case "R":
		return Running, nil
	case "N":
		return Normalized, nil
	case "F":
		return Full, nil
	}
	return 0, fmt.Errorf("invalid score type %q, please specify either R, N, or F", s)
}

func (m ScoreMode) String() string {
	switch m {
	case Running:
		return "R"
	case Normalized:
		return "N"
	case Full:
		return "F"
	}
	return fmt.Sprintf("ScoreMode(%d)", int(m))
}

// Entry locates one read and carries its score.
type Entry struct {
	Offsets [2]int64
	Score   float64
}

// Stream is the read source the score pass walks.
type Stream interface {
	Next() (reads.Read, error)
	Rewind() error
}

// Fetcher re-reads a read by the offsets an earlier pass reported.
type Fetcher interface {
	ReadAt(off [2]int64) (reads.Read, error)
}

// ScorePass consumes the stream once, inserting every read into the sketch,
// and returns one entry per read in stream order. Full mode rewinds and
// rescores every read through a read-only view of the finished sketch.
func ScorePass(ctx context.Context, src Stream, sc *race.Scorer, mode ScoreMode) ([]Entry, error) {
	var entries []Entry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rd, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Offsets: rd.Offsets, Score: sc.ScoreAndAdd(rd.Seq)})
	}

	switch mode {
	case Normalized:
		for i := range entries {
			entries[i].Score /= float64(i + 1)
		}
	case Full:
		if err := src.Rewind(); err != nil {
			return nil, fmt.Errorf("rewind for full scoring: %w", err)
		}
		view := sc.ReadOnly()
		for i := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rd, err := src.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return nil, fmt.Errorf("full scoring pass: %w", err)
			}
			if rd.Offsets != entries[i].Offsets {
				return nil, fmt.Errorf("full scoring pass: read %d moved from byte %d to %d", i, entries[i].Offsets[0], rd.Offsets[0])
			}
			entries[i].Score = view.Score(rd.Seq)
		}
	}
	return entries, nil
}

// Sort orders entries by ascending score; equal scores keep stream order.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
}

// Writer receives one read's chunks, one per output stream.
type Writer interface {
	WriteRead(rd reads.Read) error
}

// Rewrite emits the reads of score-sorted entries in that order, batchSize
// at a time. Within a batch reads are fetched in offset order and written in
// score order.
func Rewrite(ctx context.Context, f Fetcher, entries []Entry, batchSize int, w Writer) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}
	type slot struct {
		rank int
		off  [2]int64
	}
	var (
		order = make([]slot, 0, min(batchSize, len(entries)))
		held  = make([]reads.Read, min(batchSize, len(entries)))
	)
	for lo := 0; lo < len(entries); lo += batchSize {
		hi := min(lo+batchSize, len(entries))
		order = order[:0]
		for i := lo; i < hi; i++ {
			order = append(order, slot{rank: i - lo, off: entries[i].Offsets})
		}
		slices.SortFunc(order, func(a, b slot) int {
			if a.off[0] != b.off[0] {
				if a.off[0] < b.off[0] {
					return -1
				}
				return 1
			}
			return a.rank - b.rank
		})
		for _, s := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			rd, err := f.ReadAt(s.off)
			if err != nil {
				return fmt.Errorf("fetch read at byte %d: %w", s.off[0], err)
			}
			held[s.rank] = clone(rd, held[s.rank])
		}
		for i := 0; i < hi-lo; i++ {
			if err := w.WriteRead(held[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// clone copies rd into dst's buffers so it survives the next fetch.
func clone(rd reads.Read, dst reads.Read) reads.Read {
	dst.Seq = nil
	dst.Chunks[0] = append(dst.Chunks[0][:0], rd.Chunks[0]...)
	if rd.Chunks[1] != nil {
		dst.Chunks[1] = append(dst.Chunks[1][:0], rd.Chunks[1]...)
	} else {
		dst.Chunks[1] = dst.Chunks[1][:0]
	}
	dst.Offsets = rd.Offsets
	return dst
}
