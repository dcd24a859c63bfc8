package writers

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

const defaultBufSize = 1 << 20

// Sink is a buffered output file that counts the records written to it.
type Sink struct {
	path    string
	bw      *bufio.Writer
	closers []io.Closer // innermost first
	records int64
	bytes   int64
}

// Create opens path for writing. "-" is stdout. With appendTo the file is
// extended instead of truncated; a compressed file then gains a new member.
func Create(path string, appendTo bool, bufSize int) (*Sink, error) {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	var (
		base    io.Writer
		closers []io.Closer
	)
	if path == "-" {
		base = os.Stdout
	} else {
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendTo {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		base = f
		closers = append(closers, f)
	}
	if codec := CodecFor(path); codec != nil && path != "-" {
		enc, err := codec(base)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, fmt.Errorf("open output %s: %w", path, err)
		}
		base = enc
		closers = append([]io.Closer{enc}, closers...)
	}
	return &Sink{path: path, bw: bufio.NewWriterSize(base, bufSize), closers: closers}, nil
}

func (s *Sink) Path() string { return s.path }

// Records is the number of records written so far.
func (s *Sink) Records() int64 { return s.records }

func (s *Sink) BytesOut() int64 { return s.bytes }

// WriteRecord writes one record's literal text.
func (s *Sink) WriteRecord(chunk []byte) error {
	n, err := s.bw.Write(chunk)
	s.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.records++
	return nil
}

// Close flushes buffered data and closes the encoder and file.
func (s *Sink) Close() error {
	err := s.bw.Flush()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// CreateAll opens every path concurrently. On failure the sinks that did open
// are closed and the first error is returned.
func CreateAll(paths []string, appendTo bool, bufSize int) ([]*Sink, error) {
	sinks := make([]*Sink, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			s, err := Create(p, appendTo, bufSize)
			if err != nil {
				return err
			}
			sinks[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = CloseAll(sinks)
		return nil, err
	}
	return sinks, nil
}

// CloseAll closes every non-nil sink and returns the first error.
func CloseAll(sinks []*Sink) error {
	var first error
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
