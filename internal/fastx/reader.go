package fastx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const defaultBufSize = 1 << 20

// Record is one parsed record. Seq and Chunk alias reader-owned buffers and
// are valid only until the next call to Next or Seek.
type Record struct {
	Seq    []byte
	Chunk  []byte // literal record text, one '\n' after every line
	Offset int64  // byte offset of the header line in the raw input
}

// Reader parses records sequentially and tracks raw byte offsets.
type Reader struct {
	path   string
	format Format
	src    io.Reader
	seeker io.Seeker
	closer io.Closer
	br     *bufio.Reader
	off    int64
	line   []byte
	chunk  []byte
}

// NewReader wraps r. If r is an io.Seeker the reader supports Seek.
func NewReader(r io.Reader, path string, format Format, bufSize int) *Reader {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	rd := &Reader{
		path:   path,
		format: format,
		src:    r,
		br:     bufio.NewReaderSize(r, bufSize),
		chunk:  make([]byte, 0, 1024),
	}
	if s, ok := r.(io.Seeker); ok {
		rd.seeker = s
	}
	return rd
}

func (r *Reader) Path() string   { return r.path }
func (r *Reader) Seekable() bool { return r.seeker != nil }

// Seek repositions the reader at a record offset previously returned in Record.Offset.
func (r *Reader) Seek(off int64) error {
	if r.seeker == nil {
		return fmt.Errorf("%s: input is not seekable", r.path)
	}
	if _, err := r.seeker.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("%s: seek to %d: %w", r.path, off, err)
	}
	r.br.Reset(r.src)
	r.off = off
	return nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// readLine returns the next line without its '\n'. A final line without a
// newline is returned as a line; io.EOF is returned only when nothing is left.
func (r *Reader) readLine() ([]byte, error) {
	r.line = r.line[:0]
	for {
		frag, err := r.br.ReadSlice('\n')
		r.line = append(r.line, frag...)
		r.off += int64(len(frag))
		switch {
		case err == nil:
			return r.line[:len(r.line)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(r.line) > 0:
			return r.line, nil
		default:
			return nil, err
		}
	}
}

// skipBlank consumes blank lines and reports whether only blank lines were left.
func (r *Reader) skipBlank() (atEOF bool, err error) {
	for {
		b, err := r.br.Peek(1)
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if b[0] != '\n' && b[0] != '\r' {
			return false, nil
		}
		_, _ = r.br.Discard(1)
		r.off++
	}
}

func (r *Reader) fail(start int64, format string, a ...any) error {
	return &ParseError{Path: r.path, Offset: start, Reason: fmt.Sprintf(format, a...)}
}

// Next parses the next record. It returns io.EOF at the end of input and a
// *ParseError for a malformed record; every failed call consumes at least
// one line, so repeated calls always make progress.
func (r *Reader) Next() (Record, error) {
	start := r.off
	line, err := r.readLine()
	if err != nil {
		return Record{}, err
	}
	if len(line) == 0 {
		atEOF, err := r.skipBlank()
		if err != nil {
			return Record{}, err
		}
		if atEOF {
			return Record{}, io.EOF
		}
		return Record{}, r.fail(start, "found empty line")
	}
	sentinel := r.format.Sentinel()
	if line[0] != sentinel {
		return Record{}, r.fail(start, "expected a line beginning with %q", sentinel)
	}
	r.chunk = append(append(r.chunk[:0], line...), '\n')

	seq, err := r.readLine()
	if errors.Is(err, io.EOF) || (err == nil && len(seq) == 0) {
		return Record{}, r.fail(start, "expected a sequence after header %q", trimHeader(r.chunk))
	}
	if err != nil {
		return Record{}, err
	}
	seqStart := len(r.chunk)
	r.chunk = append(append(r.chunk, seq...), '\n')
	seqEnd := len(r.chunk) - 1

	got := 2
	for got < r.format.Lines() {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Record{}, err
		}
		r.chunk = append(append(r.chunk, line...), '\n')
		got++
	}
	if got != r.format.Lines() {
		return Record{}, r.fail(start, "expected %d lines of %s, got %d", r.format.Lines(), r.format, got)
	}
	return Record{Seq: r.chunk[seqStart:seqEnd], Chunk: r.chunk, Offset: start}, nil
}

func trimHeader(chunk []byte) string {
	const limit = 60
	h := chunk
	if n := len(h); n > 0 && h[n-1] == '\n' {
		h = h[:n-1]
	}
	if len(h) > limit {
		return string(h[:limit]) + "..."
	}
	return string(h)
}
