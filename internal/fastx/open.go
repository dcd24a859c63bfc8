package fastx

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openSource returns the raw byte source for path and, for plain files, the
// seeker used to re-read records by offset. "-" is stdin; gzip is detected by
// magic number (1F 8B) or by a .gz suffix.
func openSource(path string) (io.ReadCloser, io.Seeker, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	var sig [2]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, nil, err
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(bufio.NewReader(fh))
		if err != nil {
			_ = fh.Close()
			return nil, nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil, nil
	}
	return fh, fh, nil
}

// Open opens path for reading records of the given format.
func Open(path string, format Format, bufSize int) (*Reader, error) {
	rc, seeker, err := openSource(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(rc, path, format, bufSize)
	r.seeker = seeker
	r.closer = rc
	return r, nil
}
