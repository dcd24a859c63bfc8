package race

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Savefile layout, little-endian, no version and no checksum:
//
//	int32 repetitions | int32 range | repetitions*range uint64 counters (row-major)

// SaveExt is the only extension accepted for savefiles.
const SaveExt = ".bin"

var (
	ErrSaveExt         = errors.New("race: savefile must have a .bin extension")
	ErrCorruptSavefile = errors.New("race: corrupt savefile")
)

const (
	headerSize = 8
	// counters decoded per step; a bad header cannot force one huge allocation
	decodeChunk = 1 << 16
)

// WriteTo serialises the shape and every counter.
func (s *Sketch) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<16)
	var (
		n   int64
		buf [8]byte
	)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(s.reps)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(s.width)))
	m, err := bw.Write(buf[:headerSize])
	n += int64(m)
	if err != nil {
		return n, err
	}
	for _, c := range s.counts {
		binary.LittleEndian.PutUint64(buf[:], c)
		m, err = bw.Write(buf[:])
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func readHeader(r io.Reader) (reps, width int, err error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("race: read savefile header: %w", err)
	}
	reps = int(int32(binary.LittleEndian.Uint32(hdr[0:4])))
	width = int(int32(binary.LittleEndian.Uint32(hdr[4:8])))
	return reps, width, nil
}

func readCounters(r io.Reader, dst []uint64) error {
	br := bufio.NewReaderSize(r, 1<<16)
	var buf [8]byte
	for i := range dst {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return fmt.Errorf("race: read counter %d of %d: %w", i, len(dst), err)
		}
		dst[i] = binary.LittleEndian.Uint64(buf[:])
	}
	return nil
}

// ReadFrom restores counters written by WriteTo. The persisted shape must
// equal the sketch shape; on any error the sketch is left unchanged.
func (s *Sketch) ReadFrom(r io.Reader) (int64, error) {
	reps, width, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	if reps != s.reps || width != s.width {
		return headerSize, fmt.Errorf("%w: savefile is %dx%d, sketch is %dx%d",
			ErrShapeMismatch, reps, width, s.reps, s.width)
	}
	counts := make([]uint64, len(s.counts))
	if err := readCounters(r, counts); err != nil {
		return headerSize, err
	}
	copy(s.counts, counts)
	return headerSize + int64(len(counts))*8, nil
}

// Decode builds a sketch whose shape is taken from the stream.
func Decode(r io.Reader) (*Sketch, error) {
	reps, width, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkShape(reps, width); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSavefile, err)
	}
	br := bufio.NewReaderSize(r, 1<<16)
	n := reps * width
	counts := make([]uint64, 0, min(n, decodeChunk))
	buf := make([]uint64, min(n, decodeChunk))
	for len(counts) < n {
		m := min(n-len(counts), decodeChunk)
		if err := readCounters(br, buf[:m]); err != nil {
			return nil, fmt.Errorf("%w: %dx%d header but the counters end early: %w",
				ErrCorruptSavefile, reps, width, err)
		}
		counts = append(counts, buf[:m]...)
	}
	switch _, err := br.ReadByte(); {
	case err == nil:
		return nil, fmt.Errorf("%w: trailing data after %dx%d counters", ErrCorruptSavefile, reps, width)
	case !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("race: read savefile: %w", err)
	}
	return &Sketch{reps: reps, width: width, counts: counts}, nil
}

// CheckSavePath rejects paths without the .bin extension.
func CheckSavePath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), SaveExt) {
		return fmt.Errorf("%w: %s", ErrSaveExt, path)
	}
	return nil
}

// Load restores s from path. A missing or empty file is not an error and
// reports loaded=false so a first run can start from a fresh sketch.
func Load(path string, s *Sketch) (loaded bool, err error) {
	if err := CheckSavePath(path); err != nil {
		return false, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open savefile: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat savefile: %w", err)
	}
	if fi.Size() == 0 {
		return false, nil
	}
	if _, err := s.ReadFrom(f); err != nil {
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// Save writes s to path through a temp file in the same directory and a rename.
func Save(path string, s *Sketch) error {
	if err := CheckSavePath(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".race-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if _, err := s.WriteTo(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// LoadFile decodes a savefile of any shape.
func LoadFile(path string) (*Sketch, error) {
	if err := CheckSavePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open savefile: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}
