package reads

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"racesample/internal/fastx"
)

func reader(in, name string) *fastx.Reader {
	return fastx.NewReader(strings.NewReader(in), name, fastx.FASTA, 0)
}

func collect(t *testing.T, s *Source) []Read {
	t.Helper()
	var out []Read
	for {
		rd, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, Read{
			Seq:     append([]byte(nil), rd.Seq...),
			Chunks:  [2][]byte{append([]byte(nil), rd.Chunks[0]...), append([]byte(nil), rd.Chunks[1]...)},
			Offsets: rd.Offsets,
		})
	}
}

func TestParseLayout(t *testing.T) {
	for s, want := range map[string]Layout{"SE": Single, "I": Interleaved, "PE": Paired} {
		got, err := ParseLayout(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, s, got.String())
	}
	_, err := ParseLayout("se")
	require.Error(t, err)
	require.Equal(t, 2, Paired.Streams())
	require.Equal(t, 1, Interleaved.Streams())
}

func TestSingle(t *testing.T) {
	s, err := NewSource(Single, reader(">a\nAC\n>b\nGT\n", "in.fa"), nil, 4, nil)
	require.NoError(t, err)
	got := collect(t, s)
	require.Len(t, got, 2)
	require.Equal(t, ">b\nGT\n", string(got[1].Chunks[0]))
	require.Equal(t, int64(6), got[1].Offsets[0])
}

func TestInterleavedJoinsMates(t *testing.T) {
	s, err := NewSource(Interleaved, reader(">a/1\nAC\n>a/2\nGT\n>b/1\nTT\n", "in.fa"), nil, 4, nil)
	require.NoError(t, err)
	got := collect(t, s)
	require.Len(t, got, 1)
	require.Equal(t, "ACGT", string(got[0].Seq))
	require.Equal(t, ">a/1\nAC\n>a/2\nGT\n", string(got[0].Chunks[0]))
	require.Equal(t, 1, s.Skipped())
}

func TestInterleavedMalformedMateStaysInStep(t *testing.T) {
	in := ">a/1\n\n>a/2\nGT\n>b/1\nTT\n>b/2\nCC\n>c/1\nAA\n>c/2\nGG\n"
	s, err := NewSource(Interleaved, reader(in, "in.fa"), nil, 4, nil)
	require.NoError(t, err)
	got := collect(t, s)
	require.Len(t, got, 2)
	require.Equal(t, ">b/1\nTT\n>b/2\nCC\n", string(got[0].Chunks[0]))
	require.Equal(t, ">c/1\nAA\n>c/2\nGG\n", string(got[1].Chunks[0]))
	require.Equal(t, "AAGG", string(got[1].Seq))
	require.Equal(t, 1, s.Skipped())
}

func TestPaired(t *testing.T) {
	s, err := NewSource(Paired, reader(">a\nAC\n>b\nCC\n", "r1.fa"), reader(">a\nGT\n>b\nGG\n", "r2.fa"), 4, nil)
	require.NoError(t, err)
	got := collect(t, s)
	require.Len(t, got, 2)
	require.Equal(t, "CCGG", string(got[1].Seq))
	require.Equal(t, ">b\nCC\n", string(got[1].Chunks[0]))
	require.Equal(t, ">b\nGG\n", string(got[1].Chunks[1]))
	require.Equal(t, [2]int64{6, 6}, got[1].Offsets)
}

func TestPairedSecondFileShort(t *testing.T) {
	s, err := NewSource(Paired, reader(">a\nAC\n>b\nCC\n", "r1.fa"), reader(">a\nGT\n", "r2.fa"), 4, nil)
	require.NoError(t, err)

	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.ErrorIs(t, err, ErrSecondFileShort)
	require.Contains(t, err.Error(), "second file")
}

func TestTooManySkips(t *testing.T) {
	in := "junk\njunk\njunk\n>a\nAC\n"
	s, err := NewSource(Single, reader(in, "in.fa"), nil, 2, nil)
	require.NoError(t, err)
	_, err = s.Next()
	require.ErrorIs(t, err, ErrTooManySkips)

	s, err = NewSource(Single, reader(in, "in.fa"), nil, 3, nil)
	require.NoError(t, err)
	rd, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "AC", string(rd.Seq))
}

func TestReadAtAndRewind(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "r1.fa")
	p2 := filepath.Join(dir, "r2.fa")
	require.NoError(t, os.WriteFile(p1, []byte(">a\nAC\n>b\nCCC\n>c\nAA\n"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte(">a\nGT\n>b\nGGG\n>c\nTT\n"), 0o644))
	r1, err := fastx.Open(p1, fastx.FASTA, 0)
	require.NoError(t, err)
	defer r1.Close()
	r2, err := fastx.Open(p2, fastx.FASTA, 0)
	require.NoError(t, err)
	defer r2.Close()

	s, err := NewSource(Paired, r1, r2, 0, nil)
	require.NoError(t, err)
	require.True(t, s.Seekable())
	all := collect(t, s)
	require.Len(t, all, 3)

	rd, err := s.ReadAt(all[1].Offsets)
	require.NoError(t, err)
	require.Equal(t, "CCCGGG", string(rd.Seq))
	require.Equal(t, ">b\nGGG\n", string(rd.Chunks[1]))

	require.NoError(t, s.Rewind())
	again := collect(t, s)
	require.Equal(t, all, again)
}
