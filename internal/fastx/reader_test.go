package fastx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const fastq = "@r1\nACGT\n+\nIIII\n@r2 desc\nGGCC\n+\n####\n"

const fasta = ">s1\nACGTACGT\n>s2\nTTTT\n"

func readAll(t *testing.T, r *Reader) (recs []Record, errs []error) {
	t.Helper()
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, errs
		}
		if err != nil {
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			errs = append(errs, err)
			continue
		}
		recs = append(recs, Record{
			Seq:    append([]byte(nil), rec.Seq...),
			Chunk:  append([]byte(nil), rec.Chunk...),
			Offset: rec.Offset,
		})
	}
}

func TestReadFASTQ(t *testing.T) {
	r := NewReader(strings.NewReader(fastq), "in.fastq", FASTQ, 0)
	recs, errs := readAll(t, r)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	require.Equal(t, "ACGT", string(recs[0].Seq))
	require.Equal(t, "@r1\nACGT\n+\nIIII\n", string(recs[0].Chunk))
	require.Equal(t, int64(0), recs[0].Offset)
	require.Equal(t, "GGCC", string(recs[1].Seq))
	require.Equal(t, int64(len("@r1\nACGT\n+\nIIII\n")), recs[1].Offset)
}

func TestReadFASTANoTrailingNewline(t *testing.T) {
	r := NewReader(strings.NewReader(strings.TrimSuffix(fasta, "\n")), "in.fa", FASTA, 0)
	recs, errs := readAll(t, r)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	require.Equal(t, ">s2\nTTTT\n", string(recs[1].Chunk))
}

func TestTrailingBlankLinesAreEOF(t *testing.T) {
	r := NewReader(strings.NewReader(fasta+"\n\n"), "in.fa", FASTA, 0)
	recs, errs := readAll(t, r)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	in := ">a\nACGT\n\n>b\nCC\nnot-a-header\n>c\n"
	r := NewReader(strings.NewReader(in), "in.fa", FASTA, 0)
	recs, errs := readAll(t, r)

	require.Len(t, recs, 2)
	require.Equal(t, "ACGT", string(recs[0].Seq))
	require.Equal(t, "CC", string(recs[1].Seq))
	require.Len(t, errs, 3)
	require.Contains(t, errs[0].Error(), "empty line")
	require.Contains(t, errs[1].Error(), "expected a line beginning with '>'")
	require.Contains(t, errs[2].Error(), "expected a sequence")
}

func TestShortFASTQRecord(t *testing.T) {
	r := NewReader(strings.NewReader("@r1\nACGT\n+\n"), "in.fq", FASTQ, 0)
	_, err := r.Next()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, pe.Reason, "expected 4 lines")
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestLongLinesExceedBuffer(t *testing.T) {
	long := strings.Repeat("ACGT", 5000)
	r := NewReader(strings.NewReader(">x\n"+long+"\n"), "in.fa", FASTA, 16)
	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, long, string(rec.Seq))
}

func TestSeekRereadsRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fastq")
	require.NoError(t, os.WriteFile(path, []byte(fastq), 0o644))

	r, err := Open(path, FASTQ, 0)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.Seekable())

	recs, _ := readAll(t, r)
	require.NoError(t, r.Seek(recs[1].Offset))
	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, recs[1].Chunk, rec.Chunk)
	require.Equal(t, recs[1].Offset, rec.Offset)

	require.NoError(t, r.Seek(0))
	rec, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "ACGT", string(rec.Seq))
}

func TestOpenGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fastq.gz")
	fh, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(fastq))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	r, err := Open(path, FASTQ, 0)
	require.NoError(t, err)
	defer r.Close()
	require.False(t, r.Seekable())
	recs, errs := readAll(t, r)
	require.Empty(t, errs)
	require.Len(t, recs, 2)
	require.Error(t, r.Seek(0))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.fa"), FASTA, 0)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"a.fastq": FASTQ, "a.fq": FASTQ, "dir/a.FQ.gz": FASTQ,
		"a.fasta": FASTA, "a.fa": FASTA, "a.fna.gz": FASTA,
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		require.Equal(t, want, got, path)
	}
	for _, bad := range []string{"a.txt", "noext", "a.gz"} {
		_, err := FormatFromPath(bad)
		require.ErrorIs(t, err, ErrUnknownExtension, bad)
	}
}
