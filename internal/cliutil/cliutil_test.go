package cliutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestExpandPositionals(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fa")
	b := filepath.Join(dir, "b.fa")
	require.NoError(t, os.WriteFile(a, []byte(">a\nA\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(">b\nA\n"), 0o644))

	got, err := ExpandPositionals([]string{filepath.Join(dir, "*.fa"), "-", "plain.fq"})
	require.NoError(t, err)
	require.Equal(t, []string{a, b, "-", "plain.fq"}, got)

	_, err = ExpandPositionals([]string{filepath.Join(dir, "*.fq")})
	require.Error(t, err)
}

func TestByteSizeVar(t *testing.T) {
	fs := pflag.NewFlagSet("x", pflag.ContinueOnError)
	var size datasize.ByteSize
	ByteSizeVar(fs, &size, "buffer", datasize.MB, "")
	require.Equal(t, datasize.MB, size)

	require.NoError(t, fs.Parse([]string{"--buffer", "64KB"}))
	require.Equal(t, 64*datasize.KB, size)

	require.Error(t, fs.Parse([]string{"--buffer", "lots"}))
}
