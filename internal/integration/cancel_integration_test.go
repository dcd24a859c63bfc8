package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"racesample/internal/app"
)

func TestCtrlC_MidStream_Exit130(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "big.fa")
	rec := ">r\n" + strings.Repeat("ACGTTGCA", 32) + "\n"
	require.NoError(t, os.WriteFile(in, []byte(strings.Repeat(rec, 50000)), 0o644))
	save := filepath.Join(dir, "sketch.bin")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	code := app.RunContext(ctx, []string{"sample", "1", "SE", in, filepath.Join(dir, "out.fa"), "--save", save}, io.Discard, io.Discard)
	require.Equal(t, 130, code)
	_, err := os.Stat(save)
	require.True(t, os.IsNotExist(err), "savefile must not be written on cancel")
}
