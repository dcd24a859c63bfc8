package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"racesample/internal/permute"
	"racesample/internal/reads"
	"racesample/internal/sampler"
)

func parse(t *testing.T, register func(*pflag.FlagSet, *Options), argv ...string) (Options, []string) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var o Options
	register(fs, &o)
	RegisterLogging(fs, &o)
	require.NoError(t, fs.Parse(argv))
	return o, fs.Args()
}

func TestDefaults(t *testing.T) {
	o, _ := parse(t, RegisterPermute)
	p := o.Params()
	require.Equal(t, 10000, p.Range)
	require.Equal(t, 10, p.Repetitions)
	require.Equal(t, 1, p.HashPower)
	require.Equal(t, 16, p.K)
	require.Equal(t, 1, p.Workers)
	require.Equal(t, 100000, o.ChunkSize)
	require.Equal(t, "R", o.ScoreType)
	require.Equal(t, 64, o.MaxSkips)
	require.Equal(t, "info", o.LogLevel)
}

func TestSampleConfigFlagsAfterPositionals(t *testing.T) {
	o, args := parse(t, RegisterSample, "2,0.5", "SE", "a.fq", "b.fq", "out.fq", "--range", "50", "--save", "s.bin")
	cfg, err := SampleConfig(o, args, nil)
	require.NoError(t, err)
	require.Equal(t, reads.Single, cfg.Layout)
	require.Equal(t, sampler.Thresholds{0.5, 2}, cfg.Thresholds)
	require.Equal(t, [][2]string{{"a.fq"}, {"b.fq"}}, cfg.Inputs)
	require.Equal(t, "out.fq", cfg.Outputs[0])
	require.Equal(t, 50, cfg.Params.Range)
	require.Equal(t, "s.bin", cfg.SavePath)
	require.False(t, cfg.Permute())
}

func TestSampleConfigPaired(t *testing.T) {
	o, args := parse(t, RegisterSample, "1", "PE", "r1.fq", "r2.fq", "o1.fq", "o2.fq")
	cfg, err := SampleConfig(o, args, nil)
	require.NoError(t, err)
	require.Equal(t, [][2]string{{"r1.fq", "r2.fq"}}, cfg.Inputs)
	require.Equal(t, [2]string{"o1.fq", "o2.fq"}, cfg.Outputs)

	o, args = parse(t, RegisterSample, "1", "PE", "r1.fq", "o1.fq", "o2.fq")
	_, err = SampleConfig(o, args, nil)
	var ue *UsageError
	require.ErrorAs(t, err, &ue)
}

func TestSampleConfigFileList(t *testing.T) {
	list := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(list, []byte("/data\nx.fa\ny.fa\n"), 0o644))
	o, args := parse(t, RegisterSample, "1", "I", "out.fa", "--file-list", list)
	cfg, err := SampleConfig(o, args, nil)
	require.NoError(t, err)
	require.Equal(t, [][2]string{{"/data/x.fa"}, {"/data/y.fa"}}, cfg.Inputs)
}

func TestSampleConfigRejects(t *testing.T) {
	cases := [][]string{
		{"0", "SE", "a.fq", "o.fq"},
		{"1", "XX", "a.fq", "o.fq"},
		{"1", "SE", "o.fq"},
		{"1", "SE", "a.txt", "o.fq"},
		{"1", "SE", "a.fq", "o.fq", "--k", "0"},
		{"1", "SE", "a.fq", "o.fq", "--save", "s.dat"},
		{"1", "SE", "a.fq", "o.fq", "--threads", "-1"},
	}
	for _, argv := range cases {
		o, args := parse(t, RegisterSample, argv...)
		_, err := SampleConfig(o, args, nil)
		var ue *UsageError
		require.ErrorAs(t, err, &ue, "%v", argv)
	}
}

func TestPermuteConfig(t *testing.T) {
	o, args := parse(t, RegisterPermute, "I", "in.fa", "out.fa", "--scoretype", "F", "--chunksize", "7")
	cfg, err := PermuteConfig(o, args)
	require.NoError(t, err)
	require.True(t, cfg.Permute())
	require.Equal(t, 7, cfg.BatchSize)
	require.Equal(t, permute.Full, cfg.ScoreMode)
	require.Equal(t, reads.Interleaved, cfg.Layout)

	for _, argv := range [][]string{
		{"SE", "in.fa"},
		{"PE", "a.fa", "b.fa", "o.fa"},
		{"SE", "in.fa", "out.fa", "--scoretype", "Z"},
		{"SE", "in.fa", "out.fa", "--chunksize", "0"},
	} {
		o, args := parse(t, RegisterPermute, argv...)
		_, err := PermuteConfig(o, args)
		var ue *UsageError
		require.ErrorAs(t, err, &ue, "%v", argv)
	}
}

func TestThreadsZeroUsesAllCPUs(t *testing.T) {
	o, _ := parse(t, RegisterSample, "--threads", "0")
	require.GreaterOrEqual(t, o.Params().Workers, 1)
}
