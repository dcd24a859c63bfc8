// Package cli turns command lines into validated run configurations.
package cli

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/log/v3"
	"github.com/spf13/pflag"

	"racesample/internal/cliutil"
	"racesample/internal/permute"
	"racesample/internal/pipeline"
	"racesample/internal/race"
	"racesample/internal/reads"
	"racesample/internal/sampler"
)

// UsageError marks a problem with the command line itself (exit status 2).
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef builds a UsageError.
func Usagef(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// Options holds all CLI flags.
type Options struct {
	// Sketch
	Range  int
	Reps   int
	Hashes int
	K      int

	// Permute
	ChunkSize int
	ScoreType string

	// Sample
	Save     string
	FileList string

	// Performance
	Threads  int
	MaxSkips int
	Buffer   datasize.ByteSize

	// Misc
	LogLevel string
	Quiet    bool
}

// RegisterCommon wires the flags every run command takes.
func RegisterCommon(fs *pflag.FlagSet, o *Options) {
	fs.IntVar(&o.Range, "range", 10000, "buckets per repetition (B)")
	fs.IntVar(&o.Reps, "reps", 10, "sketch repetitions (R)")
	fs.IntVar(&o.Hashes, "hashes", 1, "MinHash lanes folded into each repetition")
	fs.IntVar(&o.K, "k", 16, "k-mer length")
	fs.IntVarP(&o.Threads, "threads", "t", 1, "fingerprint worker goroutines (0 = all CPUs)")
	fs.IntVar(&o.MaxSkips, "max-skips", 64, "consecutive malformed records tolerated before aborting")
	cliutil.ByteSizeVar(fs, &o.Buffer, "buffer", datasize.MB, "read and write buffer size")
}

// RegisterSample wires the flags of the sample command.
func RegisterSample(fs *pflag.FlagSet, o *Options) {
	RegisterCommon(fs, o)
	fs.StringVar(&o.Save, "save", "", "savefile (.bin) to resume the sketch from and save it to")
	fs.StringVar(&o.FileList, "file-list", "", "manifest listing the input files")
}

// RegisterPermute wires the flags of the permute command.
func RegisterPermute(fs *pflag.FlagSet, o *Options) {
	RegisterCommon(fs, o)
	fs.IntVar(&o.ChunkSize, "chunksize", 100000, "reads held in memory per rewrite batch")
	fs.StringVar(&o.ScoreType, "scoretype", "R", "score to order by: R running | N normalised | F full")
}

// RegisterLogging wires the logging flags; they are shared by every command.
func RegisterLogging(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.LogLevel, "log-level", "info", "trace | debug | info | warn | error | crit")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "only log errors and skip the summary")
}

// Params converts the sketch flags.
func (o Options) Params() race.Params {
	workers := o.Threads
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return race.Params{Range: o.Range, Repetitions: o.Reps, HashPower: o.Hashes, K: o.K, Workers: workers}
}

func (o Options) validate() error {
	if err := o.Params().Validate(); err != nil {
		return &UsageError{Err: err}
	}
	if o.Threads < 0 {
		return Usagef("--threads must be >= 0")
	}
	if o.MaxSkips < 0 {
		return Usagef("--max-skips must be >= 0")
	}
	if o.Buffer < 16 || o.Buffer > datasize.GB {
		return Usagef("--buffer must be between 16B and 1GB")
	}
	return nil
}

func (o Options) base(layout reads.Layout) pipeline.Config {
	return pipeline.Config{
		Layout:     layout,
		Params:     o.Params(),
		MaxSkips:   o.MaxSkips,
		BufferSize: int(o.Buffer.Bytes()),
	}
}

// SampleConfig validates `<tau[,tau...]> <SE|I|PE> <in...> [in2] <out> [out2]`.
// SE and I take any number of inputs (globs expanded) before the output, or
// none when --file-list names them.
func SampleConfig(o Options, args []string, logger log.Logger) (pipeline.Config, error) {
	if err := o.validate(); err != nil {
		return pipeline.Config{}, err
	}
	if len(args) < 3 {
		return pipeline.Config{}, Usagef("sample needs <tau> <SE|I|PE> <input...> <output>")
	}
	taus, err := sampler.ParseThresholds(args[0])
	if err != nil {
		return pipeline.Config{}, &UsageError{Err: err}
	}
	layout, err := reads.ParseLayout(args[1])
	if err != nil {
		return pipeline.Config{}, &UsageError{Err: err}
	}
	cfg := o.base(layout)
	cfg.Thresholds = taus
	cfg.SavePath = o.Save

	rest := args[2:]
	streams := layout.Streams()
	if len(rest) < streams {
		return pipeline.Config{}, Usagef("missing output file")
	}
	outs, ins := rest[len(rest)-streams:], rest[:len(rest)-streams]
	copy(cfg.Outputs[:], outs)

	switch {
	case o.FileList != "":
		if len(ins) > 0 {
			return pipeline.Config{}, Usagef("--file-list replaces the input arguments; got %d extra", len(ins))
		}
		cfg.Inputs, err = pipeline.LoadFileList(o.FileList, layout, logger)
		if err != nil {
			return pipeline.Config{}, err
		}
	case layout == reads.Paired:
		if len(ins) != 2 {
			return pipeline.Config{}, Usagef("PE needs exactly two inputs and two outputs")
		}
		cfg.Inputs = [][2]string{{ins[0], ins[1]}}
	default:
		if len(ins) == 0 {
			return pipeline.Config{}, Usagef("missing input file")
		}
		files, err := cliutil.ExpandPositionals(ins)
		if err != nil {
			return pipeline.Config{}, &UsageError{Err: err}
		}
		for _, f := range files {
			cfg.Inputs = append(cfg.Inputs, [2]string{f})
		}
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, asUsage(err)
	}
	return cfg, nil
}

// PermuteConfig validates `<SE|I|PE> <in> [in2] <out> [out2]`.
func PermuteConfig(o Options, args []string) (pipeline.Config, error) {
	if err := o.validate(); err != nil {
		return pipeline.Config{}, err
	}
	if len(args) < 1 {
		return pipeline.Config{}, Usagef("permute needs <SE|I|PE> <input> <output>")
	}
	layout, err := reads.ParseLayout(args[0])
	if err != nil {
		return pipeline.Config{}, &UsageError{Err: err}
	}
	if want := 1 + 2*layout.Streams(); len(args) != want {
		return pipeline.Config{}, Usagef("permute %s takes %d file arguments, got %d", layout, want-1, len(args)-1)
	}
	if o.ChunkSize <= 0 {
		return pipeline.Config{}, Usagef("--chunksize must be > 0")
	}
	mode, err := permute.ParseScoreMode(o.ScoreType)
	if err != nil {
		return pipeline.Config{}, &UsageError{Err: err}
	}
	cfg := o.base(layout)
	cfg.BatchSize = o.ChunkSize
	cfg.ScoreMode = mode
	n := layout.Streams()
	var in [2]string
	copy(in[:], args[1:1+n])
	cfg.Inputs = [][2]string{in}
	copy(cfg.Outputs[:], args[1+n:])
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, asUsage(err)
	}
	return cfg, nil
}

func asUsage(err error) error {
	var ue *UsageError
	if errors.As(err, &ue) {
		return err
	}
	return &UsageError{Err: err}
}
