package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/log/v3"

	"racesample/internal/fastx"
	"racesample/internal/logging"
	"racesample/internal/permute"
	"racesample/internal/race"
	"racesample/internal/reads"
	"racesample/internal/sampler"
	"racesample/internal/writers"
)

// ErrNotSeekable rejects reorder runs over compressed or streamed input.
var ErrNotSeekable = errors.New("input must be a plain seekable file")

var logInterval = 20 * time.Second

// Config describes one run. A positive BatchSize selects reordering;
// otherwise Thresholds select sampling.
type Config struct {
	Layout  reads.Layout
	Inputs  [][2]string // one entry per input set; [1] is used for PE only
	Outputs [2]string   // [1] is used for PE only

	Thresholds sampler.Thresholds
	SavePath   string

	BatchSize int
	ScoreMode permute.ScoreMode

	Params     race.Params
	MaxSkips   int
	BufferSize int
}

// Permute reports whether the run reorders instead of sampling.
func (c Config) Permute() bool { return c.BatchSize > 0 }

func (c Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	switch c.Layout {
	case reads.Single, reads.Interleaved, reads.Paired:
	default:
		return fmt.Errorf("unknown layout %v", c.Layout)
	}
	if len(c.Inputs) == 0 {
		return errors.New("no input files")
	}
	if c.Outputs[0] == "" || (c.Layout == reads.Paired && c.Outputs[1] == "") {
		return errors.New("missing output file")
	}
	for _, in := range c.Inputs {
		for i := 0; i < c.Layout.Streams(); i++ {
			if in[i] == "" {
				return errors.New("missing input file")
			}
			if _, err := inputFormat(in[i], c.Outputs[i]); err != nil {
				return err
			}
		}
	}
	if c.MaxSkips < 0 {
		return errors.New("--max-skips must be >= 0")
	}
	if c.Permute() {
		if len(c.Inputs) != 1 {
			return errors.New("reordering takes exactly one input set")
		}
		if c.SavePath != "" {
			return errors.New("--save is not supported when reordering")
		}
		return nil
	}
	if len(c.Thresholds) == 0 {
		return errors.New("no threshold given")
	}
	for _, tau := range c.Thresholds {
		if !(tau > 0) {
			return fmt.Errorf("threshold %s must be > 0", sampler.Format(tau))
		}
	}
	if c.SavePath != "" {
		return race.CheckSavePath(c.SavePath)
	}
	return nil
}

// Outs lists the output paths the layout uses.
func (c Config) Outs() []string { return c.Outputs[:c.Layout.Streams()] }

// Result summarises a finished run.
type Result struct {
	Records int64
	Skipped int
	Targets []TargetResult // sampling
	Written int64          // reordering
	Loaded  bool           // sketch resumed from SavePath
	Saved   bool
	Sketch  race.Stats
	Elapsed time.Duration
}

type TargetResult struct {
	Tau   float64
	Paths []string
	Kept  int64
	Bytes int64 // record bytes written, before compression
}

// Run executes cfg. On cancellation it returns ctx.Err() with whatever
// output was already written and leaves the savefile untouched.
func Run(ctx context.Context, cfg Config, logger log.Logger) (Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	sketch, err := race.New(cfg.Params.Repetitions, cfg.Params.Range)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if cfg.SavePath != "" {
		loaded, err := race.Load(cfg.SavePath, sketch)
		if err != nil {
			return Result{}, err
		}
		res.Loaded = loaded
		if loaded {
			logger.Info("Resuming from savefile", "path", cfg.SavePath, "records", sketch.Stats().Records)
		}
	}
	sc, err := race.NewScorer(cfg.Params, sketch)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Sketch ready", "reps", cfg.Params.Repetitions, "range", cfg.Params.Range,
		"hashes", cfg.Params.HashPower, "k", cfg.Params.K,
		"mem", datasize.ByteSize(sketch.SizeBytes()).HumanReadable())

	if cfg.Permute() {
		err = runPermute(ctx, cfg, sc, &res, logger)
	} else {
		err = runSample(ctx, cfg, sc, &res, logger)
	}
	res.Sketch = sketch.Stats()
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}
	if cfg.SavePath != "" {
		if err := race.Save(cfg.SavePath, sketch); err != nil {
			return res, err
		}
		res.Saved = true
		logger.Info("Saved sketch", "path", cfg.SavePath)
	}
	return res, nil
}

// inputFormat picks the record format of path; stdin borrows it from the
// matching output name.
func inputFormat(path, out string) (fastx.Format, error) {
	if path == "-" {
		f, err := fastx.FormatFromPath(out)
		if err != nil {
			return 0, fmt.Errorf("cannot tell the record format of stdin from output %q: %w", out, err)
		}
		return f, nil
	}
	return fastx.FormatFromPath(path)
}

// openSet opens one input set and wraps it in a read source.
func openSet(cfg Config, set [2]string, logger log.Logger) (*reads.Source, func(), error) {
	var rs []*fastx.Reader
	closeAll := func() {
		for _, r := range rs {
			_ = r.Close()
		}
	}
	for i := 0; i < cfg.Layout.Streams(); i++ {
		format, err := inputFormat(set[i], cfg.Outputs[i])
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		r, err := fastx.Open(set[i], format, cfg.BufferSize)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		rs = append(rs, r)
	}
	var r2 *fastx.Reader
	if len(rs) > 1 {
		r2 = rs[1]
	}
	src, err := reads.NewSource(cfg.Layout, rs[0], r2, cfg.MaxSkips, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return src, closeAll, nil
}

func runSample(ctx context.Context, cfg Config, sc *race.Scorer, res *Result, logger log.Logger) (err error) {
	smp, err := sampler.New(cfg.Thresholds, cfg.Outs(), sampler.Options{
		Append:     cfg.SavePath != "",
		BufferSize: cfg.BufferSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := smp.Close(); cerr != nil && err == nil {
			err = cerr
		}
		for _, t := range smp.Targets() {
			tr := TargetResult{Tau: t.Tau, Kept: t.Kept}
			for _, s := range t.Sinks {
				tr.Paths = append(tr.Paths, s.Path())
				tr.Bytes += s.BytesOut()
			}
			res.Targets = append(res.Targets, tr)
		}
	}()

	logEvery := time.NewTicker(logInterval)
	defer logEvery.Stop()

	for _, set := range cfg.Inputs {
		if err := sampleSet(ctx, cfg, set, sc, smp, res, logEvery, logger); err != nil {
			return err
		}
	}
	return nil
}

func sampleSet(ctx context.Context, cfg Config, set [2]string, sc *race.Scorer, smp *sampler.Sampler,
	res *Result, logEvery *time.Ticker, logger log.Logger) error {
	src, closeInputs, err := openSet(cfg, set, logger)
	if err != nil {
		return err
	}
	defer closeInputs()
	logger.Info("Processing", "input", inputName(cfg, set))
	defer func() { res.Skipped += src.Skipped() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-logEvery.C:
			logger.Info("Progress", "records", res.Records, "skipped", res.Skipped+src.Skipped())
		default:
		}
		rd, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		res.Records++
		if err := smp.Offer(sc.ScoreAndAdd(rd.Seq), rd); err != nil {
			return err
		}
	}
}

func inputName(cfg Config, set [2]string) string {
	if cfg.Layout == reads.Paired {
		return set[0] + " and " + set[1]
	}
	return set[0]
}

// sinkWriter writes each stream of a read to its own sink.
type sinkWriter struct {
	sinks []*writers.Sink
	n     int64
}

func (w *sinkWriter) WriteRead(rd reads.Read) error {
	for i, s := range w.sinks {
		if err := s.WriteRecord(rd.Chunks[i]); err != nil {
			return err
		}
	}
	w.n++
	return nil
}

func runPermute(ctx context.Context, cfg Config, sc *race.Scorer, res *Result, logger log.Logger) (err error) {
	set := cfg.Inputs[0]
	src, closeInputs, err := openSet(cfg, set, logger)
	if err != nil {
		return err
	}
	defer closeInputs()
	if !src.Seekable() {
		return fmt.Errorf("%w: %s cannot be reordered; decompress it first", ErrNotSeekable, inputName(cfg, set))
	}

	logger.Info("Scoring", "input", inputName(cfg, set), "scoretype", cfg.ScoreMode)
	entries, err := permute.ScorePass(ctx, src, sc, cfg.ScoreMode)
	res.Skipped = src.Skipped()
	if err != nil {
		return err
	}
	res.Records = int64(len(entries))
	permute.Sort(entries)

	sinks, err := writers.CreateAll(cfg.Outs(), false, cfg.BufferSize)
	if err != nil {
		return err
	}
	w := &sinkWriter{sinks: sinks}
	defer func() {
		if cerr := writers.CloseAll(sinks); cerr != nil && err == nil {
			err = cerr
		}
		res.Written = w.n
	}()
	logger.Info("Rewriting", "records", len(entries), "batch", cfg.BatchSize)
	return permute.Rewrite(ctx, src, entries, cfg.BatchSize, w)
}
