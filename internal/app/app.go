package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledgerwatch/log/v3"
	"github.com/spf13/cobra"

	"racesample/internal/cli"
	"racesample/internal/fastx"
	"racesample/internal/logging"
	"racesample/internal/pipeline"
	"racesample/internal/race"
	"racesample/internal/report"
	"racesample/internal/version"
	"racesample/internal/writers"
)

// Exit statuses.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitRuntime   = 3
	ExitCancelled = 130
)

// runError marks a failure that happened after the command line was accepted.
type runError struct{ err error }

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// ExitCode maps an error returned by the command tree to a process status.
func ExitCode(err error) int {
	var ue *cli.UsageError
	var re *runError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCancelled
	case writers.IsBrokenPipe(err):
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, fastx.ErrUnknownExtension),
		errors.Is(err, pipeline.ErrNotSeekable):
		return ExitUsage
	case errors.As(err, &re):
		return ExitRuntime
	}
	// cobra's own argument and flag errors
	return ExitUsage
}

type runner struct {
	opts   cli.Options
	stderr io.Writer
	logger log.Logger
}

func (r *runner) setupLogging(*cobra.Command, []string) error {
	lvl, err := logging.ParseLevel(r.opts.LogLevel, r.opts.Quiet)
	if err != nil {
		return &cli.UsageError{Err: err}
	}
	r.logger = logging.New(r.stderr, lvl)
	return nil
}

func (r *runner) run(ctx context.Context, cfg pipeline.Config) error {
	res, err := pipeline.Run(ctx, cfg, r.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Warn("Interrupted; savefile not written", "records", res.Records)
			return err
		}
		return &runError{err: err}
	}
	if !r.opts.Quiet {
		report.WriteSummary(r.stderr, cfg, res)
	}
	return nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	r := &runner{stderr: stderr}
	root := &cobra.Command{
		Use:               "racesample",
		Short:             "Density-based sampling and reordering of sequencing reads",
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setupLogging,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("racesample version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cli.UsageError{Err: err}
	})
	cli.RegisterLogging(root.PersistentFlags(), &r.opts)

	sample := &cobra.Command{
		Use:     "sample <tau[,tau...]> <SE|I|PE> <input...> [input2] <output> [output2]",
		Short:   "Keep reads whose density score is below a threshold",
		Long:    cli.SampleLong,
		Example: cli.SampleExamples,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.SampleConfig(r.opts, args, r.logger)
			if err != nil {
				return err
			}
			return r.run(cmd.Context(), cfg)
		},
	}
	cli.RegisterSample(sample.Flags(), &r.opts)

	perm := &cobra.Command{
		Use:     "permute <SE|I|PE> <input> [input2] <output> [output2]",
		Short:   "Reorder reads by ascending density score",
		Long:    cli.PermuteLong,
		Example: cli.PermuteExamples,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.PermuteConfig(r.opts, args)
			if err != nil {
				return err
			}
			return r.run(cmd.Context(), cfg)
		},
	}
	cli.RegisterPermute(perm.Flags(), &r.opts)

	var asJSON bool
	inspect := &cobra.Command{
		Use:     "inspect <savefile.bin>",
		Short:   "Print the shape and counter statistics of a savefile",
		Example: cli.InspectExamples,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := race.CheckSavePath(args[0]); err != nil {
				return &cli.UsageError{Err: err}
			}
			s, err := race.LoadFile(args[0])
			if err != nil {
				return &runError{err: err}
			}
			if asJSON {
				if err := report.WriteStatsJSON(cmd.OutOrStdout(), args[0], s.Stats(), s.SizeBytes()); err != nil {
					return &runError{err: err}
				}
				return nil
			}
			report.WriteStats(cmd.OutOrStdout(), args[0], s.Stats(), s.SizeBytes())
			return nil
		},
	}
	inspect.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")

	root.AddCommand(sample, perm, inspect)
	return root
}

// RunContext executes argv and returns the process exit status.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	if argv == nil {
		argv = []string{}
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(argv)
	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	if err != nil && code != ExitOK && code != ExitCancelled {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		if code == ExitUsage {
			_, _ = fmt.Fprintln(stderr, "Run 'racesample --help' for usage.")
		}
	}
	return code
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
