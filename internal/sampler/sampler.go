// Package sampler keeps the reads whose density score falls below one or
// more thresholds and writes them verbatim to per-threshold outputs.
package sampler

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"racesample/internal/reads"
	"racesample/internal/writers"
)

// Thresholds is an ascending list of distinct positive cut-offs.
type Thresholds []float64

// ParseThresholds reads a comma separated list such as "0.5,2,10".
func ParseThresholds(s string) (Thresholds, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("no threshold given")
	}
	var out Thresholds
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		tau, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q", f)
		}
		if !(tau > 0) {
			return nil, fmt.Errorf("threshold %q must be > 0", f)
		}
		out = append(out, tau)
	}
	slices.Sort(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, fmt.Errorf("duplicate threshold %s", Format(out[i]))
		}
	}
	return out, nil
}

func (t Thresholds) String() string {
	parts := make([]string, len(t))
	for i, tau := range t {
		parts[i] = Format(tau)
	}
	return strings.Join(parts, ",")
}

// Format renders a threshold the way it appears in output names.
func Format(tau float64) string { return strconv.FormatFloat(tau, 'g', -1, 64) }

// Keep reports whether a read with this score is retained at tau.
func Keep(score, tau float64) bool { return score < tau }

// OutputPath names the output for tau. A single threshold uses out as given;
// several get "<base>-<tau><ext>", with a trailing .gz kept after the extension.
func OutputPath(out string, tau float64, multi bool) string {
	if !multi || out == "-" {
		return out
	}
	gz := ""
	if strings.HasSuffix(strings.ToLower(out), ".gz") {
		gz = out[len(out)-3:]
		out = out[:len(out)-3]
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-" + Format(tau) + ext + gz
}

// Target is the output set of one threshold.
type Target struct {
	Tau   float64
	Sinks []*writers.Sink
	Kept  int64
}

// Sampler fans each scored read out to every threshold that keeps it.
type Sampler struct {
	targets []*Target
}

// Options control how outputs are opened.
type Options struct {
	Append     bool
	BufferSize int
}

// New opens one sink per threshold and stream. outs holds one path per
// stream of the layout.
func New(taus Thresholds, outs []string, opt Options) (*Sampler, error) {
	if len(taus) == 0 {
		return nil, errors.New("sampler: no thresholds")
	}
	multi := len(taus) > 1
	if multi {
		for _, o := range outs {
			if o == "-" {
				return nil, errors.New("sampler: stdout output needs a single threshold")
			}
		}
	}
	var paths []string
	for _, tau := range taus {
		for _, o := range outs {
			paths = append(paths, OutputPath(o, tau, multi))
		}
	}
	sinks, err := writers.CreateAll(paths, opt.Append, opt.BufferSize)
	if err != nil {
		return nil, err
	}
	s := &Sampler{}
	for i, tau := range taus {
		s.targets = append(s.targets, &Target{Tau: tau, Sinks: sinks[i*len(outs) : (i+1)*len(outs)]})
	}
	return s, nil
}

// Offer writes rd to every target whose threshold keeps score. Thresholds
// are ascending, so the scan stops at the first target that rejects it.
func (s *Sampler) Offer(score float64, rd reads.Read) error {
	for i := len(s.targets) - 1; i >= 0; i-- {
		t := s.targets[i]
		if !Keep(score, t.Tau) {
			break
		}
		for j, sink := range t.Sinks {
			if err := sink.WriteRecord(rd.Chunks[j]); err != nil {
				return err
			}
		}
		t.Kept++
	}
	return nil
}

func (s *Sampler) Targets() []*Target { return s.targets }

// Close closes every sink and returns the first error.
func (s *Sampler) Close() error {
	var all []*writers.Sink
	for _, t := range s.targets {
		all = append(all, t.Sinks...)
	}
	return writers.CloseAll(all)
}
