// Package report renders run summaries and savefile statistics as tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"racesample/internal/pipeline"
	"racesample/internal/race"
	"racesample/internal/sampler"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func percent(n, of int64) string {
	if of == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(n)/float64(of))
}

// WriteSummary prints what a run read and wrote.
func WriteSummary(w io.Writer, cfg pipeline.Config, res pipeline.Result) {
	t := newTable(w)
	t.SetTitle("racesample %s", mode(cfg))
	t.AppendRow(table.Row{"records", res.Records})
	t.AppendRow(table.Row{"skipped", res.Skipped})
	t.AppendRow(table.Row{"elapsed", res.Elapsed.Round(time.Millisecond).String()})
	if cfg.SavePath != "" {
		state := "new"
		if res.Loaded {
			state = "resumed"
		}
		if res.Saved {
			state += ", saved"
		}
		t.AppendRow(table.Row{"savefile", cfg.SavePath + " (" + state + ")"})
	}
	if cfg.Permute() {
		t.AppendRow(table.Row{"written", res.Written})
	}
	t.Render()

	if len(res.Targets) == 0 {
		return
	}
	kt := newTable(w)
	kt.AppendHeader(table.Row{"tau", "kept", "fraction", "size", "output"})
	kt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, tg := range res.Targets {
		kt.AppendRow(table.Row{sampler.Format(tg.Tau), tg.Kept, percent(tg.Kept, res.Records),
			datasize.ByteSize(tg.Bytes).HumanReadable(), strings.Join(tg.Paths, ", ")})
	}
	kt.Render()
}

func mode(cfg pipeline.Config) string {
	if cfg.Permute() {
		return "permute " + cfg.Layout.String() + " scoretype=" + cfg.ScoreMode.String()
	}
	return "sample " + cfg.Layout.String() + " tau=" + cfg.Thresholds.String()
}

// WriteStats prints the shape and counter statistics of a sketch.
func WriteStats(w io.Writer, name string, st race.Stats, size uint64) {
	t := newTable(w)
	t.SetTitle(name)
	t.AppendRows([]table.Row{
		{"repetitions", st.Repetitions},
		{"range", st.Range},
		{"records", st.Records},
		{"occupied buckets", fmt.Sprintf("%d (%s)", st.Occupied, percent(int64(st.Occupied), int64(st.Repetitions)*int64(st.Range)))},
		{"max count", st.MaxCount},
		{"memory", datasize.ByteSize(size).HumanReadable()},
	})
	t.Render()
}

type statsJSON struct {
	Path        string `json:"path"`
	Repetitions int    `json:"repetitions"`
	Range       int    `json:"range"`
	Records     uint64 `json:"records"`
	Occupied    int    `json:"occupied"`
	MaxCount    uint64 `json:"max_count"`
	Bytes       uint64 `json:"bytes"`
}

// WriteStatsJSON prints the same statistics as indented JSON.
func WriteStatsJSON(w io.Writer, name string, st race.Stats, size uint64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(statsJSON{
		Path:        name,
		Repetitions: st.Repetitions,
		Range:       st.Range,
		Records:     st.Records,
		Occupied:    st.Occupied,
		MaxCount:    st.MaxCount,
		Bytes:       size,
	})
}
