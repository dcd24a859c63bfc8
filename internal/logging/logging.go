// Package logging builds the run logger: leveled key/value records on stderr,
// coloured when stderr is a terminal.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledgerwatch/log/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ParseLevel maps a --log-level value to a level. Quiet lowers the output
// to errors only, whatever the level.
func ParseLevel(s string, quiet bool) (log.Lvl, error) {
	if quiet {
		return log.LvlError, nil
	}
	lvl, err := log.LvlFromString(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q, please specify one of trace, debug, info, warn, error, crit", s)
	}
	return lvl, nil
}

// New returns a logger writing to w at lvl and above.
func New(w io.Writer, lvl log.Lvl) log.Logger {
	usecolor := false
	if f, ok := w.(*os.File); ok {
		usecolor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if usecolor {
			w = colorable.NewColorable(f)
		}
	}
	fmtr := log.TerminalFormatNoColor()
	if usecolor {
		fmtr = log.TerminalFormat()
	}
	logger := log.New()
	logger.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(w, fmtr)))
	return logger
}

// Discard returns a logger that drops every record.
func Discard() log.Logger {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return logger
}
