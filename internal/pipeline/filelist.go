package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ledgerwatch/log/v3"

	"racesample/internal/logging"
	"racesample/internal/reads"
)

// ReadFileList parses a manifest of input files. A line starting with "/"
// and carrying no extension sets the directory for the names that follow;
// any other line with an extension is a file. For paired layouts names
// containing "_1" and "_2" form the first and second lists, paired in order.
// Unrecognised lines are logged and ignored.
func ReadFileList(r io.Reader, layout reads.Layout, logger log.Logger) ([][2]string, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	var (
		dir           string
		first, second []string
		lineNo        int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		hasExt := path.Ext(line) != ""
		switch {
		case strings.HasPrefix(line, "/") && !hasExt:
			dir = line
		case !hasExt:
			logger.Warn("Ignoring file list line: names need an extension, directories must start with /", "line", lineNo, "text", line)
		case layout != reads.Paired:
			first = append(first, join(dir, line))
		case strings.Contains(line, "_1"):
			first = append(first, join(dir, line))
		case strings.Contains(line, "_2"):
			second = append(second, join(dir, line))
		default:
			logger.Warn("Ignoring file list line: paired names need _1 or _2", "line", lineNo, "text", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	if layout == reads.Paired && len(first) != len(second) {
		return nil, fmt.Errorf("file list has %d first-mate files and %d second-mate files", len(first), len(second))
	}
	if len(first) == 0 {
		return nil, errors.New("file list names no input files")
	}
	out := make([][2]string, len(first))
	for i := range first {
		out[i][0] = first[i]
		if layout == reads.Paired {
			out[i][1] = second[i]
		}
	}
	return out, nil
}

// LoadFileList opens and parses the manifest at name.
func LoadFileList(name string, layout reads.Layout, logger log.Logger) ([][2]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open file list: %w", err)
	}
	defer f.Close()
	return ReadFileList(f, layout, logger)
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
