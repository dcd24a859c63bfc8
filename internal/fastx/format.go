// Package fastx reads FASTA (2-line, '>') and FASTQ (4-line, '@') records one
// at a time, keeping each record's literal text and its byte offset so it can
// be copied verbatim or re-read later by seeking.
//
// Only the record boundaries are checked: a header sentinel, a non-empty
// sequence line and the right number of lines. Content is never interpreted.
package fastx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Format int

const (
	FASTA Format = iota + 1
	FASTQ
)

// Lines is the number of text lines per record.
func (f Format) Lines() int {
	if f == FASTQ {
		return 4
	}
	return 2
}

// Sentinel is the first byte of every header line.
func (f Format) Sentinel() byte {
	if f == FASTQ {
		return '@'
	}
	return '>'
}

func (f Format) String() string {
	switch f {
	case FASTA:
		return "fasta"
	case FASTQ:
		return "fastq"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

var ErrUnknownExtension = errors.New("unknown file extension")

// FormatFromPath picks the format from the file extension, ignoring a
// trailing .gz. "-" (stdin) has no extension and must be resolved by the caller.
func FormatFromPath(path string) (Format, error) {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	switch ext {
	case "fasta", "fa", "fna", "fas":
		return FASTA, nil
	case "fastq", "fq":
		return FASTQ, nil
	case "":
		return 0, fmt.Errorf("%w: %s has no extension; use .fasta or .fastq", ErrUnknownExtension, path)
	}
	return 0, fmt.Errorf("%w %q for %s; use .fasta or .fastq", ErrUnknownExtension, ext, path)
}

// ParseError reports a malformed record. The reader has already consumed the
// offending lines, so the next call to Next continues after them.
type ParseError struct {
	Path   string
	Offset int64
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: record at byte %d: %s", e.Path, e.Offset, e.Reason)
}
