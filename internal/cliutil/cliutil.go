// Package cliutil holds small flag and argument helpers shared by commands.
package cliutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/pflag"
)

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// ExpandPositionals expands any globs among path-like positionals.
func ExpandPositionals(posArgs []string) ([]string, error) {
	var out []string
	for _, a := range posArgs {
		if a == "-" {
			out = append(out, a)
			continue
		}
		if hasGlobMeta(a) {
			m, err := filepath.Glob(a)
			if err != nil {
				return nil, fmt.Errorf("bad glob %q: %v", a, err)
			}
			if len(m) == 0 {
				return nil, fmt.Errorf("no input matched %q", a)
			}
			out = append(out, m...)
		} else {
			out = append(out, a)
		}
	}
	return out, nil
}

// sizeValue is a pflag.Value accepting human sizes such as "512KB" or "4mb".
type sizeValue struct{ dst *datasize.ByteSize }

func (s *sizeValue) String() string {
	if s.dst == nil {
		return ""
	}
	return s.dst.HumanReadable()
}

func (s *sizeValue) Set(v string) error {
	var b datasize.ByteSize
	if err := b.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return fmt.Errorf("invalid size %q", v)
	}
	*s.dst = b
	return nil
}

func (s *sizeValue) Type() string { return "size" }

// ByteSizeVar registers a size flag on fs.
func ByteSizeVar(fs *pflag.FlagSet, dst *datasize.ByteSize, name string, def datasize.ByteSize, usage string) {
	*dst = def
	fs.Var(&sizeValue{dst: dst}, name, usage)
}
