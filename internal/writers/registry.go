package writers

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Codec wraps a raw output file in an encoder. The returned closer finishes
// the encoding and must not close w itself.
type Codec func(w io.Writer) (io.WriteCloser, error)

// Codec registry (suffix → encoder). Register in init() blocks.
var codecs = map[string]Codec{}

// RegisterCodec installs fn for paths ending in suffix (idempotent last-wins).
func RegisterCodec(suffix string, fn Codec) { codecs[strings.ToLower(suffix)] = fn }

// CodecFor returns the codec registered for path, or nil for plain output.
func CodecFor(path string) Codec {
	lower := strings.ToLower(path)
	for suffix, fn := range codecs {
		if strings.HasSuffix(lower, suffix) {
			return fn
		}
	}
	return nil
}

func init() {
	RegisterCodec(".gz", func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	})
}
