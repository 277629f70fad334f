package pipeline

import (
	"io"
	"os"

	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Option customizes a run.
type Option func(*options)

type options struct {
	progress io.Writer
	open     sink.Opener
	onRecord func(n int64, rec *types.Record)
}

func defaultOptions(cfg *RunConfig) options {
	return options{
		progress: os.Stderr,
		open: func(path string) (*parquet.RecordFile, error) {
			return parquet.Create(path, cfg.Output.Parquet)
		},
	}
}

// WithProgressWriter sends progress output to w.
func WithProgressWriter(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithOpener replaces how output files are created.
func WithOpener(open sink.Opener) Option {
	return func(o *options) { o.open = open }
}

// WithRecordHook calls fn on the generation goroutine after the n-th
// record has been batched.
func WithRecordHook(fn func(n int64, rec *types.Record)) Option {
	return func(o *options) { o.onRecord = fn }
}
