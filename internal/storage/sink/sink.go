package sink

import (
	"fmt"
	"maps"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

var log = logging.Component("sink")

// Destination maps a partition to its output path.
type Destination struct {
	Partition string
	Path      string
}

// FileSummary describes one finalized output file.
type FileSummary struct {
	Path      string
	Partition string
	Records   int64
	RowGroups int
}

// Sink owns one record file per partition. It is used by a single writer
// goroutine.
type Sink struct {
	files map[string]*parquet.RecordFile
	order []string
}

// New opens a record file for every destination. If any file cannot be
// created the ones already opened are aborted.
func New(dests []Destination, opts parquet.Options) (*Sink, error) {
	return NewWithOpener(dests, func(path string) (*parquet.RecordFile, error) {
		return parquet.Create(path, opts)
	})
}

// Opener creates the record file for a path.
type Opener func(path string) (*parquet.RecordFile, error)

// NewWithOpener is New with a custom file opener.
func NewWithOpener(dests []Destination, create Opener) (*Sink, error) {
	s := &Sink{files: make(map[string]*parquet.RecordFile, len(dests))}

	for _, d := range dests {
		if _, dup := s.files[d.Partition]; dup {
			s.Abort()
			return nil, errors.NewConfigf("output", "partition %q has more than one destination", d.Partition)
		}
		f, err := create(d.Path)
		if err != nil {
			s.Abort()
			return nil, err
		}
		s.files[d.Partition] = f
		s.order = append(s.order, d.Partition)
	}
	sort.Strings(s.order)

	log.Debug("sink opened", "files", len(s.files))
	return s, nil
}

// Write appends a sealed batch to the file of its partition.
func (s *Sink) Write(b *types.Batch) error {
	f, ok := s.files[b.Partition]
	if !ok {
		return &errors.WriteError{
			Path:     b.Partition,
			Op:       "route",
			RowGroup: -1,
			Err:      fmt.Errorf("no output file for partition %q", b.Partition),
		}
	}
	return f.WriteBatch(b)
}

// Finalize finalizes every file with meta plus its partition name. All
// files are attempted; failures are aggregated.
func (s *Sink) Finalize(meta map[string]string) error {
	var errs *multierror.Error
	for _, p := range s.order {
		fileMeta := maps.Clone(meta)
		if fileMeta == nil {
			fileMeta = make(map[string]string)
		}
		fileMeta[parquet.MetaPartition] = p

		f := s.files[p]
		if err := f.Finalize(fileMeta); err != nil {
			log.Error("finalize failed", "path", f.Path(), "error", err)
			errs = multierror.Append(errs, err)
			continue
		}
		log.Info("file written", "path", f.Path(), "partition", p,
			"records", f.RowCount(), "row_groups", len(f.RowGroups()))
	}
	return errs.ErrorOrNil()
}

// Abort removes every partial file.
func (s *Sink) Abort() {
	for _, f := range s.files {
		f.Abort()
	}
}

// Files returns per-file summaries in partition order.
func (s *Sink) Files() []FileSummary {
	out := make([]FileSummary, 0, len(s.order))
	for _, p := range s.order {
		f := s.files[p]
		out = append(out, FileSummary{
			Path:      f.Path(),
			Partition: p,
			Records:   f.RowCount(),
			RowGroups: len(f.RowGroups()),
		})
	}
	return out
}

// Partitions returns the partitions the sink writes.
func (s *Sink) Partitions() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
