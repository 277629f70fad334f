package parquet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

var log = logging.Component("parquet")

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.ErrWriterClosed

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int

	// RowGroupSize is the maximum number of rows per row group. Each batch
	// is flushed as its own row group, so batches must not exceed it.
	RowGroupSize int

	// PageSize is the target page size in bytes
	PageSize int
}

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: config.DefaultCompressionLevel,
		RowGroupSize:     config.DefaultRowGroupSize,
		PageSize:         1024 * 1024, // 1MB
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType, level int) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		if level > 0 {
			return &zstd.Codec{Level: kzstd.EncoderLevelFromZstd(level)}
		}
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// =============================================================================
// Writer
// =============================================================================

// Writer appends batches of records as row groups to an io.Writer.
type Writer struct {
	mu     sync.Mutex
	name   string
	writer *parquet.GenericWriter[RecordRow]
	rows   []RecordRow

	groups   []RowGroupStats
	rowCount int64
	closed   bool

	// broken is set by the first failed append. The footer can still be
	// written for the row groups before it unless poisoned: rows of the
	// failed batch are then stuck in the encoder and would reach the file.
	broken   bool
	poisoned bool
	cause    error
}

// NewWriter creates a writer on w. name identifies the destination in
// errors.
func NewWriter(w io.Writer, name string, opts Options) *Writer {
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = config.DefaultRowGroupSize
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression, opts.CompressionLevel)),
		parquet.MaxRowsPerRowGroup(int64(opts.RowGroupSize)),
		parquet.CreatedBy("telemetrygen", SchemaVersion, ""),
		// Row groups reach the file when WriteBatch returns.
		parquet.WriteBufferSize(0),
	}
	if opts.PageSize > 0 {
		writerOpts = append(writerOpts, parquet.PageBufferSize(opts.PageSize))
	}

	return &Writer{
		name:   name,
		writer: parquet.NewGenericWriter[RecordRow](w, writerOpts...),
	}
}

// WriteBatch appends a sealed batch as exactly one row group. An empty
// batch is a no-op.
func (w *Writer) WriteBatch(b *types.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	group := len(w.groups)
	if w.broken {
		return &errors.WriteError{Path: w.name, Op: "append", RowGroup: group, Err: fmt.Errorf("earlier append failed: %w", w.cause)}
	}

	w.rows = w.rows[:0]
	for i := range b.Records {
		w.rows = append(w.rows, RecordToRow(&b.Records[i]))
	}

	if _, err := w.writer.Write(w.rows); err != nil {
		w.fail(err, true)
		return &errors.WriteError{Path: w.name, Op: "append", RowGroup: group, Err: err}
	}
	if err := w.writer.Flush(); err != nil {
		// A failed flush resets the column buffers, except when the row
		// group limit rejects it up front.
		w.fail(err, errors.Is(err, parquet.ErrTooManyRowGroups))
		return &errors.WriteError{Path: w.name, Op: "flush", RowGroup: group, Err: err}
	}

	w.groups = append(w.groups, RowGroupStats{
		Rows:         int64(b.Len()),
		MinTimestamp: b.MinTimestamp(),
		MaxTimestamp: b.MaxTimestamp(),
	})
	w.rowCount += int64(b.Len())
	return nil
}

// Close writes key/value metadata and the footer. meta is merged with the
// schema version and row-group statistics. After a failed append the
// footer lists only the row groups appended before it; bytes of the failed
// row group stay in the file unreferenced. Closing twice is a no-op.
func (w *Writer) Close(meta map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.poisoned {
		return &errors.WriteError{Path: w.name, Op: "footer", RowGroup: -1,
			Err: fmt.Errorf("row group %d left partially encoded: %w", len(w.groups), w.cause)}
	}

	stats, err := json.Marshal(w.groups)
	if err != nil {
		return &errors.WriteError{Path: w.name, Op: "metadata", RowGroup: -1, Err: err}
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.writer.SetKeyValueMetadata(k, meta[k])
	}
	w.writer.SetKeyValueMetadata(MetaSchemaVersion, SchemaVersion)
	w.writer.SetKeyValueMetadata(MetaRowGroups, string(stats))

	if err := w.writer.Close(); err != nil {
		return &errors.WriteError{Path: w.name, Op: "footer", RowGroup: -1, Err: err}
	}
	return nil
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// RowGroups returns the statistics of the appended row groups.
func (w *Writer) RowGroups() []RowGroupStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RowGroupStats, len(w.groups))
	copy(out, w.groups)
	return out
}

// Broken reports whether an append failed.
func (w *Writer) Broken() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.broken
}

func (w *Writer) fail(err error, poisoned bool) {
	w.broken = true
	w.poisoned = poisoned
	w.cause = err
}

// =============================================================================
// RecordFile
// =============================================================================

// RecordFile is one output file. Rows are written to path + ".partial";
// Finalize writes the footer, syncs and renames the file into place.
type RecordFile struct {
	*Writer

	path    string
	partial string
	file    *os.File

	finalizeOnce sync.Once
	finalizeErr  error
}

// Create opens a new record file for path. The parent directory is
// created if needed.
func Create(path string, opts Options) (*RecordFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &errors.WriteError{Path: path, Op: "mkdir", RowGroup: -1, Err: err}
	}
	return CreateWith(path, opts, os.Create)
}

// CreateWith is Create with a custom opener for the partial file. The
// parent directory must exist.
func CreateWith(path string, opts Options, open func(string) (*os.File, error)) (*RecordFile, error) {
	partial := path + config.PartialSuffix
	f, err := open(partial)
	if err != nil {
		return nil, &errors.WriteError{Path: partial, Op: "create", RowGroup: -1, Err: err}
	}

	log.Debug("file created", "path", partial)
	return &RecordFile{
		Writer:  NewWriter(f, path, opts),
		path:    path,
		partial: partial,
		file:    f,
	}, nil
}

// Finalize writes metadata and the footer, fsyncs, and renames the partial
// file to its final path. It runs once; later calls return the first
// result. A file whose append failed is finalized with the row groups
// appended before the failure. On failure the partial file is removed so
// no unreadable file is left behind.
func (f *RecordFile) Finalize(meta map[string]string) error {
	f.finalizeOnce.Do(func() {
		f.finalizeErr = f.finalize(meta)
	})
	return f.finalizeErr
}

func (f *RecordFile) finalize(meta map[string]string) error {
	if err := f.Writer.Close(meta); err != nil {
		f.discard()
		return err
	}
	if err := f.file.Sync(); err != nil {
		f.discard()
		return &errors.WriteError{Path: f.partial, Op: "sync", RowGroup: -1, Err: err}
	}
	if err := f.file.Close(); err != nil {
		os.Remove(f.partial)
		return &errors.WriteError{Path: f.partial, Op: "close", RowGroup: -1, Err: err}
	}
	if err := os.Rename(f.partial, f.path); err != nil {
		os.Remove(f.partial)
		return &errors.WriteError{Path: f.path, Op: "rename", RowGroup: -1, Err: err}
	}

	if f.Broken() {
		log.Warn("file truncated at failed append", "path", f.path, "rows", f.RowCount(), "row_groups", len(f.RowGroups()))
		return nil
	}
	log.Debug("file finalized", "path", f.path, "rows", f.RowCount(), "row_groups", len(f.RowGroups()))
	return nil
}

// Abort closes and removes the partial file without writing a footer.
func (f *RecordFile) Abort() {
	f.finalizeOnce.Do(func() {
		f.Writer.mu.Lock()
		f.Writer.closed = true
		f.Writer.mu.Unlock()
		f.discard()
		f.finalizeErr = fmt.Errorf("%s: aborted", f.path)
	})
}

func (f *RecordFile) discard() {
	f.file.Close()
	if err := os.Remove(f.partial); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove partial file", "path", f.partial, "error", err)
	}
}

// Path returns the final file path.
func (f *RecordFile) Path() string {
	return f.path
}

// PartialPath returns the path rows are written to before Finalize.
func (f *RecordFile) PartialPath() string {
	return f.partial
}
