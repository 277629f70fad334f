package parquet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// FileInfo describes a record file.
type FileInfo struct {
	Path      string
	Size      int64
	NumRows   int64
	RowGroups []int64 // Rows per row group
	Metadata  map[string]string
	Schema    string
}

// Reader reads records from a Parquet file.
type Reader struct {
	file      *os.File
	pf        *parquet.File
	reader    *parquet.GenericReader[RecordRow]
	path      string
	partition string
}

// Open opens a record file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	partition, _ := pf.Lookup(MetaPartition)
	return &Reader{
		file:      f,
		pf:        pf,
		reader:    parquet.NewGenericReader[RecordRow](pf),
		path:      path,
		partition: partition,
	}, nil
}

// Read reads up to n records. It returns io.EOF, possibly together with
// the final records, once the file is exhausted.
func (r *Reader) Read(n int) ([]types.Record, error) {
	rows := make([]RecordRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}

	records := make([]types.Record, count)
	for i := 0; i < count; i++ {
		records[i] = RowToRecord(&rows[i], r.partition)
	}
	return records, err
}

// ReadAll reads all records from the file.
func (r *Reader) ReadAll() ([]types.Record, error) {
	records := make([]types.Record, 0, r.NumRows())
	for {
		batch, err := r.Read(4096)
		records = append(records, batch...)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return records, nil
		}
	}
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.pf.NumRows()
}

// Lookup returns a key/value metadata entry.
func (r *Reader) Lookup(key string) (string, bool) {
	return r.pf.Lookup(key)
}

// RowGroupStats returns the row-group statistics stored at finalize.
func (r *Reader) RowGroupStats() ([]RowGroupStats, error) {
	raw, ok := r.pf.Lookup(MetaRowGroups)
	if !ok {
		return nil, fmt.Errorf("%s: no %s metadata", r.path, MetaRowGroups)
	}
	var stats []RowGroupStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", r.path, MetaRowGroups, err)
	}
	return stats, nil
}

// Info returns row-group layout and key/value metadata.
func (r *Reader) Info() FileInfo {
	info := FileInfo{
		Path:     r.path,
		Size:     r.pf.Size(),
		NumRows:  r.pf.NumRows(),
		Metadata: make(map[string]string),
		Schema:   r.pf.Schema().String(),
	}
	for _, rg := range r.pf.RowGroups() {
		info.RowGroups = append(info.RowGroups, rg.NumRows())
	}
	for _, kv := range r.pf.Metadata().KeyValueMetadata {
		info.Metadata[kv.Key] = kv.Value
	}
	return info
}

// Close closes the reader.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// GetFileInfo opens path and returns its FileInfo.
func GetFileInfo(path string) (FileInfo, error) {
	r, err := Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer r.Close()
	return r.Info(), nil
}
