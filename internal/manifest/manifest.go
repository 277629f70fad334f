// Package manifest records what a generation run produced.
//
// A manifest is written next to the output files as protobuf JSON
// (google.protobuf.Struct), so any protobuf runtime can load it without
// generated code.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Version of the manifest layout.
const Version = 1

// Manifest describes one run.
type Manifest struct {
	RunID         string
	LaunchID      string
	LaunchTime    time.Time
	Seed          uint64
	Duration      time.Duration
	Termination   string
	TotalRecords  int64
	Elapsed       time.Duration
	SchemaVersion string
	Files         []File
	Sensors       []Sensor
}

// File is one output file of the run.
type File struct {
	Path      string
	Partition string
	Records   int64
	RowGroups int
}

// Sensor is one sensor of the run with its summary statistics.
type Sensor struct {
	ID        string
	Type      string
	Rate      string
	Width     int
	Unit      string
	Partition string
	Count     int64
	Min       float64
	Max       float64
	Mean      float64
	P50       *float64
	P90       *float64
	P99       *float64
}

var marshalOptions = protojson.MarshalOptions{
	Multiline: true,
	Indent:    "  ",
}

// Marshal encodes m as protobuf JSON.
func Marshal(m *Manifest) ([]byte, error) {
	s, err := ToProto(m)
	if err != nil {
		return nil, err
	}
	return marshalOptions.Marshal(s)
}

// Unmarshal decodes a manifest from protobuf JSON.
func Unmarshal(data []byte) (*Manifest, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return FromProto(&s)
}

// Write stores m at path. The file is written under a temporary name and
// renamed into place.
func Write(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// Read loads the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Unmarshal(data)
}
