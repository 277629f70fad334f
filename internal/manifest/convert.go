package manifest

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// ============================================================================
// Manifest <-> Struct
// ============================================================================

// ToProto converts a manifest to a protobuf Struct. Values that do not fit
// a JSON number exactly (seed, nanosecond durations) are stored as strings.
func ToProto(m *Manifest) (*structpb.Struct, error) {
	files := make([]any, len(m.Files))
	for i, f := range m.Files {
		files[i] = FileToMap(f)
	}
	sensors := make([]any, len(m.Sensors))
	for i, s := range m.Sensors {
		sensors[i] = SensorToMap(s)
	}

	s, err := structpb.NewStruct(map[string]any{
		"version":        Version,
		"run_id":         m.RunID,
		"launch_id":      m.LaunchID,
		"launch_time":    m.LaunchTime.UTC().Format(time.RFC3339Nano),
		"seed":           strconv.FormatUint(m.Seed, 10),
		"duration":       m.Duration.String(),
		"termination":    m.Termination,
		"total_records":  m.TotalRecords,
		"elapsed":        m.Elapsed.String(),
		"schema_version": m.SchemaVersion,
		"files":          files,
		"sensors":        sensors,
	})
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return s, nil
}

// FromProto converts a protobuf Struct back to a manifest.
func FromProto(s *structpb.Struct) (*Manifest, error) {
	f := s.GetFields()

	if v := number(f, "version"); int(v) != Version {
		return nil, fmt.Errorf("unsupported manifest version %v", v)
	}

	m := &Manifest{
		RunID:         str(f, "run_id"),
		LaunchID:      str(f, "launch_id"),
		Termination:   str(f, "termination"),
		TotalRecords:  int64(number(f, "total_records")),
		SchemaVersion: str(f, "schema_version"),
	}

	var err error
	if m.LaunchTime, err = time.Parse(time.RFC3339Nano, str(f, "launch_time")); err != nil {
		return nil, fmt.Errorf("launch_time: %w", err)
	}
	if m.Seed, err = strconv.ParseUint(str(f, "seed"), 10, 64); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if m.Duration, err = time.ParseDuration(str(f, "duration")); err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	if m.Elapsed, err = time.ParseDuration(str(f, "elapsed")); err != nil {
		return nil, fmt.Errorf("elapsed: %w", err)
	}

	for _, v := range f["files"].GetListValue().GetValues() {
		m.Files = append(m.Files, FileFromMap(v.GetStructValue().GetFields()))
	}
	for _, v := range f["sensors"].GetListValue().GetValues() {
		m.Sensors = append(m.Sensors, SensorFromMap(v.GetStructValue().GetFields()))
	}
	return m, nil
}

// ============================================================================
// File
// ============================================================================

// FileToMap converts a file entry to Struct fields.
func FileToMap(f File) map[string]any {
	return map[string]any{
		"path":       f.Path,
		"partition":  f.Partition,
		"records":    f.Records,
		"row_groups": f.RowGroups,
	}
}

// FileFromMap converts Struct fields to a file entry.
func FileFromMap(f map[string]*structpb.Value) File {
	return File{
		Path:      str(f, "path"),
		Partition: str(f, "partition"),
		Records:   int64(number(f, "records")),
		RowGroups: int(number(f, "row_groups")),
	}
}

// ============================================================================
// Sensor
// ============================================================================

// SensorToMap converts a sensor entry to Struct fields. Missing
// percentiles are omitted.
func SensorToMap(s Sensor) map[string]any {
	out := map[string]any{
		"id":        s.ID,
		"type":      s.Type,
		"rate":      s.Rate,
		"width":     s.Width,
		"unit":      s.Unit,
		"partition": s.Partition,
		"count":     s.Count,
		"min":       s.Min,
		"max":       s.Max,
		"mean":      s.Mean,
	}
	if s.P50 != nil {
		out["p50"] = *s.P50
		out["p90"] = *s.P90
		out["p99"] = *s.P99
	}
	return out
}

// SensorFromMap converts Struct fields to a sensor entry.
func SensorFromMap(f map[string]*structpb.Value) Sensor {
	s := Sensor{
		ID:        str(f, "id"),
		Type:      str(f, "type"),
		Rate:      str(f, "rate"),
		Width:     int(number(f, "width")),
		Unit:      str(f, "unit"),
		Partition: str(f, "partition"),
		Count:     int64(number(f, "count")),
		Min:       number(f, "min"),
		Max:       number(f, "max"),
		Mean:      number(f, "mean"),
	}
	if _, ok := f["p50"]; ok {
		p50, p90, p99 := number(f, "p50"), number(f, "p90"), number(f, "p99")
		s.P50, s.P90, s.P99 = &p50, &p90, &p99
	}
	return s
}

func str(f map[string]*structpb.Value, key string) string {
	return f[key].GetStringValue()
}

func number(f map[string]*structpb.Value, key string) float64 {
	return f[key].GetNumberValue()
}
