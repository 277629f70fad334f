package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/pipeline"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/backpressure"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
)

// Build converts the run file into a pipeline configuration. The result
// still goes through pipeline validation when the run starts.
func (c *Config) Build() (pipeline.RunConfig, error) {
	specs, err := c.Specs()
	if err != nil {
		return pipeline.RunConfig{}, err
	}

	rules := sink.Rules{ByRate: c.Output.PartitionByRate}
	if rules.ByRate {
		if rules.Threshold, err = sensor.ParseRate(c.Output.PartitionThreshold); err != nil {
			return pipeline.RunConfig{}, err
		}
	}

	pq := parquet.DefaultOptions()
	pq.Compression, _ = parquet.ParseCompressionType(c.Output.Compression)
	pq.CompressionLevel = c.Output.CompressionLevel
	pq.RowGroupSize = c.Output.RowGroupSize

	name, err := c.BaseName()
	if err != nil {
		return pipeline.RunConfig{}, err
	}

	return pipeline.RunConfig{
		LaunchID: c.LaunchID,
		Seed:     c.Seed,
		Duration: c.Duration,
		Sensors:  specs,
		Output: pipeline.OutputConfig{
			Dir:      c.Output.Dir,
			Name:     name,
			Rules:    rules,
			Parquet:  pq,
			Manifest: c.Output.Manifest,
		},
		Pipeline: pipeline.PipelineConfig{
			QueueDepth:     c.Pipeline.QueueDepth,
			Prefetch:       c.Pipeline.Prefetch,
			PrefetchChunk:  c.Pipeline.PrefetchChunk,
			MaxRecords:     c.Pipeline.MaxRecords,
			SketchAccuracy: c.Pipeline.SketchAccuracy,
		},
		Backpressure: backpressure.Config{
			Enabled: c.Backpressure.Enabled,
			Thresholds: backpressure.Thresholds{
				Warning:   c.Backpressure.Thresholds.Warning,
				Critical:  c.Backpressure.Thresholds.Critical,
				Saturated: c.Backpressure.Thresholds.Saturated,
			},
			Hysteresis: c.Backpressure.Recovery.Hysteresis,
			Cooldown:   c.Backpressure.Recovery.Cooldown,
		},
		MetricsTextfile: c.MetricsTextfile,
		Progress:        c.Progress,
	}, nil
}

// Specs returns the sensors of the run: the listed sensors, or the catalog
// at the run rate, followed by the reference sensor when enabled.
func (c *Config) Specs() ([]sensor.Spec, error) {
	rate, err := sensor.ParseRate(c.Rate)
	if err != nil {
		return nil, err
	}

	var specs []sensor.Spec
	if len(c.Sensors) == 0 {
		specs = sensor.Catalog(rate)
	} else {
		specs = make([]sensor.Spec, 0, len(c.Sensors)+1)
		for i := range c.Sensors {
			spec, err := c.Sensors[i].spec(rate)
			if err != nil {
				return nil, fmt.Errorf("sensors[%d]: %w", i, err)
			}
			specs = append(specs, spec)
		}
	}

	if c.IncludeReference && !hasSensor(specs, sensor.ReferenceID) {
		specs = append(specs, sensor.Reference())
	}
	return specs, nil
}

// BaseName returns the file name stem shared by all outputs of the run:
// <prefix>_<rate>hz_<duration>s, with the launch ID as default prefix.
func (c *Config) BaseName() (string, error) {
	rate, err := sensor.ParseRate(c.Rate)
	if err != nil {
		return "", err
	}
	prefix := c.Output.Prefix
	if prefix == "" {
		prefix = c.LaunchID
	}
	return fmt.Sprintf("%s_%shz_%ss", prefix, rateLabel(rate), durationLabel(c.Duration)), nil
}

func (s *SensorConfig) spec(runRate sensor.Rate) (sensor.Spec, error) {
	rate := runRate
	if s.Rate != "" {
		var err error
		if rate, err = sensor.ParseRate(s.Rate); err != nil {
			return sensor.Spec{}, err
		}
	}
	gen, err := s.Generator.generator()
	if err != nil {
		return sensor.Spec{}, err
	}

	typ := s.Type
	if typ == "" {
		typ = strings.ToLower(s.ID)
	}
	width := s.Width
	if width == 0 {
		width = 1
	}

	return sensor.Spec{
		ID:        s.ID,
		Type:      typ,
		Rate:      rate,
		Width:     width,
		Unit:      s.Unit,
		Generator: gen,
		Partition: s.Partition,
	}, nil
}

func (g *GeneratorConfig) generator() (sensor.Generator, error) {
	kind, err := sensor.ParseKind(g.Kind)
	if err != nil {
		return sensor.Generator{}, errors.NewConfig("generator.kind", err.Error())
	}
	return sensor.Generator{
		Kind:      kind,
		Amplitude: g.Amplitude,
		Frequency: g.Frequency,
		Offset:    g.Offset,
		Level:     g.Level,
		Start:     g.Start,
		Step:      g.Step,
		Min:       g.Min,
		Max:       g.Max,
		Channel:   sensor.Channel(g.Channel),
		Noise:     g.Noise,
		Gains:     g.Gains,
	}, nil
}

func hasSensor(specs []sensor.Spec, id string) bool {
	for _, s := range specs {
		if s.ID == id {
			return true
		}
	}
	return false
}

// rateLabel renders a rate in Hz without a unit, e.g. "1000" or "2.5".
func rateLabel(r sensor.Rate) string {
	if r.Den() == 1 {
		return strconv.FormatUint(r.Num(), 10)
	}
	return strconv.FormatFloat(r.Float(), 'f', -1, 64)
}

func durationLabel(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
