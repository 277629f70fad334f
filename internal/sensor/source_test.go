package sensor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

func drain(t *testing.T, s *Source) []types.Sample {
	t.Helper()
	var out []types.Sample
	for {
		sample, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, sample)
	}
}

func testSpec(id string, rate Rate, gen Generator) Spec {
	return Spec{ID: id, Type: "test", Rate: rate, Width: 1, Generator: gen}
}

func TestSourceCountAndTimestamps(t *testing.T) {
	tests := []struct {
		rate string
		dur  time.Duration
	}{
		{"1", 10 * time.Second},
		{"1000", 10 * time.Second},
		{"1/3", 10 * time.Second},
		{"1.5", 3 * time.Second},
		{"7", 1100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			rate := MustParseRate(tt.rate)
			src, err := NewSource(testSpec("s", rate, Sine(1, 1, 0)), tt.dur, 1)
			require.NoError(t, err)

			want, _ := rate.Count(tt.dur)
			samples := drain(t, src)
			require.Len(t, samples, int(want))
			assert.Equal(t, want, src.Count())
			assert.Zero(t, src.Remaining())

			for i, s := range samples {
				assert.Equal(t, int64(i), s.Index)
				assert.Equal(t, rate.Offset(int64(i)), s.Timestamp)
				if i > 0 {
					assert.Greater(t, s.Timestamp, samples[i-1].Timestamp)
				}
				assert.Less(t, s.Timestamp, int64(tt.dur))
			}
		})
	}
}

func TestSourceLastTimestamp(t *testing.T) {
	src, err := NewSource(testSpec("b", Hz(1000), Constant(1, 0.1)), 10*time.Second, 42)
	require.NoError(t, err)
	samples := drain(t, src)
	assert.Equal(t, int64(0), samples[0].Timestamp)
	assert.Equal(t, int64(9_999_000_000), samples[len(samples)-1].Timestamp)
}

func TestSourceResetReplays(t *testing.T) {
	for _, gen := range []Generator{
		Sine(2, 0.5, 1),
		Constant(10, 0.5),
		RandomWalk(0, 1, -3, 3),
		Flight(ChannelAltitude, 0.01),
	} {
		t.Run(gen.Kind.String(), func(t *testing.T) {
			spec := testSpec("walk", Hz(100), gen)
			src, err := NewSource(spec, 2*time.Second, 7)
			require.NoError(t, err)

			first := drain(t, src)
			src.Reset()
			second := drain(t, src)
			assert.Equal(t, first, second)

			fresh, err := NewSource(spec, 2*time.Second, 7)
			require.NoError(t, err)
			assert.Equal(t, first, drain(t, fresh))
		})
	}
}

func TestSourceSeedDependsOnIDOnly(t *testing.T) {
	gen := Constant(0, 1)
	a1, _ := NewSource(testSpec("a", Hz(10), gen), time.Second, 99)
	a2, _ := NewSource(testSpec("a", Hz(10), gen), time.Second, 99)
	b, _ := NewSource(testSpec("b", Hz(10), gen), time.Second, 99)
	other, _ := NewSource(testSpec("a", Hz(10), gen), time.Second, 100)

	sa := drain(t, a1)
	assert.Equal(t, sa, drain(t, a2))
	assert.NotEqual(t, sa[0].Value, drain(t, b)[0].Value)
	assert.NotEqual(t, sa[0].Value, drain(t, other)[0].Value)
}

func TestSourceRandomWalkClamped(t *testing.T) {
	src, err := NewSource(testSpec("w", Hz(1000), RandomWalk(0, 5, -1, 1)), time.Second, 3)
	require.NoError(t, err)
	for _, s := range drain(t, src) {
		assert.GreaterOrEqual(t, s.Value, -1.0)
		assert.LessOrEqual(t, s.Value, 1.0)
	}
}

func TestSourceVector(t *testing.T) {
	spec := Spec{
		ID: "vib", Type: "vibration", Rate: Hz(50), Width: 3,
		Generator: Generator{Kind: KindConstant, Level: 2, Gains: []float64{1, 2}},
	}
	src, err := NewSource(spec, time.Second, 1)
	require.NoError(t, err)

	s, ok, err := src.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{2, 4, 2}, s.Vector)
	assert.InDelta(t, math.Sqrt(4+16+4), s.Value, 1e-12)
}

func TestSourceNonFiniteValue(t *testing.T) {
	spec := testSpec("overflow", Hz(1), Sine(math.MaxFloat64, 0.25, math.MaxFloat64))
	src, err := NewSource(spec, 10*time.Second, 1)
	require.NoError(t, err)

	_, ok, err := src.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = src.Next()
	require.False(t, ok)
	require.True(t, errors.IsGeneration(err))

	var ge *errors.GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "overflow", ge.SensorID)
	assert.Equal(t, int64(1), ge.Index)
}

func TestNewSourceRejectsBadSpec(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zero rate", Spec{ID: "a", Type: "t", Generator: Sine(1, 1, 0)}},
		{"bad id", testSpec("a/b", Hz(1), Sine(1, 1, 0))},
		{"upper type", Spec{ID: "a", Type: "Accel", Rate: Hz(1)}},
		{"walk bounds", testSpec("a", Hz(1), RandomWalk(0, 1, 1, -1))},
		{"channel", testSpec("a", Hz(1), Flight("warp", 0))},
		{"gains", testSpec("a", Hz(1), Generator{Kind: KindConstant, Gains: []float64{1, 2}})},
		{"nan", testSpec("a", Hz(1), Sine(math.NaN(), 1, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(tt.spec, time.Second, 1)
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "got %v", err)
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindSine, KindConstant, KindRandomWalk, KindFlight} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("square")
	assert.Error(t, err)
}

func TestFlightEnvelopePhases(t *testing.T) {
	assert.Equal(t, 0.0, throttle(0))
	assert.Equal(t, 1.0, throttle(0.3))
	assert.Equal(t, 0.0, throttle(0.51))
	assert.InDelta(t, 0.8, throttle(0.1499999), 1e-4)

	assert.Equal(t, 90.0, envelope(ChannelPitch, 0.01))
	assert.Equal(t, -9.81, envelope(ChannelAcceleration, 0.51))
	assert.Equal(t, 3.0, envelope(ChannelVibration, 0.505))
	assert.Equal(t, 2_000_000.0, envelope(ChannelThrust, 0.7))
}
