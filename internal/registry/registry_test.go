package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// countingSource records how far ahead the registry pulls.
type countingSource struct {
	*sensor.Source
	pulled int
}

func (c *countingSource) Next() (types.Sample, bool, error) {
	s, ok, err := c.Source.Next()
	if ok {
		c.pulled++
	}
	return s, ok, err
}

func newSource(t *testing.T, id, rate string, dur time.Duration) *countingSource {
	t.Helper()
	spec := sensor.Spec{ID: id, Type: "t_" + id, Rate: sensor.MustParseRate(rate), Generator: sensor.Constant(1, 0)}
	src, err := sensor.NewSource(spec, dur, 1)
	require.NoError(t, err)
	return &countingSource{Source: src}
}

func TestRegistryTieBreakByID(t *testing.T) {
	// Added out of order; ordinals follow ID order.
	c := newSource(t, "c", "1", 3*time.Second)
	a := newSource(t, "a", "1", 3*time.Second)
	b := newSource(t, "b", "1", 3*time.Second)

	reg, err := New([]Source{c, a, b})
	require.NoError(t, err)

	var got []string
	for {
		rec, ok, err := reg.Advance()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, fmt.Sprintf("%s@%d", rec.SensorID, rec.Timestamp/int64(time.Second)))
	}
	assert.Equal(t, []string{"a@0", "b@0", "c@0", "a@1", "b@1", "c@1", "a@2", "b@2", "c@2"}, got)
	assert.Equal(t, []string{"a", "b", "c"}, []string{reg.Specs()[0].ID, reg.Specs()[1].ID, reg.Specs()[2].ID})
}

func TestRegistryBoundedLookahead(t *testing.T) {
	slow := newSource(t, "slow", "1", 10*time.Second)
	fast := newSource(t, "fast", "100", 10*time.Second)

	reg, err := New([]Source{slow, fast})
	require.NoError(t, err)
	assert.Equal(t, 1, slow.pulled)
	assert.Equal(t, 1, fast.pulled)

	emitted := map[string]int{}
	for i := 0; i < 250; i++ {
		rec, ok, err := reg.Advance()
		require.NoError(t, err)
		require.True(t, ok)
		emitted[rec.SensorID]++

		// Exactly one pending sample per unexhausted source.
		assert.Equal(t, emitted["slow"]+1, slow.pulled)
		assert.Equal(t, emitted["fast"]+1, fast.pulled)
	}
}

func TestRegistryPeekAndDrain(t *testing.T) {
	a := newSource(t, "a", "1", 10*time.Second)
	b := newSource(t, "b", "1000", 10*time.Second)

	reg, err := New([]Source{a, b}, WithRouter(func(s sensor.Spec) string {
		if s.Rate.Cmp(sensor.Hz(10)) < 0 {
			return "low"
		}
		return "high"
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	ts, ok := reg.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(0), ts)

	var n int
	var last types.Record
	parts := map[string]string{}
	for {
		rec, ok, err := reg.Advance()
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
		parts[rec.SensorID] = rec.Partition
		last = rec
	}
	assert.Equal(t, 10_010, n)
	assert.Equal(t, int64(9_999_000_000), last.Timestamp)
	assert.Equal(t, "b", last.SensorID)
	assert.Equal(t, map[string]string{"a": "low", "b": "high"}, parts)
	assert.Zero(t, reg.Len())

	_, ok = reg.Peek()
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Source{
		newSource(t, "x", "1", time.Second),
		newSource(t, "x", "2", time.Second),
	})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestRegistryPropagatesGenerationError(t *testing.T) {
	spec := sensor.Spec{
		ID: "bad", Type: "t", Rate: sensor.Hz(1),
		Generator: sensor.Sine(1.7976931348623157e308, 0.25, 1.7976931348623157e308),
	}
	src, err := sensor.NewSource(spec, 5*time.Second, 1)
	require.NoError(t, err)

	reg, err := New([]Source{src})
	require.NoError(t, err)

	// The last valid sample is emitted before the failure surfaces.
	rec, ok, err := reg.Advance()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), rec.Index)

	for i := 0; i < 2; i++ {
		_, ok, err = reg.Advance()
		assert.False(t, ok)
		require.True(t, errors.IsGeneration(err))
	}
}
