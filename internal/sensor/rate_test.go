package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/telemetrygen/internal/errors"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in       string
		num, den uint64
	}{
		{"1000", 1000, 1},
		{"1.5", 3, 2},
		{"2kHz", 2000, 1},
		{"100 kHz", 100_000, 1},
		{"0.5MHz", 500_000, 1},
		{"1GHz", 1_000_000_000, 1},
		{"1/3", 1, 3},
		{"2/6 Hz", 1, 3},
		{"0.25hz", 1, 4},
		{".5", 1, 2},
		{"12.", 12, 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.num, r.Num())
			assert.Equal(t, tt.den, r.Den())
		})
	}
}

func TestParseRateRejects(t *testing.T) {
	for _, in := range []string{"", "0", "0Hz", "-5", "abc", "1/0", "2GHz", "1.0000000001", "kHz"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRate(in)
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "expected config error, got %v", err)
		})
	}
}

func TestRateCountRoundsUp(t *testing.T) {
	tests := []struct {
		rate string
		dur  time.Duration
		want int64
	}{
		{"1000", 10 * time.Second, 10_000},
		{"1", 10 * time.Second, 10},
		{"1/3", 10 * time.Second, 4},
		{"1.5", time.Second, 2},
		{"3", time.Second, 3},
		{"7", time.Nanosecond, 1},
		{"100kHz", 1500 * time.Millisecond, 150_000},
		{"1GHz", time.Millisecond, 1_000_000},
	}
	for _, tt := range tests {
		n, err := MustParseRate(tt.rate).Count(tt.dur)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "%s over %v", tt.rate, tt.dur)
	}
}

func TestRateCountRejectsZero(t *testing.T) {
	_, err := Rate{}.Count(time.Second)
	assert.True(t, errors.IsConfig(err))

	_, err = Hz(10).Count(0)
	assert.True(t, errors.IsConfig(err))
}

func TestRateOffset(t *testing.T) {
	assert.Equal(t, int64(0), Hz(1000).Offset(0))
	assert.Equal(t, int64(9_999_000_000), Hz(1000).Offset(9999))

	third := MustParseRate("3")
	assert.Equal(t, int64(333_333_333), third.Offset(1))
	assert.Equal(t, int64(666_666_666), third.Offset(2))
	assert.Equal(t, int64(1_000_000_000), third.Offset(3))

	assert.Equal(t, int64(12345), Hz(1_000_000_000).Offset(12345))
	assert.Equal(t, 3*time.Second, MustParseRate("1/3").Period())
}

func TestRateOffsetStrictlyIncreasing(t *testing.T) {
	for _, s := range []string{"1GHz", "999999999", "3", "7/3"} {
		r := MustParseRate(s)
		prev := int64(-1)
		for i := int64(0); i < 10_000; i++ {
			ts := r.Offset(i)
			require.Greater(t, ts, prev, "rate %s index %d", s, i)
			prev = ts
		}
	}
}

func TestRateCmpAndString(t *testing.T) {
	assert.Equal(t, -1, MustParseRate("1/3").Cmp(Hz(1)))
	assert.Equal(t, 0, MustParseRate("1000").Cmp(MustParseRate("1kHz")))
	assert.Equal(t, 1, Hz(10).Cmp(MustParseRate("9.5")))

	assert.Equal(t, "1000Hz", Hz(1000).String())
	assert.Equal(t, "1/3Hz", MustParseRate("1/3").String())
	assert.Equal(t, "0Hz", Rate{}.String())

	var r Rate
	require.NoError(t, r.UnmarshalText([]byte("2kHz")))
	assert.Equal(t, Hz(2000), r)
}
