package sensor

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/errors"
)

const nsPerSecond = uint64(time.Second)

// maxDen keeps den*1e9 within a uint64.
const maxDen = math.MaxUint64 / nsPerSecond

// Rate is a sampling frequency in Hz held as an exact, reduced fraction
// num/den. The zero value is an unset rate.
type Rate struct {
	num uint64
	den uint64
}

// NewRate returns the rate num/den Hz in lowest terms.
func NewRate(num, den uint64) (Rate, error) {
	if den == 0 {
		return Rate{}, errors.NewConfig("rate", "zero denominator")
	}
	if num == 0 {
		return Rate{}, errors.NewConfig("rate", "must be positive")
	}
	g := gcd(num, den)
	r := Rate{num: num / g, den: den / g}
	if r.den > maxDen {
		return Rate{}, errors.NewConfigf("rate", "%d/%d: denominator too large", num, den)
	}
	if r.Cmp(Rate{num: config.MaxRateHz, den: 1}) > 0 {
		return Rate{}, errors.NewConfigf("rate", "%s exceeds maximum of %d Hz", r, config.MaxRateHz)
	}
	return r, nil
}

// Hz is a convenience constructor for whole-number rates.
func Hz(n uint64) Rate {
	r, err := NewRate(n, 1)
	if err != nil {
		panic(err)
	}
	return r
}

// MustParseRate is like ParseRate but panics on error.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRate parses a rate such as "1000", "1.5", "2kHz", "100 kHz",
// "0.5MHz" or "1/3". A bare number is in Hz.
func ParseRate(s string) (Rate, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return Rate{}, errors.NewConfig("rate", "empty")
	}

	mult := uint64(1)
	for _, u := range []struct {
		suffix string
		mult   uint64
	}{
		{"ghz", 1_000_000_000},
		{"mhz", 1_000_000},
		{"khz", 1_000},
		{"hz", 1},
	} {
		if strings.HasSuffix(in, u.suffix) {
			in = strings.TrimSpace(strings.TrimSuffix(in, u.suffix))
			mult = u.mult
			break
		}
	}

	num, den, err := parseFraction(in)
	if err != nil {
		return Rate{}, errors.NewConfigf("rate", "%q: %v", s, err)
	}
	hi, lo := bits.Mul64(num, mult)
	if hi != 0 {
		return Rate{}, errors.NewConfigf("rate", "%q: out of range", s)
	}
	return NewRate(lo, den)
}

// parseFraction parses "a/b" or a plain decimal "12.375".
func parseFraction(s string) (num, den uint64, err error) {
	if a, b, ok := strings.Cut(s, "/"); ok {
		num, err = strconv.ParseUint(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return 0, 0, err
		}
		den, err = strconv.ParseUint(strings.TrimSpace(b), 10, 64)
		if err != nil {
			return 0, 0, err
		}
		return num, den, nil
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, 0, fmt.Errorf("not a number")
	}
	if len(frac) > 9 {
		return 0, 0, fmt.Errorf("more than 9 decimal places")
	}
	den = 1
	for range len(frac) {
		den *= 10
	}
	var w, f uint64
	if whole != "" {
		if w, err = strconv.ParseUint(whole, 10, 64); err != nil {
			return 0, 0, err
		}
	}
	if frac != "" {
		if f, err = strconv.ParseUint(frac, 10, 64); err != nil {
			return 0, 0, err
		}
	}
	hi, lo := bits.Mul64(w, den)
	sum, carry := bits.Add64(lo, f, 0)
	if hi != 0 || carry != 0 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return sum, den, nil
}

// IsZero reports whether the rate is unset.
func (r Rate) IsZero() bool {
	return r.num == 0 || r.den == 0
}

// Num returns the numerator of the reduced fraction.
func (r Rate) Num() uint64 { return r.num }

// Den returns the denominator of the reduced fraction.
func (r Rate) Den() uint64 { return r.den }

// Float returns the rate in Hz as a float64, for display and statistics only.
func (r Rate) Float() float64 {
	if r.IsZero() {
		return 0
	}
	return float64(r.num) / float64(r.den)
}

// Cmp compares two rates exactly.
func (r Rate) Cmp(o Rate) int {
	ah, al := bits.Mul64(r.num, o.den)
	bh, bl := bits.Mul64(o.num, r.den)
	switch {
	case ah < bh || (ah == bh && al < bl):
		return -1
	case ah > bh || (ah == bh && al > bl):
		return 1
	default:
		return 0
	}
}

// String renders the rate as "1000Hz" or "1/3Hz".
func (r Rate) String() string {
	if r.IsZero() {
		return "0Hz"
	}
	if r.den == 1 {
		return strconv.FormatUint(r.num, 10) + "Hz"
	}
	return fmt.Sprintf("%d/%dHz", r.num, r.den)
}

// Period returns the nominal sampling period truncated to nanoseconds.
func (r Rate) Period() time.Duration {
	return time.Duration(r.Offset(1))
}

// Count returns ceil(d * rate), the number of samples in a run of length d.
func (r Rate) Count(d time.Duration) (int64, error) {
	if r.IsZero() {
		return 0, errors.NewConfig("rate", "must be positive")
	}
	if d <= 0 {
		return 0, errors.NewConfig("duration", "must be positive")
	}

	hi, lo := bits.Mul64(uint64(d), r.num)
	div := nsPerSecond * r.den
	if hi >= div {
		return 0, errors.NewConfigf("duration", "%v at %s overflows the sample count", d, r)
	}
	q, rem := bits.Div64(hi, lo, div)
	if rem != 0 {
		q++
	}
	if q > math.MaxInt64 {
		return 0, errors.NewConfigf("duration", "%v at %s overflows the sample count", d, r)
	}
	return int64(q), nil
}

// Offset returns the timestamp of sample i in nanoseconds since launch,
// floor(i * 1e9 / rate). It is computed from the index alone, so there is
// no accumulated drift.
func (r Rate) Offset(i int64) int64 {
	if r.IsZero() || i <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(i), nsPerSecond*r.den)
	if hi >= r.num {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, r.num)
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rate) UnmarshalText(b []byte) error {
	parsed, err := ParseRate(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
