package sensor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Kind selects the value generator of a sensor. The set is closed; adding
// a generator means adding a Kind and a case in valueAt.
type Kind int

const (
	// KindSine is Offset + Amplitude*sin(2*pi*Frequency*t) plus noise.
	KindSine Kind = iota
	// KindConstant is Level plus gaussian jitter of stddev Noise.
	KindConstant
	// KindRandomWalk starts at Start and moves by a gaussian step of
	// stddev Step, clamped to [Min, Max].
	KindRandomWalk
	// KindFlight follows a flight-phase envelope selected by Channel.
	KindFlight
)

var kindNames = map[Kind]string{
	KindSine:       "sine",
	KindConstant:   "constant",
	KindRandomWalk: "random_walk",
	KindFlight:     "flight",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind parses a generator kind name.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return KindSine, nil
	}
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown generator kind %q (valid: sine, constant, random_walk, flight)", s)
}

// Channel names a quantity on the flight envelope.
type Channel string

const (
	ChannelThrust             Channel = "thrust"
	ChannelChamberPressure    Channel = "chamber_pressure"
	ChannelChamberTemperature Channel = "chamber_temperature"
	ChannelOxidizerFlow       Channel = "oxidizer_flow"
	ChannelFuelFlow           Channel = "fuel_flow"
	ChannelTurboPump          Channel = "turbo_pump"
	ChannelSpecificImpulse    Channel = "specific_impulse"
	ChannelNozzleTemperature  Channel = "nozzle_temperature"
	ChannelAcceleration       Channel = "acceleration"
	ChannelVelocity           Channel = "velocity"
	ChannelAltitude           Channel = "altitude"
	ChannelPitch              Channel = "pitch"
	ChannelPitchRate          Channel = "pitch_rate"
	ChannelVibration          Channel = "vibration"
	ChannelVibrationFreq      Channel = "vibration_freq"
)

var channels = map[Channel]bool{
	ChannelThrust: true, ChannelChamberPressure: true, ChannelChamberTemperature: true,
	ChannelOxidizerFlow: true, ChannelFuelFlow: true, ChannelTurboPump: true,
	ChannelSpecificImpulse: true, ChannelNozzleTemperature: true, ChannelAcceleration: true,
	ChannelVelocity: true, ChannelAltitude: true, ChannelPitch: true,
	ChannelPitchRate: true, ChannelVibration: true, ChannelVibrationFreq: true,
}

// Generator holds the parameters of one generator variant. Only the fields
// of the selected Kind are used.
type Generator struct {
	Kind Kind

	// Sine
	Amplitude float64
	Frequency float64 // Hz
	Offset    float64

	// Constant
	Level float64

	// Random walk
	Start float64
	Step  float64
	Min   float64
	Max   float64

	// Flight
	Channel Channel

	// Noise is the stddev of gaussian noise added to every value.
	Noise float64

	// Gains multiplies each vector component; missing entries are 1.
	Gains []float64
}

// Sine returns a sine generator.
func Sine(amplitude, frequency, offset float64) Generator {
	return Generator{Kind: KindSine, Amplitude: amplitude, Frequency: frequency, Offset: offset}
}

// Constant returns a constant-with-jitter generator.
func Constant(level, jitter float64) Generator {
	return Generator{Kind: KindConstant, Level: level, Noise: jitter}
}

// RandomWalk returns a clamped random walk generator.
func RandomWalk(start, step, min, max float64) Generator {
	return Generator{Kind: KindRandomWalk, Start: start, Step: step, Min: min, Max: max}
}

// Flight returns a flight-envelope generator for the given channel.
func Flight(ch Channel, noise float64) Generator {
	return Generator{Kind: KindFlight, Channel: ch, Noise: noise}
}

// Validate checks the parameters of the selected kind.
func (g Generator) Validate(width int) error {
	for name, v := range map[string]float64{
		"amplitude": g.Amplitude, "frequency": g.Frequency, "offset": g.Offset,
		"level": g.Level, "start": g.Start, "step": g.Step,
		"min": g.Min, "max": g.Max, "noise": g.Noise,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if g.Noise < 0 {
		return fmt.Errorf("noise must be >= 0")
	}
	if len(g.Gains) > width {
		return fmt.Errorf("%d gains for width %d", len(g.Gains), width)
	}

	switch g.Kind {
	case KindSine:
		if g.Frequency < 0 {
			return fmt.Errorf("frequency must be >= 0")
		}
	case KindConstant:
	case KindRandomWalk:
		if g.Step < 0 {
			return fmt.Errorf("step must be >= 0")
		}
		if g.Min >= g.Max {
			return fmt.Errorf("min (%v) must be below max (%v)", g.Min, g.Max)
		}
		if g.Start < g.Min || g.Start > g.Max {
			return fmt.Errorf("start (%v) outside [%v, %v]", g.Start, g.Min, g.Max)
		}
	case KindFlight:
		if !channels[g.Channel] {
			return fmt.Errorf("unknown flight channel %q", g.Channel)
		}
	default:
		return fmt.Errorf("unknown generator kind %d", g.Kind)
	}
	return nil
}

func (g Generator) gain(component int) float64 {
	if component < len(g.Gains) {
		return g.Gains[component]
	}
	return 1
}

// =============================================================================
// Per-component state
// =============================================================================

// component is the running state of one generator instance.
type component struct {
	rng  *rand.Rand
	gain float64

	walk     float64
	velocity float64
	altitude float64
}

func newComponent(g Generator, seed uint64, index int) *component {
	c := &component{gain: g.gain(index)}
	c.reset(g, seed, index)
	return c
}

func (c *component) reset(g Generator, seed uint64, index int) {
	c.rng = rand.New(rand.NewPCG(seed, uint64(index)))
	c.walk = g.Start
	c.velocity = 0
	c.altitude = 0
}

// valueAt returns the value for one sample. t is seconds since launch,
// progress is index/count in [0, 1) and dt is the sampling period in seconds.
func (c *component) valueAt(g Generator, t, progress, dt float64) float64 {
	var v float64
	switch g.Kind {
	case KindSine:
		v = g.Offset + g.Amplitude*math.Sin(2*math.Pi*g.Frequency*t)
	case KindConstant:
		v = g.Level
	case KindRandomWalk:
		c.walk += c.rng.NormFloat64() * g.Step
		c.walk = math.Min(math.Max(c.walk, g.Min), g.Max)
		v = c.walk
	case KindFlight:
		switch g.Channel {
		case ChannelVelocity:
			c.velocity += envelope(ChannelAcceleration, progress) * dt
			v = c.velocity
		case ChannelAltitude:
			c.velocity += envelope(ChannelAcceleration, progress) * dt
			c.altitude += c.velocity * dt
			v = c.altitude
		default:
			v = envelope(g.Channel, progress)
		}
	}
	if g.Noise > 0 && g.Kind != KindRandomWalk {
		v += c.rng.NormFloat64() * g.Noise
	}
	return v * c.gain
}

// =============================================================================
// Flight envelope
// =============================================================================

// Phases as fractions of the run: throttle-up [0, 0.05), max-Q [0.05, 0.15),
// ascent [0.15, 0.40), staging [0.40, 0.55), second burn [0.55, 1].

func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

// throttle is the engine throttle in [0, 1].
func throttle(p float64) float64 {
	switch {
	case p < 0.05:
		return p / 0.05
	case p < 0.15:
		return 1 - 0.2*(p-0.05)/0.10
	case p < 0.40:
		return 1
	case p < 0.55:
		if p >= 0.50 && p < 0.52 {
			return 0
		}
		return clamp01(1 - (p-0.45)/0.05)
	default:
		stage := (p - 0.55) / 0.45
		t := math.Min(stage*5, 1)
		if stage > 0.9 {
			t *= 1 - (stage-0.9)/0.1
		}
		return clamp01(t)
	}
}

func envelope(ch Channel, p float64) float64 {
	thr := throttle(p)
	switch ch {
	case ChannelThrust:
		if p >= 0.55 {
			return 2_000_000 * thr
		}
		return 1_000_000 * thr
	case ChannelChamberPressure:
		return 5_000_000 * thr
	case ChannelChamberTemperature:
		return math.Max(3500*thr, 273)
	case ChannelOxidizerFlow:
		return 250 * thr
	case ChannelFuelFlow:
		return 50 * thr
	case ChannelTurboPump:
		return 30_000 * thr
	case ChannelSpecificImpulse:
		return 300 * thr
	case ChannelNozzleTemperature:
		if p >= 0.05 && p < 0.15 {
			return 1500 + (p-0.05)/0.10*300
		}
		return math.Max(3500*thr, 273)
	case ChannelAcceleration:
		switch {
		case p < 0.01:
			return 0
		case p < 0.05:
			return (p - 0.01) / 0.04 * 15
		case p < 0.15:
			return 15 * thr
		case p < 0.40:
			return 15 * (1 + (p-0.15)/0.25*0.5)
		case p < 0.50:
			return 20 * thr
		case p < 0.52:
			return -9.81
		case p < 0.55:
			return -9.81 + (p-0.52)/0.03*15
		default:
			return 5 * thr
		}
	case ChannelPitch:
		switch {
		case p < 0.05:
			return 90
		case p < 0.15:
			return 90 - 15*(p-0.05)/0.10
		case p < 0.40:
			return 75 - 25*(p-0.15)/0.25
		case p < 0.55:
			return 50
		default:
			return 50 - 40*(p-0.55)/0.45
		}
	case ChannelPitchRate:
		switch {
		case p < 0.05:
			return 0
		case p < 0.15:
			return -0.3
		case p < 0.40:
			return -0.1
		case p < 0.55:
			return 0
		default:
			return -0.05
		}
	case ChannelVibration:
		switch {
		case p < 0.05:
			return 0.05
		case p < 0.15:
			return 1 + (1-thr)*2
		case p < 0.40:
			return 0.5 * (1 - (p-0.15)/0.25)
		case p < 0.55:
			if p >= 0.50 && p < 0.51 {
				return 3
			}
			return 0.5 * thr
		default:
			return 0.01 * thr
		}
	case ChannelVibrationFreq:
		switch {
		case p < 0.05:
			return 20
		case p < 0.15:
			return 80 + (1-thr)*40
		case p < 0.40:
			return 60
		case p < 0.55:
			if p >= 0.50 && p < 0.51 {
				return 100
			}
			return 40 * thr
		default:
			return 30 * thr
		}
	}
	return 0
}
