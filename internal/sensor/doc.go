// Package sensor implements the synthetic sensor sources of a run.
//
// A Spec describes one sensor: its ID, categorical type, exact sampling
// Rate, vector width and value Generator. A Source turns a Spec into a
// finite, restartable sequence of samples whose timestamps are derived from
// the sample index, so sample i of a sensor at rate r is always at
// floor(i * 1e9 / r) ns regardless of how many samples came before.
//
// Generators form a closed set selected by Kind:
//
//	sine         Offset + Amplitude*sin(2*pi*Frequency*t)
//	constant     Level with gaussian jitter
//	random_walk  gaussian steps clamped to [Min, Max]
//	flight       the flight-phase envelope of a two-stage ascent
//
// Each sensor seeds its own PCG generator from xxhash(ID) ^ run seed, which
// keeps runs reproducible and independent of sensor order.
package sensor
