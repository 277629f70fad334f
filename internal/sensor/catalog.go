package sensor

// ReferenceID is the ID of the 1 Hz reference sensor.
const ReferenceID = "one_hertz"

type entry struct {
	id, typ, unit string
	width         int
	gen           Generator
}

// Rocket flight sensor set.
var catalog = []entry{
	{"acceleration_mps2", "kinematics", "m/s²", 1, Flight(ChannelAcceleration, 0.05)},
	{"altitude_m", "kinematics", "m", 1, Flight(ChannelAltitude, 0.01)},
	{"velocity_mps", "kinematics", "m/s", 1, Flight(ChannelVelocity, 0)},

	{"chamber_pressure_pa", "engine_pressure", "Pa", 1, Flight(ChannelChamberPressure, 500)},
	{"oxidizer_pressure_pa", "engine_pressure", "Pa", 1, Constant(6_000_000, 500)},
	{"fuel_pressure_pa", "engine_pressure", "Pa", 1, Constant(5_500_000, 500)},

	{"chamber_temperature_k", "engine_temperature", "K", 1, Flight(ChannelChamberTemperature, 0.2)},
	{"oxidizer_temperature_k", "engine_temperature", "K", 1, Constant(90, 0.2)},
	{"fuel_temperature_k", "engine_temperature", "K", 1, RandomWalk(290, 0.05, 270, 310)},
	{"nozzle_temperature_k", "engine_temperature", "K", 1, Flight(ChannelNozzleTemperature, 2)},

	{"oxidizer_flow_rate_kgps", "engine_flow", "kg/s", 1, Flight(ChannelOxidizerFlow, 0.1)},
	{"fuel_flow_rate_kgps", "engine_flow", "kg/s", 1, Flight(ChannelFuelFlow, 0.1)},

	{"turbo_pump_rpm", "turbo_pump", "RPM", 1, Flight(ChannelTurboPump, 25)},
	{"thrust_n", "engine_performance", "N", 1, Flight(ChannelThrust, 50)},
	{"specific_impulse_s", "engine_performance", "s", 1, Flight(ChannelSpecificImpulse, 0.3)},

	{"roll_deg", "attitude", "degrees", 1, RandomWalk(0, 0.05, -5, 5)},
	{"pitch_deg", "attitude", "degrees", 1, Flight(ChannelPitch, 0.3)},
	{"yaw_deg", "attitude", "degrees", 1, RandomWalk(0, 0.05, -5, 5)},

	{"roll_rate_dps", "attitude_rate", "degrees/s", 1, Sine(0.5, 0.1, 0)},
	{"pitch_rate_dps", "attitude_rate", "degrees/s", 1, Flight(ChannelPitchRate, 0.01)},
	{"yaw_rate_dps", "attitude_rate", "degrees/s", 1, Sine(0.2, 0.05, 0)},

	{"latitude_deg", "position", "degrees", 1, RandomWalk(28.5729, 1e-6, 28, 29)},
	{"longitude_deg", "position", "degrees", 1, RandomWalk(-80.6490, 1e-6, -81, -80)},

	{"vibration_g", "vibration", "g", 3, Generator{
		Kind:    KindFlight,
		Channel: ChannelVibration,
		Noise:   0.01,
		Gains:   []float64{1, 1, 1.5},
	}},
	{"vibration_freq_hz", "vibration", "Hz", 1, Flight(ChannelVibrationFreq, 2.5)},
}

// Catalog returns the rocket sensor set, every sensor sampling at rate.
func Catalog(rate Rate) []Spec {
	specs := make([]Spec, 0, len(catalog))
	for _, e := range catalog {
		specs = append(specs, Spec{
			ID:        e.id,
			Type:      e.typ,
			Rate:      rate,
			Width:     e.width,
			Unit:      e.unit,
			Generator: e.gen,
		})
	}
	return specs
}

// Reference returns the 1 Hz reference sensor.
func Reference() Spec {
	return Spec{
		ID:        ReferenceID,
		Type:      ReferenceID,
		Rate:      Hz(1),
		Width:     1,
		Unit:      "count",
		Generator: Sine(1, 0.05, 0),
	}
}
