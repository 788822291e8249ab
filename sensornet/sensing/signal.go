// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensing

import (
	"math/rand"
	"sync"
)

type (
	// SignalSource produces the raw reading for a measurement. Physical
	// modeling lives behind this interface; the engine only sees values.
	SignalSource interface {
		Sample(measurementType string, env map[string]float64) float64
	}

	// SyntheticSource is a seedable source producing a stable baseline per
	// measurement type with small Gaussian noise. It is safe for concurrent
	// use.
	SyntheticSource struct {
		rng *rand.Rand
		mu  sync.Mutex
	}
)

// Baselines per measurement type. Unknown types sample around 1.
var baselines = map[string]float64{
	"magnetic_field": 50.0,
	"gravity":        9.80665,
	"frequency":      9.192631770e9,
	"acceleration":   0.0,
	"rotation":       0.0,
}

// NewSyntheticSource creates a synthetic source from a seed.
func NewSyntheticSource(seed int64) *SyntheticSource {
	//nolint:gosec // Simulation noise, not security material.
	return &SyntheticSource{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns the baseline for the measurement type perturbed by noise and
// any ambient offset present in the environmental conditions.
func (s *SyntheticSource) Sample(mtype string, env map[string]float64) float64 {
	base, ok := baselines[mtype]
	if !ok {
		base = 1.0
	}

	s.mu.Lock()
	noise := s.rng.NormFloat64()
	s.mu.Unlock()

	return base + env["ambient_offset"] + noise*0.01*scaleOf(base)
}

func scaleOf(base float64) float64 {
	if base == 0 {
		return 1
	}
	if base < 0 {
		return -base
	}
	return base
}

// MeasurementKind maps a sensor type to the quantity it reports and its unit.
func MeasurementKind(sensorType string) (mtype, unit string) {
	switch sensorType {
	case "quantum_magnetometer", "magnetometer":
		return "magnetic_field", "µT"
	case "quantum_gravimeter", "gravimeter":
		return "gravity", "m/s²"
	case "atomic_clock", "optical_clock":
		return "frequency", "Hz"
	case "accelerometer":
		return "acceleration", "m/s²"
	case "gyroscope":
		return "rotation", "rad/s"
	default:
		return sensorType, "au"
	}
}
