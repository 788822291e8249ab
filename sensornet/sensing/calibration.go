// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensing

import (
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
)

// Calibration is a sensor's calibration profile. It is immutable once taken;
// recalibration replaces the profile wholesale.
type Calibration struct {
	Timestamp time.Time

	Sensitivity  float64
	DynamicRange float64
	NoiseFloor   float64

	// FrequencyResponse maps frequency (Hz) to gain.
	FrequencyResponse map[float64]float64

	TemperatureCoefficient   float64
	MagneticFieldSensitivity float64
	VibrationSensitivity     float64

	// QuantumEfficiency is the detector efficiency in [0, 1].
	QuantumEfficiency float64

	// CoherenceTime governs the decay of paired-correlation fidelity.
	CoherenceTime time.Duration

	// MaxAge is the validity window measured from Timestamp.
	MaxAge time.Duration
}

// Valid reports whether the profile is still within its validity window.
func (c *Calibration) Valid() bool {
	return c.ValidAt(wallclock.Instance.Now())
}

// ValidAt reports whether the profile is within its validity window at the
// given instant. The boundary itself is invalid.
func (c *Calibration) ValidAt(now time.Time) bool {
	return now.Sub(c.Timestamp) < c.MaxAge
}

// Age returns how long ago the profile was taken.
func (c *Calibration) Age() time.Duration {
	return wallclock.Instance.Now().Sub(c.Timestamp)
}
