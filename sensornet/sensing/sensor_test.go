// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// fixedSource returns a constant reading.
type fixedSource float64

func (f fixedSource) Sample(string, map[string]float64) float64 {
	return float64(f)
}

// fakeClock overrides Now on the real wall clock.
type fakeClock struct {
	wallclock.WallClock
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func setClock(t *testing.T, now time.Time) *fakeClock {
	t.Helper()
	c := &fakeClock{WallClock: wallclock.Instance, now: now}
	prev := wallclock.Instance
	wallclock.Instance = c
	t.Cleanup(func() { wallclock.Instance = prev })
	return c
}

func newTestSensor(opt sensing.Options) *sensing.Sensor {
	if opt.Source == nil {
		opt.Source = fixedSource(5.0)
	}
	return sensing.New(
		"sensor-1", "quantum_magnetometer", "ground_station",
		sensing.Location{Lat: 1, Lon: 2, Alt: 3}, 10, opt,
	)
}

func TestCalibrationValidityBoundary(t *testing.T) {
	now := time.Now()
	cal := &sensing.Calibration{
		Timestamp: now,
		MaxAge:    24 * time.Hour,
	}

	require.True(t, cal.ValidAt(now.Add(24*time.Hour-time.Nanosecond)))
	require.False(t, cal.ValidAt(now.Add(24*time.Hour)))
	require.False(t, cal.ValidAt(now.Add(24*time.Hour+time.Nanosecond)))
}

func TestTakeMeasurementNotActive(t *testing.T) {
	s := newTestSensor(sensing.Options{})
	s.SetStatus(sensing.Maintenance)

	_, err := s.TakeMeasurement(context.Background(), nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.SensorInactive))
}

func TestTakeMeasurementPopulatesFields(t *testing.T) {
	s := newTestSensor(sensing.Options{
		Specs: sensing.Calibration{NoiseFloor: 0.1, QuantumEfficiency: 1},
	})

	m, err := s.TakeMeasurement(context.Background(), map[string]float64{
		"temperature": 20,
	})
	require.NoError(t, err)

	require.NotEmpty(t, m.ID)
	require.Equal(t, "sensor-1", m.SensorID)
	require.Equal(t, "magnetic_field", m.Type)
	require.Equal(t, "µT", m.Unit)
	require.Equal(t, 5.0, m.Value)
	require.NotEmpty(t, m.ContentHash)
	require.NotNil(t, m.Decoherence)
	require.GreaterOrEqual(t, m.Confidence, 0.0)
	require.LessOrEqual(t, m.Confidence, 1.0)

	// Only the noise-floor term contributes here: 0.1 / 5.
	require.InDelta(t, 0.02, m.Uncertainty, 1e-12)
}

func TestUncertaintyRootSumOfSquares(t *testing.T) {
	s := newTestSensor(sensing.Options{
		Specs: sensing.Calibration{
			NoiseFloor:               0.5,
			TemperatureCoefficient:   0.01,
			MagneticFieldSensitivity: 0.02,
			VibrationSensitivity:     0.1,
			QuantumEfficiency:        0.8,
		},
	})

	m, err := s.TakeMeasurement(context.Background(), map[string]float64{
		"temperature":    25, // dT = 5
		"magnetic_field": 2,  // dB = 2
		"vibration":      1,
	})
	require.NoError(t, err)

	// RSS of 0.5/5, 5*0.01, 2*0.02, 1*0.1, 0.2*0.1.
	want := 0.0
	for _, term := range []float64{0.1, 0.05, 0.04, 0.1, 0.02} {
		want += term * term
	}
	require.InDelta(t, want, m.Uncertainty*m.Uncertainty, 1e-12)
}

func TestHealthScoreEMA(t *testing.T) {
	s := newTestSensor(sensing.Options{
		Specs: sensing.Calibration{NoiseFloor: 1},
	})
	require.Equal(t, 1.0, s.HealthScore())

	// SNR = 5/1 = 5, contribution clamp(5/100) = 0.05.
	_, err := s.TakeMeasurement(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 0.9*1.0+0.1*0.05, s.HealthScore(), 1e-12)

	_, err = s.TakeMeasurement(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 0.9*0.905+0.1*0.05, s.HealthScore(), 1e-12)
}

func TestFidelityDecayAndRestore(t *testing.T) {
	clock := setClock(t, time.Now())
	s := newTestSensor(sensing.Options{
		Specs: sensing.Calibration{
			NoiseFloor:    1,
			CoherenceTime: 100 * time.Millisecond,
		},
	})
	require.InDelta(t, 0.99, s.Fidelity(), 1e-9)

	// A short gap decays fidelity multiplicatively but stays above the
	// error-correction floor: 0.99 * exp(-0.05) ≈ 0.9417.
	clock.now = clock.now.Add(5 * time.Millisecond)
	_, err := s.TakeMeasurement(context.Background(), nil)
	require.NoError(t, err)
	require.Less(t, s.Fidelity(), 0.99)
	require.Greater(t, s.Fidelity(), 0.9)

	// A long gap drops it below the floor, triggering restoration.
	clock.now = clock.now.Add(time.Second)
	_, err = s.TakeMeasurement(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 0.99, s.Fidelity(), 1e-9)
}

func TestPairedCorrelationCap(t *testing.T) {
	s := newTestSensor(sensing.Options{})

	for i := 0; i < 3; i++ {
		require.True(t, s.EstablishPairedCorrelation(fmt.Sprintf("partner-%d", i)))
	}
	require.Len(t, s.Partners(), 3)

	// Fourth partner is rejected and the set is unchanged.
	require.False(t, s.EstablishPairedCorrelation("partner-3"))
	require.Len(t, s.Partners(), 3)

	// Re-adding an existing partner is a no-op success.
	require.True(t, s.EstablishPairedCorrelation("partner-0"))
	require.Len(t, s.Partners(), 3)
}

func TestHistoryBounded(t *testing.T) {
	s := newTestSensor(sensing.Options{HistoryCapacity: 5})

	for i := 0; i < 8; i++ {
		_, err := s.TakeMeasurement(context.Background(), nil)
		require.NoError(t, err)
	}
	require.Len(t, s.History(), 5)
}
