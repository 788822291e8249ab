// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensing

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/container"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
)

type (
	// Status is a sensor's operational state.
	Status int

	// Location is a sensor's geographic position.
	Location struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
		Alt float64 `json:"altitude"`
	}

	// Sensor is one physical or logical sensor node. All mutable state is
	// guarded by an internal mutex; measurement collection and status reads
	// may run concurrently.
	Sensor struct {
		id           string
		sensorType   string
		platform     string
		location     Location
		samplingRate float64
		mtype        string
		unit         string

		mu          sync.Mutex
		status      Status
		healthScore float64
		calibration *Calibration
		partners    map[string]struct{}
		fidelity    float64
		errorRate   float64
		lastSample  time.Time

		history *container.Ring[Measurement]
		source  SignalSource
		logger  log.Logger
	}

	// Options configures a sensor. Zero values select the documented
	// defaults.
	Options struct {
		// Specs is copied into each calibration profile taken for the
		// sensor (with a fresh timestamp).
		Specs Calibration

		// HistoryCapacity bounds the per-sensor measurement history.
		// Defaults to 1000.
		HistoryCapacity int

		// Source supplies raw readings. Defaults to a synthetic source
		// seeded from the current time.
		Source SignalSource

		// Logger receives calibration warnings and lifecycle events.
		Logger *slog.Logger
	}
)

const (
	Active Status = iota
	Standby
	Maintenance
	Fault
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Standby:
		return "STANDBY"
	case Maintenance:
		return "MAINTENANCE"
	case Fault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

const (
	// healthAlpha is the EMA coefficient for the health score.
	healthAlpha = 0.1

	// fidelityFloor triggers error correction; fidelityRestored is the level
	// correction restores to.
	fidelityFloor    = 0.9
	fidelityRestored = 0.99

	// maxPartners caps the paired-correlation partner set.
	maxPartners = 3

	// Environmental reference points for uncertainty propagation.
	referenceTemperature = 20.0
	referenceField       = 0.0
)

// New creates an active sensor and takes its initial calibration.
func New(
	id, sensorType, platform string,
	loc Location,
	samplingRate float64,
	opt Options,
) *Sensor {
	if opt.HistoryCapacity <= 0 {
		opt.HistoryCapacity = 1000
	}
	if opt.Source == nil {
		opt.Source = NewSyntheticSource(wallclock.Instance.Now().UnixNano())
	}
	if opt.Specs.MaxAge <= 0 {
		opt.Specs.MaxAge = 24 * time.Hour
	}
	if opt.Specs.CoherenceTime <= 0 {
		opt.Specs.CoherenceTime = 100 * time.Millisecond
	}

	mtype, unit := MeasurementKind(sensorType)

	s := &Sensor{
		id:           id,
		sensorType:   sensorType,
		platform:     platform,
		location:     loc,
		samplingRate: samplingRate,
		mtype:        mtype,
		unit:         unit,
		status:       Active,
		healthScore:  1.0,
		partners:     make(map[string]struct{}, maxPartners),
		fidelity:     fidelityRestored,
		lastSample:   wallclock.Instance.Now(),
		history:      container.NewRing[Measurement](opt.HistoryCapacity),
		source:       opt.Source,
		logger:       log.Wrap(opt.Logger),
	}
	s.recalibrate(opt.Specs)
	return s
}

// ID returns the sensor identifier.
func (s *Sensor) ID() string { return s.id }

// Type returns the sensor type.
func (s *Sensor) Type() string { return s.sensorType }

// Platform returns the deployment platform.
func (s *Sensor) Platform() string { return s.platform }

// Location returns the sensor position.
func (s *Sensor) Location() Location { return s.location }

// MeasurementType returns the quantity this sensor reports.
func (s *Sensor) MeasurementType() string { return s.mtype }

// SamplingRate returns the configured sampling rate in Hz.
func (s *Sensor) SamplingRate() float64 { return s.samplingRate }

// Status returns the operational status.
func (s *Sensor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus transitions the operational status.
func (s *Sensor) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// HealthScore returns the current health score in [0, 1].
func (s *Sensor) HealthScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthScore
}

// Fidelity returns the current paired-correlation fidelity in [0, 1].
func (s *Sensor) Fidelity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fidelity
}

// Calibration returns the current calibration profile, or nil if none exists.
func (s *Sensor) Calibration() *Calibration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibration
}

// History returns a copy of the sensor's recent measurements, oldest first.
func (s *Sensor) History() []Measurement {
	return s.history.Snapshot()
}

// Recalibrate replaces the calibration profile wholesale with a fresh
// timestamp.
func (s *Sensor) Recalibrate(specs Calibration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recalibrate(specs)
}

func (s *Sensor) recalibrate(specs Calibration) {
	cal := specs
	cal.Timestamp = wallclock.Instance.Now()
	if cal.FrequencyResponse != nil {
		fr := make(map[float64]float64, len(cal.FrequencyResponse))
		for k, v := range cal.FrequencyResponse {
			fr[k] = v
		}
		cal.FrequencyResponse = fr
	}
	s.calibration = &cal
}

// TakeMeasurement samples the sensor and returns a new measurement. It fails
// when the sensor is not active. A stale calibration is logged as a warning
// but does not block the measurement.
func (s *Sensor) TakeMeasurement(
	ctx context.Context,
	env map[string]float64,
) (Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return Measurement{}, &errors.Error{
			Message:       "sensor is not active",
			Kind:          errors.SensorInactive,
			SensorID:      s.id,
			PropertyName:  "operationalStatus",
			PropertyValue: s.status.String(),
		}
	}

	now := wallclock.Instance.Now()

	if s.calibration != nil && !s.calibration.ValidAt(now) {
		warn := &errors.Error{
			Message:        "calibration is stale",
			Kind:           errors.CalibrationStale,
			SensorID:       s.id,
			CalibrationAge: now.Sub(s.calibration.Timestamp),
		}
		s.logger.Err(ctx, warn)
	}

	value := s.source.Sample(s.mtype, env)
	uncertainty := s.propagateUncertainty(value, env)

	s.decay(now)
	snr := s.signalToNoise(value)
	s.healthScore = (1-healthAlpha)*s.healthScore +
		healthAlpha*clamp01(snr/100)

	m := Measurement{
		ID:          uuid.NewString(),
		SensorID:    s.id,
		Timestamp:   now,
		Type:        s.mtype,
		Value:       value,
		Unit:        s.unit,
		Uncertainty: uncertainty,
		Decoherence: &DecoherenceState{
			Fidelity:  s.fidelity,
			Partners:  s.partnerList(),
			ErrorRate: s.errorRate,
		},
		Environment: copyEnv(env),
		Confidence:  clamp01(snr / (snr + 10)),
		ContentHash: contentHash(s.id, s.mtype, value, s.unit, now),
	}

	s.history.Push(m)
	return m, nil
}

// propagateUncertainty combines error contributions as a root sum of squares.
// Without a calibration profile it falls back to 1% of the signal.
func (s *Sensor) propagateUncertainty(value float64, env map[string]float64) float64 {
	cal := s.calibration
	if cal == nil {
		return 0.01 * math.Abs(value)
	}

	signal := math.Max(math.Abs(value), 1e-12)
	dT := envOr(env, "temperature", referenceTemperature) - referenceTemperature
	dB := envOr(env, "magnetic_field", referenceField) - referenceField
	vib := envOr(env, "vibration", 0)

	terms := []float64{
		cal.NoiseFloor / signal,
		math.Abs(dT) * cal.TemperatureCoefficient,
		math.Abs(dB) * cal.MagneticFieldSensitivity,
		vib * cal.VibrationSensitivity,
		(1 - cal.QuantumEfficiency) * 0.1,
	}

	var sum float64
	for _, t := range terms {
		sum += t * t
	}
	return math.Sqrt(sum)
}

// decay advances the decoherence simulation to now and restores fidelity once
// it crosses the error-correction floor.
func (s *Sensor) decay(now time.Time) {
	dt := now.Sub(s.lastSample)
	s.lastSample = now
	if dt <= 0 {
		return
	}

	coherence := s.coherenceTime()
	s.fidelity *= math.Exp(-float64(dt) / float64(coherence))
	if s.fidelity < fidelityFloor {
		s.fidelity = fidelityRestored
	}
	s.errorRate = 1 - s.fidelity
}

func (s *Sensor) coherenceTime() time.Duration {
	if s.calibration != nil && s.calibration.CoherenceTime > 0 {
		return s.calibration.CoherenceTime
	}
	return 100 * time.Millisecond
}

func (s *Sensor) signalToNoise(value float64) float64 {
	if s.calibration == nil || s.calibration.NoiseFloor <= 0 {
		return 100
	}
	return math.Abs(value) / s.calibration.NoiseFloor
}

// EstablishPairedCorrelation adds a partner to the paired-correlation set.
// It returns false once three partners are held; this is a hard cap, not a
// retryable condition. Re-adding an existing partner is a no-op success.
func (s *Sensor) EstablishPairedCorrelation(partnerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.partners[partnerID]; ok {
		return true
	}
	if len(s.partners) >= maxPartners {
		return false
	}
	s.partners[partnerID] = struct{}{}
	return true
}

// DropPairedCorrelation removes a partner from the paired-correlation set,
// freeing its slot. Unknown partners are a no-op.
func (s *Sensor) DropPairedCorrelation(partnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partners, partnerID)
}

// Partners returns the paired-correlation partner IDs.
func (s *Sensor) Partners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerList()
}

func (s *Sensor) partnerList() []string {
	out := make([]string, 0, len(s.partners))
	for id := range s.partners {
		out = append(out, id)
	}
	return out
}

func envOr(env map[string]float64, key string, def float64) float64 {
	if v, ok := env[key]; ok {
		return v
	}
	return def
}

func copyEnv(env map[string]float64) map[string]float64 {
	if env == nil {
		return nil
	}
	out := make(map[string]float64, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
