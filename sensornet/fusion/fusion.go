// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package fusion combines batches of same-type measurements from multiple
// sensors into consensus estimates. Four algorithms are supported, selected
// by a closed enum; unknown algorithm names resolve to the weighted-average
// default.
package fusion

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/container"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

type (
	// Algorithm identifies a fusion strategy.
	Algorithm int

	// Estimate is the consensus for one measurement type. A failed partition
	// carries its error marker in place of values, so downstream aggregation
	// can distinguish "no signal" from "fused successfully".
	Estimate struct {
		Value       float64  `json:"fusedValue"`
		Uncertainty float64  `json:"fusedUncertainty"`
		Confidence  float64  `json:"confidence"`
		Sensors     []string `json:"contributingSensorIds"`

		// Details carries algorithm-specific outputs, e.g. kalmanGain or
		// chiSquaredPValue.
		Details map[string]float64 `json:"algorithmSpecificFields,omitempty"`

		// Error is set when the partition could not be fused.
		Error string `json:"error,omitempty"`
	}
)

// MarshalJSON encodes an infinite uncertainty as null, since JSON has no
// representation for infinity.
func (e Estimate) MarshalJSON() ([]byte, error) {
	type alias Estimate
	wire := struct {
		alias
		Uncertainty *float64 `json:"fusedUncertainty"`
	}{alias: alias(e)}
	if !math.IsInf(e.Uncertainty, 0) {
		wire.Uncertainty = &e.Uncertainty
	}
	return json.Marshal(wire)
}

type (
	// Result is one fusion invocation's output across all measurement types.
	Result struct {
		Timestamp  time.Time           `json:"timestamp"`
		Algorithm  Algorithm           `json:"algorithm"`
		InputCount int                 `json:"inputCount"`
		Estimates  map[string]Estimate `json:"estimates"`
	}

	// Engine fuses measurement batches and retains a bounded result history.
	Engine struct {
		history      *container.Ring[Result]
		processNoise float64
		logger       log.Logger
	}

	// Options configures the engine. Zero values select the documented
	// defaults.
	Options struct {
		// HistoryCapacity bounds the fusion result history. Defaults to
		// 1000.
		HistoryCapacity int

		// ProcessNoise is the Kalman filter's per-step process noise
		// variance. Defaults to 1e-6.
		ProcessNoise float64

		Logger *slog.Logger
	}
)

const (
	WeightedAverage Algorithm = iota
	KalmanFilter
	BayesianFusion
	QuantumConsensus
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case KalmanFilter:
		return "kalman_filter"
	case BayesianFusion:
		return "bayesian_fusion"
	case QuantumConsensus:
		return "quantum_consensus"
	default:
		return "weighted_average"
	}
}

// MarshalText marshals the algorithm to its name.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAlgorithm resolves an algorithm name. Unknown names resolve to
// WeightedAverage rather than failing.
func ParseAlgorithm(name string) Algorithm {
	switch name {
	case "kalman_filter":
		return KalmanFilter
	case "bayesian_fusion":
		return BayesianFusion
	case "quantum_consensus":
		return QuantumConsensus
	case "weighted_average":
		return WeightedAverage
	default:
		return WeightedAverage
	}
}

// NewEngine creates a fusion engine.
func NewEngine(opt Options) *Engine {
	if opt.HistoryCapacity <= 0 {
		opt.HistoryCapacity = 1000
	}
	if opt.ProcessNoise <= 0 {
		opt.ProcessNoise = 1e-6
	}
	return &Engine{
		history:      container.NewRing[Result](opt.HistoryCapacity),
		processNoise: opt.ProcessNoise,
		logger:       log.Wrap(opt.Logger),
	}
}

// Fuse partitions the measurements by type and fuses every partition holding
// at least two members. Single-measurement partitions are dropped silently.
// The result is appended to the bounded history regardless of per-partition
// failures.
func (e *Engine) Fuse(
	ctx context.Context,
	measurements []sensing.Measurement,
	algorithm Algorithm,
) Result {
	result := Result{
		Timestamp:  wallclock.Instance.Now(),
		Algorithm:  algorithm,
		InputCount: len(measurements),
		Estimates:  map[string]Estimate{},
	}

	for mtype, group := range partition(measurements) {
		if len(group) < 2 {
			continue
		}

		est, err := e.fuseGroup(group, algorithm)
		if err != nil {
			e.logger.Err(ctx, err, slog.String("measurement_type", mtype))
			est = Estimate{Error: err.Error()}
		}
		result.Estimates[mtype] = est
	}

	e.history.Push(result)
	return result
}

func (e *Engine) fuseGroup(
	group []sensing.Measurement,
	algorithm Algorithm,
) (Estimate, error) {
	switch algorithm {
	case KalmanFilter:
		return e.fuseKalman(group), nil
	case BayesianFusion:
		return fuseBayesian(group), nil
	case QuantumConsensus:
		return fuseQuantumConsensus(group)
	default:
		return fuseWeightedAverage(group)
	}
}

// History returns a copy of the full fusion result history, oldest first.
func (e *Engine) History() []Result {
	return e.history.Snapshot()
}

// Recent returns the most recent n fusion results, oldest first.
func (e *Engine) Recent(n int) []Result {
	return e.history.Recent(n)
}

// Count reports how many fusion results are currently retained.
func (e *Engine) Count() int {
	return e.history.Len()
}

func partition(measurements []sensing.Measurement) map[string][]sensing.Measurement {
	groups := map[string][]sensing.Measurement{}
	for _, m := range measurements {
		groups[m.Type] = append(groups[m.Type], m)
	}
	return groups
}

func sensorIDs(group []sensing.Measurement) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(group))
	for _, m := range group {
		if _, ok := seen[m.SensorID]; !ok {
			seen[m.SensorID] = struct{}{}
			out = append(out, m.SensorID)
		}
	}
	return out
}
