// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package fusion_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func meas(sensor string, value, uncertainty float64, at time.Duration) sensing.Measurement {
	return sensing.Measurement{
		ID:          sensor + at.String(),
		SensorID:    sensor,
		Timestamp:   base.Add(at),
		Type:        "magnetic_field",
		Value:       value,
		Uncertainty: uncertainty,
	}
}

func withFidelity(m sensing.Measurement, fidelity float64) sensing.Measurement {
	m.Decoherence = &sensing.DecoherenceState{
		Fidelity:  fidelity,
		ErrorRate: 1 - fidelity,
	}
	return m
}

func TestParseAlgorithm(t *testing.T) {
	require.Equal(t, fusion.KalmanFilter, fusion.ParseAlgorithm("kalman_filter"))
	require.Equal(t, fusion.BayesianFusion, fusion.ParseAlgorithm("bayesian_fusion"))
	require.Equal(t, fusion.QuantumConsensus, fusion.ParseAlgorithm("quantum_consensus"))
	require.Equal(t, fusion.WeightedAverage, fusion.ParseAlgorithm("weighted_average"))

	// Unknown names fall back to the default explicitly.
	require.Equal(t, fusion.WeightedAverage, fusion.ParseAlgorithm("montecarlo"))
	require.Equal(t, fusion.WeightedAverage, fusion.ParseAlgorithm(""))
}

func TestWeightedAverageTwoSensors(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 10.0, 0.1, 0),
		meas("B", 10.5, 0.2, time.Second),
	}, fusion.WeightedAverage)

	est := res.Estimates["magnetic_field"]
	require.Empty(t, est.Error)

	// Weights 100 and 25: mean 10.1, uncertainty 1/sqrt(125).
	require.InDelta(t, 10.1, est.Value, 1e-12)
	require.InDelta(t, 0.0894, est.Uncertainty, 1e-4)
	require.ElementsMatch(t, []string{"A", "B"}, est.Sensors)
	require.GreaterOrEqual(t, est.Confidence, 0.5)
	require.LessOrEqual(t, est.Confidence, 0.99)
	require.Contains(t, est.Details, "chiSquaredPValue")
}

func TestWeightedAverageFavorsLowUncertainty(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 1.0, 0.4, 0),
		meas("B", 2.0, 0.2, 0),
	}, fusion.WeightedAverage)

	est := res.Estimates["magnetic_field"]
	require.Greater(t, est.Value, 1.5) // closer to the low-uncertainty value
	require.Less(t, est.Uncertainty, 0.2)
}

func TestWeightedAverageNoValidUncertainty(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 1.0, 0, 0),
		meas("B", 2.0, -1, 0),
	}, fusion.WeightedAverage)

	est := res.Estimates["magnetic_field"]
	require.NotEmpty(t, est.Error)
	require.Zero(t, est.Value)

	// The failed invocation is still recorded in history.
	require.Len(t, e.History(), 1)
}

func TestWeightedAverageExcludesInvalid(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 10.0, 0.1, 0),
		meas("B", 99.0, 0, 0), // excluded from the weight sum
		meas("C", 10.0, 0.1, 0),
	}, fusion.WeightedAverage)

	est := res.Estimates["magnetic_field"]
	require.Empty(t, est.Error)
	require.InDelta(t, 10.0, est.Value, 1e-12)
	require.ElementsMatch(t, []string{"A", "C"}, est.Sensors)
}

func TestSinglePartitionDropped(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	m := meas("A", 10.0, 0.1, 0)
	m2 := meas("B", 11.0, 0.1, 0)
	m2.Type = "gravity" // partition of one, dropped silently

	res := e.Fuse(context.Background(),
		[]sensing.Measurement{m, m2}, fusion.WeightedAverage)

	require.Equal(t, 2, res.InputCount)
	require.Empty(t, res.Estimates)
}

func TestKalmanConvergence(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	// Identical measurements shrink the state covariance monotonically.
	var group []sensing.Measurement
	prev := math.Inf(1)
	for n := 2; n <= 30; n++ {
		group = group[:0]
		for i := 0; i < n; i++ {
			group = append(group, meas("A", 5.0, 0.5, time.Duration(i)*time.Second))
		}

		res := e.Fuse(context.Background(), group, fusion.KalmanFilter)
		est := res.Estimates["magnetic_field"]

		require.InDelta(t, 5.0, est.Value, 1e-9)
		cov := est.Details["stateCovariance"]
		require.Less(t, cov, prev)
		prev = cov
	}

	// Converging toward zero.
	require.Less(t, prev, 0.01)
}

func TestKalmanExposesGain(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 5.0, 0.5, 0),
		meas("B", 6.0, 0.5, time.Second),
	}, fusion.KalmanFilter)

	est := res.Estimates["magnetic_field"]
	require.Contains(t, est.Details, "kalmanGain")
	require.Greater(t, est.Details["kalmanGain"], 0.0)
	require.Less(t, est.Details["kalmanGain"], 1.0)
}

func TestKalmanReinitializesAfterInfiniteVariance(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 99.0, math.Inf(1), 0),
		meas("B", 10.0, 0.1, time.Second),
		meas("C", 10.5, 0.2, 2*time.Second),
	}, fusion.KalmanFilter)

	est := res.Estimates["magnetic_field"]
	require.False(t, math.IsNaN(est.Value))
	require.False(t, math.IsNaN(est.Uncertainty))

	// The uninformative prior is discarded: the state re-initializes at
	// 10.0 (var 0.01) and one update with 10.5 (var 0.04) lands near the
	// inverse-variance blend.
	require.InDelta(t, 10.1, est.Value, 0.01)
	require.Less(t, est.Uncertainty, 0.1)
	require.Less(t, est.Details["kalmanGain"], 1.0)
}

func TestBayesianMatchesPrecisionWeighting(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 10.0, 0.1, 0),
		meas("B", 10.5, 0.2, time.Second),
	}, fusion.BayesianFusion)

	est := res.Estimates["magnetic_field"]
	require.InDelta(t, 10.1, est.Value, 1e-12)
	require.InDelta(t, 1/math.Sqrt(125), est.Uncertainty, 1e-12)
}

func TestBayesianSkipsInvalidUncertainty(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		meas("A", 3.0, 0, 0), // prior without precision
		meas("B", 10.0, 0.1, time.Second),
	}, fusion.BayesianFusion)

	est := res.Estimates["magnetic_field"]
	require.Empty(t, est.Error)
	require.InDelta(t, 10.0, est.Value, 1e-12)
}

func TestQuantumConsensusDelegatesWithoutFidelity(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		withFidelity(meas("A", 10.0, 0.1, 0), 0.95),
		meas("B", 10.5, 0.2, time.Second),
	}, fusion.QuantumConsensus)

	// Only one measurement carries fidelity: weighted average semantics.
	est := res.Estimates["magnetic_field"]
	require.InDelta(t, 10.1, est.Value, 1e-12)
	require.NotContains(t, est.Details, "meanFidelity")
}

func TestQuantumConsensusFidelityWeighting(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{})

	res := e.Fuse(context.Background(), []sensing.Measurement{
		withFidelity(meas("A", 10.0, 0.1, 0), 0.9),
		withFidelity(meas("B", 12.0, 0.1, time.Second), 0.6),
	}, fusion.QuantumConsensus)

	est := res.Estimates["magnetic_field"]

	// Weights 0.81 and 0.36 normalized.
	want := (0.81*10.0 + 0.36*12.0) / 1.17
	require.InDelta(t, want, est.Value, 1e-12)
	require.InDelta(t, 0.75, est.Confidence, 1e-12) // mean fidelity
	require.InDelta(t, 0.75, est.Details["meanFidelity"], 1e-12)
}

func TestHistoryBounded(t *testing.T) {
	e := fusion.NewEngine(fusion.Options{HistoryCapacity: 3})

	for i := 0; i < 7; i++ {
		e.Fuse(context.Background(), []sensing.Measurement{
			meas("A", 1, 0.1, 0),
			meas("B", 2, 0.1, 0),
		}, fusion.WeightedAverage)
	}
	require.Len(t, e.History(), 3)
}
