// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package fusion

import (
	"math"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// fuseQuantumConsensus weights measurements by the square of their
// paired-correlation fidelity. With fewer than two fidelity-carrying
// measurements it delegates entirely to the weighted average.
func fuseQuantumConsensus(group []sensing.Measurement) (Estimate, error) {
	coherent := make([]sensing.Measurement, 0, len(group))
	for _, m := range group {
		if m.Decoherence != nil {
			coherent = append(coherent, m)
		}
	}
	if len(coherent) < 2 {
		return fuseWeightedAverage(group)
	}

	var sumW, sumFid float64
	weights := make([]float64, len(coherent))
	for i, m := range coherent {
		f := m.Decoherence.Fidelity
		weights[i] = f * f
		sumW += weights[i]
		sumFid += f
	}
	meanFid := sumFid / float64(len(coherent))

	// Degenerate fidelities carry no signal; fall back to the classical
	// estimator.
	if sumW == 0 {
		return fuseWeightedAverage(group)
	}

	var value float64
	for i, m := range coherent {
		weights[i] /= sumW
		value += weights[i] * m.Value
	}

	// Coherence-loss term from the value spread plus the classical
	// weighted-uncertainty term, combined as a root sum of squares.
	var mean, variance float64
	for _, m := range coherent {
		mean += m.Value
	}
	mean /= float64(len(coherent))
	for _, m := range coherent {
		d := m.Value - mean
		variance += d * d
	}
	variance /= float64(len(coherent))

	coherenceLoss := (1 - meanFid) * math.Sqrt(variance)

	var classical float64
	for i, m := range coherent {
		t := weights[i] * m.Uncertainty
		classical += t * t
	}

	return Estimate{
		Value:       value,
		Uncertainty: math.Sqrt(coherenceLoss*coherenceLoss + classical),
		Confidence:  meanFid,
		Sensors:     sensorIDs(coherent),
		Details:     map[string]float64{"meanFidelity": meanFid},
	}, nil
}
