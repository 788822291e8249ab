// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package fusion

import (
	"math"
	"sort"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// fuseKalman runs a sequential scalar Kalman filter over the measurements in
// timestamp order. The state initializes to the first measurement with a
// finite variance; each subsequent step predicts with the configured process
// noise and updates with the standard gain.
func (e *Engine) fuseKalman(group []sensing.Measurement) Estimate {
	sorted := make([]sensing.Measurement, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	state := sorted[0].Value
	variance := sorted[0].Uncertainty * sorted[0].Uncertainty

	var gain float64
	for _, m := range sorted[1:] {
		measVar := m.Uncertainty * m.Uncertainty

		// An infinite prior variance carries no information; the next
		// finite-uncertainty measurement re-initializes the state rather
		// than producing a NaN gain.
		if math.IsInf(variance, 1) {
			if math.IsInf(measVar, 1) {
				continue
			}
			state = m.Value
			variance = measVar
			gain = 1
			continue
		}

		predicted := variance + e.processNoise
		gain = predicted / (predicted + measVar)
		state += gain * (m.Value - state)
		variance = (1 - gain) * predicted
	}

	uncertainty := math.Sqrt(variance)
	return Estimate{
		Value:       state,
		Uncertainty: uncertainty,
		Confidence:  1 / (1 + uncertainty),
		Sensors:     sensorIDs(sorted),
		Details: map[string]float64{
			"kalmanGain":      gain,
			"stateCovariance": variance,
		},
	}
}
