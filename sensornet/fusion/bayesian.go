// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package fusion

import (
	"math"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// fuseBayesian treats the first measurement as the prior and sequentially
// folds in the remainder as precision-weighted updates. Measurements with a
// non-positive uncertainty are skipped without contributing precision.
func fuseBayesian(group []sensing.Measurement) Estimate {
	mean := group[0].Value
	precision := 0.0
	if group[0].Uncertainty > 0 {
		precision = 1 / (group[0].Uncertainty * group[0].Uncertainty)
	}

	for _, m := range group[1:] {
		if m.Uncertainty <= 0 {
			continue
		}
		p := 1 / (m.Uncertainty * m.Uncertainty)
		post := precision + p
		mean = (mean*precision + m.Value*p) / post
		precision = post
	}

	uncertainty := math.Inf(1)
	if precision > 0 {
		uncertainty = 1 / math.Sqrt(precision)
	}

	return Estimate{
		Value:       mean,
		Uncertainty: uncertainty,
		Confidence:  precision / (precision + 1),
		Sensors:     sensorIDs(group),
		Details:     map[string]float64{"posteriorPrecision": precision},
	}
}
