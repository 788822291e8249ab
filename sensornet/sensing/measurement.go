// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type (
	// Measurement is a single timestamped reading from one sensor. It is
	// immutable after creation; downstream consumers receive copies only.
	Measurement struct {
		ID        string    `json:"id"`
		SensorID  string    `json:"sensorId"`
		Timestamp time.Time `json:"timestamp"`

		// Type tags the physical quantity, e.g. "magnetic_field".
		Type  string  `json:"measurementType"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`

		// Uncertainty is a one-sigma estimate, >= 0 and possibly +Inf.
		Uncertainty float64 `json:"uncertainty"`

		// Decoherence carries the sensor's paired-correlation state at
		// measurement time. Informational only.
		Decoherence *DecoherenceState `json:"decoherenceState,omitempty"`

		Environment map[string]float64 `json:"environmentalConditions,omitempty"`

		// Confidence is in [0, 1].
		Confidence float64 `json:"confidence"`

		ContentHash string `json:"contentHash"`
	}

	// DecoherenceState is a snapshot of a sensor's paired-correlation
	// freshness.
	DecoherenceState struct {
		Fidelity  float64  `json:"fidelity"`
		Partners  []string `json:"partners,omitempty"`
		ErrorRate float64  `json:"errorRate"`
	}
)

// contentHash derives the integrity tag from the immutable identity fields.
func contentHash(sensorID, mtype string, value float64, unit string, ts time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil,
		"%s|%s|%.17g|%s|%d", sensorID, mtype, value, unit, ts.UnixNano()))
	return hex.EncodeToString(sum[:])
}
