// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package monitor

import (
	"math"
	"strings"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// Fixed latency terms by platform class, in seconds. Satellite links carry a
// larger fixed cost than ground links.
const (
	satelliteLatency = 0.25
	groundLatency    = 0.01
)

// distance is the Euclidean separation over (lat, lon, alt/1000). Altitude is
// scaled down so high-orbit platforms still qualify for proximity linking
// with their ground neighborhood.
func distance(a, b sensing.Location) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	dAlt := (a.Alt - b.Alt) / 1000
	return math.Sqrt(dLat*dLat + dLon*dLon + dAlt*dAlt)
}

// platformLatency is the fixed term for a link between two platforms.
func platformLatency(a, b string) float64 {
	if isSatellite(a) || isSatellite(b) {
		return satelliteLatency
	}
	return groundLatency
}

func isSatellite(platform string) bool {
	return strings.Contains(strings.ToLower(platform), "satellite")
}
