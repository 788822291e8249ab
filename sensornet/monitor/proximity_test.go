package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

func TestDistanceScalesAltitude(t *testing.T) {
	a := sensing.Location{Lat: 0, Lon: 0, Alt: 0}
	b := sensing.Location{Lat: 3, Lon: 4, Alt: 0}
	require.InDelta(t, 5.0, distance(a, b), 1e-12)

	// 1000 altitude units contribute as one lat/lon unit.
	c := sensing.Location{Lat: 0, Lon: 0, Alt: 1000}
	require.InDelta(t, 1.0, distance(a, c), 1e-12)
}

func TestPlatformLatency(t *testing.T) {
	require.Equal(t, groundLatency, platformLatency("ground_station", "mobile_unit"))
	require.Equal(t, satelliteLatency, platformLatency("satellite_leo", "ground_station"))
	require.Equal(t, satelliteLatency, platformLatency("ground_station", "Satellite"))
}
