// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensornet_test

import (
	"context"
	"testing"
	"time"

	sensornet "github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/monitor"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/topology"
	"github.com/stretchr/testify/require"
)

// steadySource returns a constant value.
type steadySource float64

func (s steadySource) Sample(string, map[string]float64) float64 {
	return float64(s)
}

func magnetometer(id string, loc sensing.Location) sensornet.SensorConfig {
	return sensornet.SensorConfig{
		SensorID:       id,
		SensorType:     "quantum_magnetometer",
		Platform:       "ground_station",
		Location:       loc,
		SamplingRateHz: 10,
		Specs: sensing.Calibration{
			Sensitivity: 1,
			NoiseFloor:  0.05,
		},
		Source: steadySource(50),
	}
}

func TestDeploySensor(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	id, err := n.DeploySensor(ctx, magnetometer("mag-01", sensing.Location{}))
	require.NoError(t, err)
	require.Equal(t, "mag-01", id)

	s, ok := n.Sensor("mag-01")
	require.True(t, ok)
	require.Equal(t, sensing.Active, s.Status())
	require.NotNil(t, s.Calibration())
	require.True(t, s.Calibration().Valid())
	require.Equal(t, []string{"mag-01"}, n.Topology().Nodes())
}

func TestDeploySensorInvalidConfig(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	_, err := n.DeploySensor(ctx, sensornet.SensorConfig{
		SensorType: "quantum_magnetometer",
	})
	require.True(t, errors.Is(err, errors.ConfigurationInvalid))

	_, err = n.DeploySensor(ctx, sensornet.SensorConfig{SensorID: "mag-01"})
	require.True(t, errors.Is(err, errors.ConfigurationInvalid))

	_, err = n.DeploySensor(ctx, magnetometer("mag-01", sensing.Location{}))
	require.NoError(t, err)
	_, err = n.DeploySensor(ctx, magnetometer("mag-01", sensing.Location{}))
	require.True(t, errors.Is(err, errors.ConfigurationInvalid))
}

func TestEstablishConnections(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	for _, id := range []string{"a", "b", "c"} {
		_, err := n.DeploySensor(ctx, magnetometer(id, sensing.Location{}))
		require.NoError(t, err)
	}

	established := n.EstablishConnections(ctx, []sensornet.Connection{
		{Sensor1: "a", Sensor2: "b", Type: sensornet.ConnectionCommunication, Latency: 0.01, Bandwidth: 100},
		{Sensor1: "b", Sensor2: "c", Type: sensornet.ConnectionCorrelation, Fidelity: 0.97},
		{Sensor1: "a", Sensor2: "ghost", Type: sensornet.ConnectionCommunication},
		{Sensor1: "a", Sensor2: "c", Type: "telepathy"},
	})
	require.Equal(t, 2, established)

	require.True(t, n.Topology().HasCommunicationEdge("a", "b"))
	require.False(t, n.Topology().HasCommunicationEdge("a", "c"))

	b, _ := n.Sensor("b")
	c, _ := n.Sensor("c")
	require.Equal(t, []string{"c"}, b.Partners())
	require.Equal(t, []string{"b"}, c.Partners())

	corr := n.Topology().Metrics(topology.Correlation)
	require.Equal(t, 1, corr.Edges)
}

func TestEstablishConnectionsPairingCapacity(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	for _, id := range []string{"hub", "p1", "p2", "p3", "p4"} {
		_, err := n.DeploySensor(ctx, magnetometer(id, sensing.Location{}))
		require.NoError(t, err)
	}

	conns := make([]sensornet.Connection, 0, 4)
	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		conns = append(conns, sensornet.Connection{
			Sensor1: "hub", Sensor2: p,
			Type: sensornet.ConnectionCorrelation, Fidelity: 0.95,
		})
	}

	// The hub saturates at three paired partners; the fourth is skipped.
	require.Equal(t, 3, n.EstablishConnections(ctx, conns))
	hub, _ := n.Sensor("hub")
	require.Len(t, hub.Partners(), 3)
}

func TestEstablishConnectionsRollsBackOneSidedPairing(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	for _, id := range []string{"a", "b", "x1", "x2", "x3"} {
		_, err := n.DeploySensor(ctx, magnetometer(id, sensing.Location{}))
		require.NoError(t, err)
	}

	// Saturate b's three pairing slots.
	require.Equal(t, 3, n.EstablishConnections(ctx, []sensornet.Connection{
		{Sensor1: "b", Sensor2: "x1", Type: sensornet.ConnectionCorrelation, Fidelity: 0.95},
		{Sensor1: "b", Sensor2: "x2", Type: sensornet.ConnectionCorrelation, Fidelity: 0.95},
		{Sensor1: "b", Sensor2: "x3", Type: sensornet.ConnectionCorrelation, Fidelity: 0.95},
	}))

	// a has room, b does not: the connection is skipped and must not leave
	// a one-sided partner entry on a.
	require.Equal(t, 0, n.EstablishConnections(ctx, []sensornet.Connection{
		{Sensor1: "a", Sensor2: "b", Type: sensornet.ConnectionCorrelation, Fidelity: 0.95},
	}))

	a, _ := n.Sensor("a")
	b, _ := n.Sensor("b")
	require.Empty(t, a.Partners())
	require.Len(t, b.Partners(), 3)
	require.Equal(t, 3, n.Topology().Metrics(topology.Correlation).Edges)
}

func TestFuseOnDemand(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})
	now := time.Now()

	result := n.Fuse(ctx, []sensing.Measurement{
		{
			SensorID: "a", Type: "magnetic_field",
			Value: 10.0, Uncertainty: 0.1, Timestamp: now,
		},
		{
			SensorID: "b", Type: "magnetic_field",
			Value: 10.5, Uncertainty: 0.2, Timestamp: now,
		},
	}, fusion.WeightedAverage)

	require.Len(t, result.Estimates, 1)
	est := result.Estimates["magnetic_field"]
	require.InDelta(t, 10.1, est.Value, 1e-9)
	require.InDelta(t, 0.0894, est.Uncertainty, 1e-4)
	require.ElementsMatch(t, []string{"a", "b"}, est.Sensors)
	require.Equal(t, 1, n.Fusion().Count())
}

func TestNetworkStatusSnapshot(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{})

	for _, id := range []string{"a", "b", "c"} {
		_, err := n.DeploySensor(ctx, magnetometer(id, sensing.Location{}))
		require.NoError(t, err)
	}
	n.EstablishConnections(ctx, []sensornet.Connection{
		{Sensor1: "a", Sensor2: "b", Type: sensornet.ConnectionCommunication, Latency: 0.01, Bandwidth: 100},
	})
	b, _ := n.Sensor("b")
	b.SetStatus(sensing.Maintenance)

	status := n.GetNetworkStatus()

	require.Equal(t, 3, status.Sensors.Total)
	require.Equal(t, 2, status.Sensors.ByStatus["ACTIVE"])
	require.Equal(t, 1, status.Sensors.ByStatus["MAINTENANCE"])
	require.InDelta(t, 1.0, status.Sensors.AvgHealth, 1e-9)

	require.Equal(t, 3, status.Communication.Nodes)
	require.Equal(t, 1, status.Communication.Edges)
	require.Equal(t, 0, status.Correlation.Edges)

	require.Len(t, status.PerSensor, 3)
	require.Equal(t, "MAINTENANCE", status.PerSensor["b"].Status)
	require.Equal(t, "magnetic_field", status.PerSensor["a"].MeasurementType)
	require.Empty(t, status.RecentFusions)
	require.Empty(t, status.RecentAnomalies)
	require.False(t, time.Time(status.Timestamp).IsZero())
}

// End to end: deploy a small network, run the loops briefly, and confirm
// measurements flow into fused estimates and the status snapshot.
func TestNetworkEndToEnd(t *testing.T) {
	ctx := context.Background()
	n := sensornet.New(sensornet.Options{
		Monitor: monitor.Options{
			CollectionPeriod: time.Millisecond,
			FusionPeriod:     5 * time.Millisecond,
			AnomalyPeriod:    time.Hour,
			TopologyPeriod:   time.Hour,
		},
	})

	_, err := n.DeploySensor(ctx, magnetometer("a", sensing.Location{Lat: 1}))
	require.NoError(t, err)
	_, err = n.DeploySensor(ctx, magnetometer("b", sensing.Location{Lat: 2}))
	require.NoError(t, err)

	fused := make(chan fusion.Result, 1)
	n.OnFusion(func(r fusion.Result) {
		select {
		case fused <- r:
		default:
		}
	})

	require.NoError(t, n.Start(ctx))
	defer n.Shutdown(ctx)

	select {
	case r := <-fused:
		require.Len(t, r.Estimates, 1)
		est := r.Estimates["magnetic_field"]
		require.Empty(t, est.Error)
		require.InDelta(t, 50, est.Value, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no fusion result before timeout")
	}

	status := n.GetNetworkStatus()
	require.Positive(t, status.Streams.Measurements)
	require.Positive(t, status.Streams.Fusions)
	require.NotEmpty(t, status.RecentFusions)

	require.NoError(t, n.Shutdown(ctx))
	a, _ := n.Sensor("a")
	require.Equal(t, sensing.Standby, a.Status())
}
