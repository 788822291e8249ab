// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package sensornet assembles the sensor registry, the dual topology graphs,
// the fusion engine, the anomaly detector, and the monitoring orchestrator
// into a single deployable network.
package sensornet

import (
	"context"
	"log/slog"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/container"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/iso"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/anomaly"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/monitor"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/topology"
)

type (
	// Network is the top-level entry point. It owns every deployed sensor
	// and the processing pipeline over them.
	Network struct {
		sensors  container.SyncMap[string, *sensing.Sensor]
		topo     *topology.Manager
		engine   *fusion.Engine
		detector *anomaly.Detector
		orch     *monitor.Orchestrator
		logger   log.Logger
		slogger  *slog.Logger
	}

	// Options configures a network. Zero values select the documented
	// defaults throughout.
	Options struct {
		Monitor monitor.Options
		Fusion  fusion.Options
		Anomaly anomaly.Options
		Logger  *slog.Logger
	}

	// SensorConfig describes one sensor to deploy.
	SensorConfig struct {
		SensorID   string
		SensorType string
		Platform   string
		Location   sensing.Location

		SamplingRateHz float64

		Specs sensing.Calibration

		// HistoryCapacity bounds the sensor's measurement history.
		HistoryCapacity int

		// Source overrides the sensor's signal source. Leave nil for the
		// default synthetic source.
		Source sensing.SignalSource
	}

	// Connection describes one edge to establish between deployed sensors.
	Connection struct {
		Sensor1 string `toml:"sensor1" json:"sensor1"`
		Sensor2 string `toml:"sensor2" json:"sensor2"`
		Type    string `toml:"type"    json:"type"`

		Latency   float64 `toml:"latency"   json:"latencyS"`
		Bandwidth float64 `toml:"bandwidth" json:"bandwidthMbps"`
		Fidelity  float64 `toml:"fidelity"  json:"fidelity"`
	}

	// SensorStatus is one sensor's row in a network status snapshot.
	SensorStatus struct {
		Status          string           `json:"status"`
		SensorType      string           `json:"sensorType"`
		Platform        string           `json:"platform"`
		Location        sensing.Location `json:"location"`
		MeasurementType string           `json:"measurementType"`
		HealthScore     float64          `json:"healthScore"`
		Fidelity        float64          `json:"fidelity"`
		Partners        []string         `json:"entangledPartners"`
	}

	// SensorSummary aggregates the registry.
	SensorSummary struct {
		Total     int            `json:"total"`
		ByStatus  map[string]int `json:"byStatus"`
		AvgHealth float64        `json:"avgHealth"`
	}

	// DataStreams reports the bounded buffer sizes.
	DataStreams struct {
		Measurements int `json:"measurements"`
		Fusions      int `json:"fusionResults"`
		Alerts       int `json:"anomalyAlerts"`
	}

	// Status is a point-in-time snapshot of the whole network.
	Status struct {
		Timestamp iso.DateTime `json:"timestamp"`

		Sensors       SensorSummary    `json:"sensorSummary"`
		Communication topology.Metrics `json:"communicationTopology"`
		Correlation   topology.Metrics `json:"correlationTopology"`
		Streams       DataStreams      `json:"dataStreamSizes"`

		RecentFusions   []fusion.Result         `json:"recentFusions"`
		RecentAnomalies []anomaly.Alert         `json:"recentAnomalies"`
		PerSensor       map[string]SensorStatus `json:"sensors"`
	}
)

const (
	// Connection type values accepted by EstablishConnections.
	ConnectionCommunication = "communication"
	ConnectionCorrelation   = "correlation"

	recentFusionCount  = 10
	recentAnomalyCount = 20
)

// New creates an empty network.
func New(opt Options) *Network {
	logger := log.Wrap(opt.Logger)
	fopt := opt.Fusion
	if fopt.Logger == nil {
		fopt.Logger = opt.Logger
	}
	aopt := opt.Anomaly
	if aopt.Logger == nil {
		aopt.Logger = opt.Logger
	}
	mopt := opt.Monitor
	if mopt.Logger == nil {
		mopt.Logger = opt.Logger
	}

	n := &Network{
		sensors:  container.NewSyncMap[string, *sensing.Sensor](),
		topo:     topology.NewManager(opt.Logger),
		engine:   fusion.NewEngine(fopt),
		detector: anomaly.NewDetector(aopt),
		logger:   logger,
		slogger:  opt.Logger,
	}
	n.orch = monitor.New(n, n.topo, n.engine, n.detector, mopt)
	return n
}

// DeploySensor creates a sensor from the given configuration, calibrates it
// immediately, and registers it as a node in both topology graphs. It returns
// the deployed sensor's ID.
func (n *Network) DeploySensor(
	ctx context.Context,
	cfg SensorConfig,
) (string, error) {
	if cfg.SensorID == "" {
		return "", &errors.Error{
			Message:       "sensor ID must not be empty",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "SensorID",
			PropertyValue: cfg.SensorID,
		}
	}
	if cfg.SensorType == "" {
		return "", &errors.Error{
			Message:       "sensor type must not be empty",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "SensorType",
			PropertyValue: cfg.SensorType,
		}
	}
	if _, ok := n.sensors.Load(cfg.SensorID); ok {
		return "", &errors.Error{
			Message:  "sensor already deployed",
			Kind:     errors.ConfigurationInvalid,
			SensorID: cfg.SensorID,
		}
	}

	s := sensing.New(
		cfg.SensorID,
		cfg.SensorType,
		cfg.Platform,
		cfg.Location,
		cfg.SamplingRateHz,
		sensing.Options{
			Specs:           cfg.Specs,
			HistoryCapacity: cfg.HistoryCapacity,
			Source:          cfg.Source,
			Logger:          n.slogger,
		},
	)
	n.sensors.Store(cfg.SensorID, s)
	n.topo.AddNode(cfg.SensorID)

	n.logger.Info(ctx, "sensor deployed",
		slog.String("sensorId", cfg.SensorID),
		slog.String("sensorType", cfg.SensorType),
		slog.String("platform", cfg.Platform),
	)
	return cfg.SensorID, nil
}

// EstablishConnections applies the given connections to the topology.
// Connections that reference unknown sensors, carry an unknown type, or
// exceed a sensor's pairing capacity are skipped with a warning rather than
// failing the batch. It returns how many connections were established.
func (n *Network) EstablishConnections(
	ctx context.Context,
	conns []Connection,
) int {
	established := 0
	for _, c := range conns {
		if n.establish(ctx, c) {
			established++
		}
	}
	return established
}

func (n *Network) establish(ctx context.Context, c Connection) bool {
	a, okA := n.sensors.Load(c.Sensor1)
	b, okB := n.sensors.Load(c.Sensor2)
	if !okA || !okB {
		n.logger.Warn(ctx, "connection references unknown sensor; skipping",
			slog.String("sensor1", c.Sensor1),
			slog.String("sensor2", c.Sensor2),
		)
		return false
	}

	switch c.Type {
	case ConnectionCommunication:
		if err := n.topo.AddCommunicationEdge(
			c.Sensor1, c.Sensor2, c.Latency, c.Bandwidth,
		); err != nil {
			n.logger.Err(ctx, err)
			return false
		}
	case ConnectionCorrelation:
		if !a.EstablishPairedCorrelation(c.Sensor2) {
			n.logger.Warn(ctx, "pairing capacity reached; skipping",
				slog.String("sensorId", c.Sensor1),
			)
			return false
		}
		if !b.EstablishPairedCorrelation(c.Sensor1) {
			// Free the slot taken on the first sensor so a skipped
			// connection leaves no one-sided pairing behind.
			a.DropPairedCorrelation(c.Sensor2)
			n.logger.Warn(ctx, "pairing capacity reached; skipping",
				slog.String("sensorId", c.Sensor2),
			)
			return false
		}
		fidelity := c.Fidelity
		if fidelity <= 0 {
			fidelity = min(a.Fidelity(), b.Fidelity())
		}
		if err := n.topo.AddCorrelationEdge(
			c.Sensor1, c.Sensor2, fidelity,
		); err != nil {
			n.logger.Err(ctx, err)
			return false
		}
	default:
		n.logger.Warn(ctx, "unknown connection type; skipping",
			slog.String("type", c.Type),
		)
		return false
	}
	return true
}

// Sensor returns a deployed sensor by ID.
func (n *Network) Sensor(id string) (*sensing.Sensor, bool) {
	return n.sensors.Load(id)
}

// Sensors returns all deployed sensors.
func (n *Network) Sensors() []*sensing.Sensor {
	out := make([]*sensing.Sensor, 0, n.sensors.Len())
	n.sensors.Range(func(_ string, s *sensing.Sensor) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Topology exposes the network's topology manager.
func (n *Network) Topology() *topology.Manager {
	return n.topo
}

// Fusion exposes the network's fusion engine.
func (n *Network) Fusion() *fusion.Engine {
	return n.engine
}

// OnFusion registers a callback invoked with each fusion pass result. Must
// be called before Start.
func (n *Network) OnFusion(fn func(fusion.Result)) {
	n.orch.OnFusion(fn)
}

// OnAlert registers a callback invoked with each anomaly alert. Must be
// called before Start.
func (n *Network) OnAlert(fn func(anomaly.Alert)) {
	n.orch.OnAlert(fn)
}

// Start launches the monitoring loops.
func (n *Network) Start(ctx context.Context) error {
	return n.orch.Start(ctx)
}

// Shutdown stops the monitoring loops and places all sensors in standby.
func (n *Network) Shutdown(ctx context.Context) error {
	return n.orch.Shutdown(ctx)
}

// Fuse runs a single on-demand fusion pass over the given measurements.
func (n *Network) Fuse(
	ctx context.Context,
	measurements []sensing.Measurement,
	algorithm fusion.Algorithm,
) fusion.Result {
	return n.engine.Fuse(ctx, measurements, algorithm)
}

// GetNetworkStatus captures a point-in-time snapshot of the network: sensor
// summary, both topology metrics, buffer sizes, the most recent fusion
// results and anomaly alerts, and a per-sensor status table.
func (n *Network) GetNetworkStatus() Status {
	byStatus := map[string]int{}
	perSensor := map[string]SensorStatus{}
	total, healthSum := 0, 0.0

	n.sensors.Range(func(id string, s *sensing.Sensor) bool {
		status := s.Status().String()
		byStatus[status]++
		total++
		health := s.HealthScore()
		healthSum += health
		perSensor[id] = SensorStatus{
			Status:          status,
			SensorType:      s.Type(),
			Platform:        s.Platform(),
			Location:        s.Location(),
			MeasurementType: s.MeasurementType(),
			HealthScore:     health,
			Fidelity:        s.Fidelity(),
			Partners:        s.Partners(),
		}
		return true
	})

	avgHealth := 0.0
	if total > 0 {
		avgHealth = healthSum / float64(total)
	}

	return Status{
		Timestamp: iso.DateTime(wallclock.Instance.Now()),
		Sensors: SensorSummary{
			Total:     total,
			ByStatus:  byStatus,
			AvgHealth: avgHealth,
		},
		Communication: n.topo.Metrics(topology.Communication),
		Correlation:   n.topo.Metrics(topology.Correlation),
		Streams: DataStreams{
			Measurements: n.orch.MeasurementCount(),
			Fusions:      n.engine.Count(),
			Alerts:       n.orch.AlertCount(),
		},
		RecentFusions:   n.engine.Recent(recentFusionCount),
		RecentAnomalies: n.orch.RecentAlerts(recentAnomalyCount),
		PerSensor:       perSensor,
	}
}
