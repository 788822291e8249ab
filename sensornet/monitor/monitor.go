// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package monitor drives the sensor network's continuous processing: a
// collection loop polling active sensors, a fusion loop over recent
// measurements, an anomaly scan, and a topology optimization pass. The loops
// run until shutdown; a failing iteration is logged and followed by an
// extended backoff, never loop termination. Bounded ring buffers are the
// system's sole backpressure mechanism.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/container"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/anomaly"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/topology"
)

type (
	// SensorPool exposes the managed sensors to the orchestrator.
	SensorPool interface {
		Sensors() []*sensing.Sensor
	}

	// Orchestrator owns the bounded data streams and the periodic loops.
	Orchestrator struct {
		pool     SensorPool
		topo     *topology.Manager
		engine   *fusion.Engine
		detector *anomaly.Detector

		measurements *container.Ring[sensing.Measurement]
		alerts       *container.Ring[anomaly.Alert]

		opts   Options
		logger log.Logger

		mu      sync.Mutex
		running bool
		cancel  context.CancelFunc
		loops   sync.WaitGroup

		onFusion []func(fusion.Result)
		onAlert  []func(anomaly.Alert)
	}

	// Options configures the orchestrator. Zero values select the documented
	// defaults.
	Options struct {
		CollectionPeriod time.Duration // default 100ms
		FusionPeriod     time.Duration // default 2s
		AnomalyPeriod    time.Duration // default 5s
		TopologyPeriod   time.Duration // default 300s

		// FailureBackoff is the extra sleep after a failed iteration.
		// Defaults to five times the failing loop's period.
		FailureBackoff time.Duration

		MeasurementCapacity int // default 10000
		AlertCapacity       int // default 500

		// FusionBatch is how many recent measurements each fusion pass
		// takes. Defaults to 50.
		FusionBatch int

		// AnomalyWindow is how many recent measurements each anomaly pass
		// groups. Defaults to 100.
		AnomalyWindow int

		Algorithm fusion.Algorithm

		// Topology optimization triggers and proximity linking.
		DensityFloor       float64 // default 0.3
		PathLengthCeiling  float64 // default 5.0
		ProximityThreshold float64 // default 50.0

		// Environment supplies ambient conditions to each collection pass.
		Environment func() map[string]float64

		Logger *slog.Logger
	}
)

// New creates an orchestrator over the given collaborators.
func New(
	pool SensorPool,
	topo *topology.Manager,
	engine *fusion.Engine,
	detector *anomaly.Detector,
	opt Options,
) *Orchestrator {
	if opt.CollectionPeriod <= 0 {
		opt.CollectionPeriod = 100 * time.Millisecond
	}
	if opt.FusionPeriod <= 0 {
		opt.FusionPeriod = 2 * time.Second
	}
	if opt.AnomalyPeriod <= 0 {
		opt.AnomalyPeriod = 5 * time.Second
	}
	if opt.TopologyPeriod <= 0 {
		opt.TopologyPeriod = 300 * time.Second
	}
	if opt.MeasurementCapacity <= 0 {
		opt.MeasurementCapacity = 10000
	}
	if opt.AlertCapacity <= 0 {
		opt.AlertCapacity = 500
	}
	if opt.FusionBatch <= 0 {
		opt.FusionBatch = 50
	}
	if opt.AnomalyWindow <= 0 {
		opt.AnomalyWindow = 100
	}
	if opt.DensityFloor <= 0 {
		opt.DensityFloor = 0.3
	}
	if opt.PathLengthCeiling <= 0 {
		opt.PathLengthCeiling = 5.0
	}
	if opt.ProximityThreshold <= 0 {
		opt.ProximityThreshold = 50.0
	}

	return &Orchestrator{
		pool:         pool,
		topo:         topo,
		engine:       engine,
		detector:     detector,
		measurements: container.NewRing[sensing.Measurement](opt.MeasurementCapacity),
		alerts:       container.NewRing[anomaly.Alert](opt.AlertCapacity),
		opts:         opt,
		logger:       log.Wrap(opt.Logger),
	}
}

// OnFusion registers a callback invoked after each fusion pass. Must be
// called before Start.
func (o *Orchestrator) OnFusion(fn func(fusion.Result)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onFusion = append(o.onFusion, fn)
}

// OnAlert registers a callback invoked for each new alert. Must be called
// before Start.
func (o *Orchestrator) OnAlert(fn func(anomaly.Alert)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onAlert = append(o.onAlert, fn)
}

// Start launches the four monitoring loops and returns immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return &errors.Error{
			Message:      "orchestrator already started",
			Kind:         errors.StateInvalid,
			PropertyName: "running",
		}
	}
	o.running = true

	ctx, o.cancel = context.WithCancel(context.WithoutCancel(ctx))

	o.loops.Add(4)
	go o.loop(ctx, "collection", o.opts.CollectionPeriod, o.collect)
	go o.loop(ctx, "fusion", o.opts.FusionPeriod, o.fuse)
	go o.loop(ctx, "anomaly", o.opts.AnomalyPeriod, o.scan)
	go o.loop(ctx, "topology", o.opts.TopologyPeriod, o.optimize)

	o.logger.Info(ctx, "monitoring started",
		slog.Duration("collection_period", o.opts.CollectionPeriod),
		slog.Duration("fusion_period", o.opts.FusionPeriod),
		slog.Duration("anomaly_period", o.opts.AnomalyPeriod),
		slog.Duration("topology_period", o.opts.TopologyPeriod),
	)
	return nil
}

// Shutdown cancels all loops, waits for in-flight iterations to exit, and
// transitions every managed sensor to standby. Unprocessed buffer contents
// are not flushed.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	cancel()
	o.loops.Wait()

	for _, s := range o.pool.Sensors() {
		s.SetStatus(sensing.Standby)
	}

	o.logger.Info(ctx, "monitoring stopped")
	return nil
}

// loop runs one periodic task until cancellation. Iteration failures are
// logged and followed by an extended backoff; the loop itself never
// terminates on error.
func (o *Orchestrator) loop(
	ctx context.Context,
	name string,
	period time.Duration,
	iterate func(context.Context) error,
) {
	defer o.loops.Done()

	ticker := wallclock.Instance.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		if err := iterate(ctx); err != nil {
			o.logger.Err(ctx, errors.Normalize(err, name+" iteration"))
			select {
			case <-ctx.Done():
				return
			case <-wallclock.Instance.After(o.backoff(period)):
			}
		}
	}
}

func (o *Orchestrator) backoff(period time.Duration) time.Duration {
	if o.opts.FailureBackoff > 0 {
		return o.opts.FailureBackoff
	}
	return 5 * period
}

// collect polls every active sensor once. A failure from one sensor is
// logged and skipped; it never affects the others.
func (o *Orchestrator) collect(ctx context.Context) error {
	var env map[string]float64
	if o.opts.Environment != nil {
		env = o.opts.Environment()
	}

	for _, s := range o.pool.Sensors() {
		if s.Status() != sensing.Active {
			continue
		}
		m, err := s.TakeMeasurement(ctx, env)
		if err != nil {
			o.logger.Err(ctx, err)
			continue
		}
		o.measurements.Push(m)
	}
	return nil
}

// fuse runs one fusion pass over the most recent measurements.
func (o *Orchestrator) fuse(ctx context.Context) error {
	if o.measurements.Len() < 2 {
		return nil
	}

	batch := o.measurements.Recent(o.opts.FusionBatch)
	result := o.engine.Fuse(ctx, batch, o.opts.Algorithm)

	for _, fn := range o.onFusion {
		fn(result)
	}
	return nil
}

// scan groups the recent measurement window by sensor and type and runs the
// anomaly detector per group.
func (o *Orchestrator) scan(ctx context.Context) error {
	window := o.measurements.Recent(o.opts.AnomalyWindow)
	if len(window) == 0 {
		return nil
	}

	type key struct{ sensor, mtype string }
	groups := map[key][]sensing.Measurement{}
	for _, m := range window {
		k := key{m.SensorID, m.Type}
		groups[k] = append(groups[k], m)
	}

	for _, group := range groups {
		for _, alert := range o.detector.Detect(group) {
			o.alerts.Push(alert)
			o.logger.Warn(ctx, "anomaly detected",
				slog.String("sensor_id", alert.SensorID),
				slog.String("kind", string(alert.Kind)),
				slog.String("severity", alert.Severity.String()),
			)
			for _, fn := range o.onAlert {
				fn(alert)
			}
		}
	}
	return nil
}

// optimize recomputes communication metrics and, when connectivity is poor,
// links every unlinked sensor pair within the proximity threshold.
func (o *Orchestrator) optimize(ctx context.Context) error {
	metrics := o.topo.Metrics(topology.Communication)
	if metrics.Density >= o.opts.DensityFloor &&
		metrics.AvgPathLength <= o.opts.PathLengthCeiling {
		return nil
	}

	sensors := o.pool.Sensors()
	added := 0
	for i := 0; i < len(sensors); i++ {
		for j := i + 1; j < len(sensors); j++ {
			a, b := sensors[i], sensors[j]
			if o.topo.HasCommunicationEdge(a.ID(), b.ID()) {
				continue
			}

			d := distance(a.Location(), b.Location())
			if d > o.opts.ProximityThreshold {
				continue
			}

			latency := 0.001*d + platformLatency(a.Platform(), b.Platform())
			if err := o.topo.AddCommunicationEdge(a.ID(), b.ID(), latency, 100); err != nil {
				return err
			}
			added++
		}
	}

	if added > 0 {
		o.logger.Info(ctx, "topology optimized",
			slog.Int("edges_added", added),
			slog.Float64("density", metrics.Density),
			slog.Float64("avg_path_length", metrics.AvgPathLength),
		)
	}
	return nil
}

// MeasurementCount returns the number of buffered measurements.
func (o *Orchestrator) MeasurementCount() int {
	return o.measurements.Len()
}

// AlertCount returns the number of buffered alerts.
func (o *Orchestrator) AlertCount() int {
	return o.alerts.Len()
}

// RecentMeasurements returns the most recent n measurements, oldest first.
func (o *Orchestrator) RecentMeasurements(n int) []sensing.Measurement {
	return o.measurements.Recent(n)
}

// RecentFusions returns the most recent n fusion results, oldest first.
func (o *Orchestrator) RecentFusions(n int) []fusion.Result {
	return o.engine.Recent(n)
}

// RecentAlerts returns the most recent n alerts, oldest first.
func (o *Orchestrator) RecentAlerts(n int) []anomaly.Alert {
	return o.alerts.Recent(n)
}
