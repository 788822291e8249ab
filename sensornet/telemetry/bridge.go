// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package telemetry publishes fusion results and anomaly alerts over MQTT
// and answers network status requests.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/iso"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/anomaly"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
)

type (
	// Bridge connects a network to an MQTT broker: fusion results and
	// anomaly alerts flow out, and status requests are answered on their
	// response topic.
	Bridge struct {
		client  Client
		network *sensornet.Network
		topics  Topics
		logger  log.Logger
	}

	// Topics names the bridge's MQTT topics. Zero values select the
	// defaults.
	Topics struct {
		Fusions string // default "sensornet/fusions"
		Alerts  string // default "sensornet/alerts"
		Status  string // default "sensornet/status/request"
	}

	// Options configures a bridge.
	Options struct {
		Topics Topics
		Logger *slog.Logger
	}

	fusionEnvelope struct {
		Timestamp iso.DateTime               `json:"timestamp"`
		Algorithm string                     `json:"algorithm"`
		Inputs    int                        `json:"inputCount"`
		Estimates map[string]fusion.Estimate `json:"estimates"`
	}

	alertEnvelope struct {
		Timestamp iso.DateTime  `json:"timestamp"`
		Alert     anomaly.Alert `json:"alert"`
	}
)

// New creates a bridge over an MQTT client. Start must be called before
// the network starts so the callbacks register in time.
func New(client Client, network *sensornet.Network, opt Options) *Bridge {
	topics := opt.Topics
	if topics.Fusions == "" {
		topics.Fusions = "sensornet/fusions"
	}
	if topics.Alerts == "" {
		topics.Alerts = "sensornet/alerts"
	}
	if topics.Status == "" {
		topics.Status = "sensornet/status/request"
	}
	return &Bridge{
		client:  client,
		network: network,
		topics:  topics,
		logger:  log.Wrap(opt.Logger),
	}
}

// Start registers the outbound callbacks and subscribes to status requests.
func (b *Bridge) Start(ctx context.Context) error {
	b.network.OnFusion(func(r fusion.Result) {
		b.publishFusion(context.Background(), r)
	})
	b.network.OnAlert(func(a anomaly.Alert) {
		b.publishAlert(context.Background(), a)
	})
	return b.client.Subscribe(ctx, b.topics.Status, b.handleStatusRequest)
}

func (b *Bridge) publishFusion(ctx context.Context, r fusion.Result) {
	payload, err := json.Marshal(fusionEnvelope{
		Timestamp: iso.DateTime(r.Timestamp),
		Algorithm: r.Algorithm.String(),
		Inputs:    r.InputCount,
		Estimates: r.Estimates,
	})
	if err != nil {
		b.logger.Err(ctx, err)
		return
	}
	if err := b.client.Publish(ctx, &Message{
		Topic:   b.topics.Fusions,
		Payload: payload,
	}); err != nil {
		b.logger.Err(ctx, err, slog.String("topic", b.topics.Fusions))
	}
}

func (b *Bridge) publishAlert(ctx context.Context, a anomaly.Alert) {
	payload, err := json.Marshal(alertEnvelope{
		Timestamp: iso.DateTime(a.Timestamp),
		Alert:     a,
	})
	if err != nil {
		b.logger.Err(ctx, err)
		return
	}
	if err := b.client.Publish(ctx, &Message{
		Topic:   b.topics.Alerts,
		Payload: payload,
	}); err != nil {
		b.logger.Err(ctx, err, slog.String("topic", b.topics.Alerts))
	}
}

// handleStatusRequest answers a request on its response topic, echoing the
// request's correlation data. Requests without a response topic are ignored.
func (b *Bridge) handleStatusRequest(ctx context.Context, msg *Message) {
	if msg.ResponseTopic == "" {
		b.logger.Warn(ctx, "status request without response topic; ignoring")
		return
	}

	status := b.network.GetNetworkStatus()
	payload, err := json.Marshal(status)
	if err != nil {
		b.logger.Err(ctx, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, &Message{
		Topic:           msg.ResponseTopic,
		Payload:         payload,
		CorrelationData: msg.CorrelationData,
	}); err != nil {
		b.logger.Err(ctx, err, slog.String("topic", msg.ResponseTopic))
	}
}
