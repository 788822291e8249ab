// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Command sensornetd runs a sensor network from a TOML deployment file,
// optionally bridging fusion results, anomaly alerts, and status requests
// over MQTT.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/config"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/telemetry"
	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "deployment.toml", "deployment file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
	}))

	if err := run(log, *configPath); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opt := cfg.NetworkOptions()
	opt.Logger = log
	network := sensornet.New(opt)

	for _, sc := range cfg.SensorConfigs() {
		if _, err := network.DeploySensor(ctx, sc); err != nil {
			return err
		}
	}
	established := network.EstablishConnections(ctx, cfg.ConnectionList())
	log.Info("network deployed",
		"sensors", len(cfg.Sensors),
		"connections", established,
	)

	var client *telemetry.PahoClient
	if cfg.Network.Broker != "" {
		client, err = connectBroker(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		bridge := telemetry.New(client, network, telemetry.Options{
			Logger: log,
		})
		if err := bridge.Start(ctx); err != nil {
			return err
		}
		log.Info("telemetry bridge connected", "broker", cfg.Network.Broker)
	}

	if err := network.Start(ctx); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return network.Shutdown(shutdownCtx)
}

func connectBroker(
	ctx context.Context,
	cfg *config.Config,
) (*telemetry.PahoClient, error) {
	clientID := cfg.Network.ClientID
	if clientID == "" {
		clientID = "sensornetd"
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Network.Broker)
	if err != nil {
		return nil, err
	}

	client := telemetry.NewPahoClient(conn, clientID)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
