// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config loads a sensor network deployment from a TOML file.
package config

import (
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/iso"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/anomaly"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/fusion"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/monitor"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

type (
	// Config is the root of a deployment file.
	Config struct {
		Network     Network      `toml:"network"`
		Sensors     []Sensor     `toml:"sensors"`
		Connections []Connection `toml:"connections"`
	}

	// Network holds the network-wide settings. Durations use ISO 8601
	// notation, e.g. "PT0.1S".
	Network struct {
		FusionAlgorithm  string  `toml:"fusion-algorithm"`
		AnomalyThreshold float64 `toml:"anomaly-threshold"`

		CollectionPeriod iso.Duration `toml:"collection-period"`
		FusionPeriod     iso.Duration `toml:"fusion-period"`
		AnomalyPeriod    iso.Duration `toml:"anomaly-period"`
		TopologyPeriod   iso.Duration `toml:"topology-period"`

		MeasurementCapacity int `toml:"measurement-capacity"`
		AlertCapacity       int `toml:"alert-capacity"`
		FusionHistory       int `toml:"fusion-history"`

		Broker   string `toml:"broker"`
		ClientID string `toml:"client-id"`
	}

	// Sensor describes one sensor to deploy.
	Sensor struct {
		ID             string     `toml:"id"`
		Type           string     `toml:"type"`
		Platform       string     `toml:"platform"`
		Location       [3]float64 `toml:"location"`
		SamplingRateHz float64    `toml:"sampling-rate-hz"`

		Calibration Calibration `toml:"calibration"`
	}

	// Calibration carries a sensor's factory specs.
	Calibration struct {
		Sensitivity              float64 `toml:"sensitivity"`
		DynamicRange             float64 `toml:"dynamic-range"`
		NoiseFloor               float64 `toml:"noise-floor"`
		TemperatureCoefficient   float64 `toml:"temperature-coefficient"`
		MagneticFieldSensitivity float64 `toml:"magnetic-field-sensitivity"`
		VibrationSensitivity     float64 `toml:"vibration-sensitivity"`
		QuantumEfficiency        float64 `toml:"quantum-efficiency"`

		CoherenceTime iso.Duration `toml:"coherence-time"`
		MaxAge        iso.Duration `toml:"max-age"`

		FrequencyResponse map[string]float64 `toml:"frequency-response"`
	}

	// Connection mirrors sensornet.Connection in TOML form.
	Connection struct {
		Sensor1   string  `toml:"sensor1"`
		Sensor2   string  `toml:"sensor2"`
		Type      string  `toml:"type"`
		Latency   float64 `toml:"latency"`
		Bandwidth float64 `toml:"bandwidth"`
		Fidelity  float64 `toml:"fidelity"`
	}
)

// Load reads and validates a deployment file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, &errors.Error{
			Message:       "invalid deployment file",
			Kind:          errors.ConfigurationInvalid,
			NestedError:   err,
			PropertyName:  "path",
			PropertyValue: path,
		}
	}
	seen := map[string]struct{}{}
	for _, s := range cfg.Sensors {
		if s.ID == "" {
			return nil, &errors.Error{
				Message:      "sensor ID must not be empty",
				Kind:         errors.ConfigurationInvalid,
				PropertyName: "sensors.id",
			}
		}
		if _, dup := seen[s.ID]; dup {
			return nil, &errors.Error{
				Message:  "duplicate sensor ID",
				Kind:     errors.ConfigurationInvalid,
				SensorID: s.ID,
			}
		}
		seen[s.ID] = struct{}{}
	}
	return &cfg, nil
}

// NetworkOptions translates the file into network options.
func (c *Config) NetworkOptions() sensornet.Options {
	return sensornet.Options{
		Monitor: monitor.Options{
			CollectionPeriod:    time.Duration(c.Network.CollectionPeriod),
			FusionPeriod:        time.Duration(c.Network.FusionPeriod),
			AnomalyPeriod:       time.Duration(c.Network.AnomalyPeriod),
			TopologyPeriod:      time.Duration(c.Network.TopologyPeriod),
			MeasurementCapacity: c.Network.MeasurementCapacity,
			AlertCapacity:       c.Network.AlertCapacity,
			Algorithm:           fusion.ParseAlgorithm(c.Network.FusionAlgorithm),
		},
		Fusion: fusion.Options{
			HistoryCapacity: c.Network.FusionHistory,
		},
		Anomaly: anomaly.Options{
			Threshold: c.Network.AnomalyThreshold,
		},
	}
}

// SensorConfigs translates the sensor entries for deployment.
func (c *Config) SensorConfigs() []sensornet.SensorConfig {
	out := make([]sensornet.SensorConfig, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		out = append(out, sensornet.SensorConfig{
			SensorID:   s.ID,
			SensorType: s.Type,
			Platform:   s.Platform,
			Location: sensing.Location{
				Lat: s.Location[0],
				Lon: s.Location[1],
				Alt: s.Location[2],
			},
			SamplingRateHz: s.SamplingRateHz,
			Specs:          s.Calibration.specs(),
		})
	}
	return out
}

// ConnectionList translates the connection entries.
func (c *Config) ConnectionList() []sensornet.Connection {
	out := make([]sensornet.Connection, 0, len(c.Connections))
	for _, con := range c.Connections {
		out = append(out, sensornet.Connection{
			Sensor1:   con.Sensor1,
			Sensor2:   con.Sensor2,
			Type:      con.Type,
			Latency:   con.Latency,
			Bandwidth: con.Bandwidth,
			Fidelity:  con.Fidelity,
		})
	}
	return out
}

func (c Calibration) specs() sensing.Calibration {
	var freq map[float64]float64
	if len(c.FrequencyResponse) != 0 {
		freq = make(map[float64]float64, len(c.FrequencyResponse))
		for k, v := range c.FrequencyResponse {
			f, err := strconv.ParseFloat(k, 64)
			if err != nil {
				continue
			}
			freq[f] = v
		}
	}
	return sensing.Calibration{
		Sensitivity:              c.Sensitivity,
		DynamicRange:             c.DynamicRange,
		NoiseFloor:               c.NoiseFloor,
		FrequencyResponse:        freq,
		TemperatureCoefficient:   c.TemperatureCoefficient,
		MagneticFieldSensitivity: c.MagneticFieldSensitivity,
		VibrationSensitivity:     c.VibrationSensitivity,
		QuantumEfficiency:        c.QuantumEfficiency,
		CoherenceTime:            time.Duration(c.CoherenceTime),
		MaxAge:                   time.Duration(c.MaxAge),
	}
}
