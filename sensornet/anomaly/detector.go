// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package anomaly scans windows of per-sensor, per-type measurement values
// for statistical outliers and trend breaks.
package anomaly

import (
	"log/slog"
	"math"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

type (
	// Kind tags the class of detected anomaly.
	Kind string

	// Severity grades an alert.
	Severity int

	// Alert is one detected anomaly with its supporting statistics. It is
	// immutable.
	Alert struct {
		Timestamp       time.Time `json:"timestamp"`
		SensorID        string    `json:"sensorId"`
		MeasurementType string    `json:"measurementType"`
		Kind            Kind      `json:"anomalyKind"`
		Severity        Severity  `json:"severity"`

		Value          float64 `json:"value"`
		Mean           float64 `json:"mean"`
		StdDev         float64 `json:"stdDev"`
		DeviationSigma float64 `json:"deviationSigma,omitempty"`

		SlopeBefore float64 `json:"slopeBefore,omitempty"`
		SlopeAfter  float64 `json:"slopeAfter,omitempty"`
	}

	// Detector applies the outlier and trend tests to measurement groups.
	Detector struct {
		threshold float64
		logger    log.Logger
	}

	// Options configures a detector. Zero values select the documented
	// defaults.
	Options struct {
		// Threshold is the outlier cutoff in sigmas. Defaults to 3.
		Threshold float64

		Logger *slog.Logger
	}
)

const (
	StatisticalOutlier Kind = "statistical_outlier"
	TrendChange        Kind = "trend_change"
)

const (
	Low Severity = iota
	Medium
	High
	Critical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MarshalText marshals the severity to its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// minGroup is the smallest group the detector will evaluate.
	minGroup = 10

	// minTrendGroup gates the trend-change test.
	minTrendGroup = 20

	// trendWindow is the width of each local regression window.
	trendWindow = 10
)

// NewDetector creates a detector.
func NewDetector(opt Options) *Detector {
	if opt.Threshold <= 0 {
		opt.Threshold = 3
	}
	return &Detector{threshold: opt.Threshold, logger: log.Wrap(opt.Logger)}
}

// Detect evaluates one group of measurements, all from the same sensor and
// measurement type. Groups smaller than ten measurements return no alerts.
func (d *Detector) Detect(group []sensing.Measurement) []Alert {
	if len(group) < minGroup {
		return nil
	}

	alerts := d.outliers(group)
	if len(group) >= minTrendGroup {
		alerts = append(alerts, d.trendChanges(group)...)
	}
	return alerts
}

// outliers flags points deviating more than threshold sigmas from the group
// mean. A zero-sigma group never flags.
func (d *Detector) outliers(group []sensing.Measurement) []Alert {
	mean, sigma := meanStd(values(group))
	if sigma == 0 {
		return nil
	}

	var alerts []Alert
	for _, m := range group {
		dev := math.Abs(m.Value-mean) / sigma
		if dev <= d.threshold {
			continue
		}
		alerts = append(alerts, Alert{
			Timestamp:       m.Timestamp,
			SensorID:        m.SensorID,
			MeasurementType: m.Type,
			Kind:            StatisticalOutlier,
			Severity:        outlierSeverity(dev),
			Value:           m.Value,
			Mean:            mean,
			StdDev:          sigma,
			DeviationSigma:  dev,
		})
	}
	return alerts
}

// trendChanges compares linear-regression slopes over adjacent sliding
// windows against the standard error of the full-series regression.
func (d *Detector) trendChanges(group []sensing.Measurement) []Alert {
	vals := values(group)
	_, stdErr := regression(vals)
	if stdErr == 0 || math.IsNaN(stdErr) {
		return nil
	}

	var alerts []Alert
	for center := trendWindow; center+trendWindow <= len(vals); center++ {
		before, _ := regression(vals[center-trendWindow : center])
		after, _ := regression(vals[center : center+trendWindow])

		if math.Abs(after-before) <= 3*stdErr {
			continue
		}
		m := group[center]
		alerts = append(alerts, Alert{
			Timestamp:       m.Timestamp,
			SensorID:        m.SensorID,
			MeasurementType: m.Type,
			Kind:            TrendChange,
			Severity:        Medium,
			Value:           m.Value,
			SlopeBefore:     before,
			SlopeAfter:      after,
		})
	}
	return alerts
}

func outlierSeverity(dev float64) Severity {
	switch {
	case dev > 5:
		return Critical
	case dev > 4:
		return High
	case dev > 3:
		return Medium
	default:
		return Low
	}
}

func values(group []sensing.Measurement) []float64 {
	out := make([]float64, len(group))
	for i, m := range group {
		out[i] = m.Value
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(vals []float64) (mean, sigma float64) {
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return mean, math.Sqrt(variance)
}

// regression fits value against index and returns the slope and its standard
// error.
func regression(vals []float64) (slope, stdErr float64) {
	n := float64(len(vals))
	if n < 2 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range vals {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	sxx := sumXX - sumX*sumX/n
	if sxx == 0 {
		return 0, 0
	}
	slope = (sumXY - sumX*sumY/n) / sxx
	intercept := (sumY - slope*sumX) / n

	if n <= 2 {
		return slope, 0
	}

	var sse float64
	for i, v := range vals {
		r := v - (intercept + slope*float64(i))
		sse += r * r
	}
	stdErr = math.Sqrt(sse / (n - 2) / sxx)
	return slope, stdErr
}
