// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import "log/slog"

// Attrs exposes structured attributes for logging.
func (e *Error) Attrs() []slog.Attr {
	a := make([]slog.Attr, 0, 8)

	a = append(a, slog.Int("kind", int(e.Kind)))

	if e.NestedError != nil {
		a = append(a, slog.Any("nested_error", e.NestedError))
	}

	if e.SensorID != "" {
		a = append(a, slog.String("sensor_id", e.SensorID))
	}

	if e.MeasurementType != "" {
		a = append(a, slog.String("measurement_type", e.MeasurementType))
	}

	switch e.Kind {
	case CalibrationStale:
		a = append(a, slog.Duration("calibration_age", e.CalibrationAge))
	case UnknownNode, PathNotFound:
		a = append(a,
			slog.String("graph", e.GraphName),
			slog.String("node_id", e.NodeID),
		)
	case Timeout:
		a = append(a,
			slog.String("timeout_name", e.TimeoutName),
			slog.Duration("timeout_value", e.TimeoutValue),
		)
	case ConfigurationInvalid, ArgumentInvalid:
		a = append(a,
			slog.String("property_name", e.PropertyName),
			slog.Any("property_value", e.PropertyValue),
		)
	case StateInvalid:
		a = append(a, slog.String("property_name", e.PropertyName))
		if e.PropertyValue != nil {
			a = append(a, slog.Any("property_value", e.PropertyValue))
		}
	}

	return a
}
