// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import "time"

type (
	// Error represents a structured sensor network error.
	Error struct {
		Message string
		Kind    Kind

		NestedError error

		SensorID        string
		MeasurementType string

		GraphName string
		NodeID    string

		PropertyName  string
		PropertyValue any

		TimeoutName  string
		TimeoutValue time.Duration

		// Age of the calibration profile for CalibrationStale errors.
		CalibrationAge time.Duration
	}

	// Kind defines the type of error being thrown.
	Kind int
)

// The following are the defined error kinds.
const (
	// ConfigurationInvalid indicates a malformed or inconsistent configuration
	// value supplied by the caller.
	ConfigurationInvalid Kind = iota

	// ArgumentInvalid indicates an invalid argument to an operation.
	ArgumentInvalid

	// SensorInactive indicates a measurement was requested from a sensor that
	// is not in the active operational state.
	SensorInactive

	// CalibrationStale indicates a sensor's calibration profile has aged past
	// its validity window. Non-fatal; the measurement is still produced.
	CalibrationStale

	// NoValidUncertainty indicates a fusion partition contained no
	// measurements with a usable (positive, finite) uncertainty.
	NoValidUncertainty

	// UnknownNode indicates a topology operation referenced a sensor ID that
	// is not a node of the graph.
	UnknownNode

	// PathNotFound indicates no route exists between two topology nodes.
	PathNotFound

	// StateInvalid indicates an operation was attempted in an invalid
	// lifecycle state.
	StateInvalid

	// Timeout indicates an operation exceeded its deadline.
	Timeout

	// Cancellation indicates an operation was cancelled.
	Cancellation

	// UnknownError indicates an unrecognized wrapped error.
	UnknownError
)

// Error returns the error as a string.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the nested error, if any.
func (e *Error) Unwrap() error {
	return e.NestedError
}
