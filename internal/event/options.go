package event

import "github.com/rs/zerolog"

// SourceOption configures an event source.
type SourceOption func(*sourceConfig)

// sourceConfig contains configuration for an event source.
type sourceConfig struct {
	// name identifies the source in logs, errors and metrics.
	name string

	// logger receives debug output about registrations and triggers.
	logger zerolog.Logger

	// recorder receives trigger and delivery measurements.
	recorder Recorder
}

// defaultSourceConfig returns the default configuration.
func defaultSourceConfig() sourceConfig {
	return sourceConfig{
		name:     "",
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
	}
}

// WithName sets the source name.
func WithName(name string) SourceOption {
	return func(c *sourceConfig) {
		c.name = name
	}
}

// WithLogger sets the source logger.
func WithLogger(logger zerolog.Logger) SourceOption {
	return func(c *sourceConfig) {
		c.logger = logger
	}
}

// WithRecorder sets the measurement recorder.
func WithRecorder(r Recorder) SourceOption {
	return func(c *sourceConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Recorder receives measurements from event sources.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Triggered is called each time a trigger is scheduled.
	Triggered(source string)

	// Delivered is called after a fan-out task with the number of observers called.
	Delivered(source string, observers int)

	// ObserversChanged is called with the new observer count after each
	// registration or removal.
	ObserversChanged(source string, observers int)
}

type nopRecorder struct{}

func (nopRecorder) Triggered(string)             {}
func (nopRecorder) Delivered(string, int)        {}
func (nopRecorder) ObserversChanged(string, int) {}
