package services

import "time"

// Metrics is the slice of the monitoring collector the core services report
// into. A nil collector is replaced with a no-op.
type Metrics interface {
	StreamStarted()
	StreamStopped()
	RecordStatusEvent(status string)
	RecordStatusDiscarded()
	RecordTransportCommand(command string, err error)
	ObserveHighlightConfig(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) StreamStarted()                       {}
func (noopMetrics) StreamStopped()                       {}
func (noopMetrics) RecordStatusEvent(string)             {}
func (noopMetrics) RecordStatusDiscarded()               {}
func (noopMetrics) RecordTransportCommand(string, error) {}
func (noopMetrics) ObserveHighlightConfig(time.Duration) {}
