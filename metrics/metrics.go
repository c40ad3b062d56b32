// Package metrics defines the instrumentation hooks of the lnurl client.
// Recording is off by default, callers opt into prometheus with
// NewPrometheusRecorder or plug in their own Recorder.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
