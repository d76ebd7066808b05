// Package metrics keeps a handful of in-process counters alongside a
// transfer, readable only through the remote query handshake (C7) —
// spec.md scopes a metrics exporter out, but the counters themselves are
// real and worth having for "pv -query" to report.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counters holds the handful of process-lifetime counters a transfer
// run accumulates.
type Counters struct {
	BytesTransferred prometheus.Counter
	SpliceFallbacks  prometheus.Counter
	ErrorBytesSkipped prometheus.Counter
}

// New returns a fresh, unregistered set of counters. They are never
// registered with a prometheus.Registerer: spec.md's non-goals exclude
// a metrics export surface, so these exist purely to be read back
// in-process via Snapshot.
func New() *Counters {
	return &Counters{
		BytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pv_bytes_transferred_total",
			Help: "Cumulative bytes written across all inputs.",
		}),
		SpliceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pv_splice_fallbacks_total",
			Help: "Number of times the splice fast path was disabled for an input.",
		}),
		ErrorBytesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pv_error_bytes_skipped_total",
			Help: "Bytes zero-filled past unreadable regions under -E.",
		}),
	}
}

func readValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Snapshot reads the current counter values without needing an HTTP
// handler or a Registry: prometheus.Counter.Write fills in a dto.Metric
// the same way the exposition-format handler would, we just read the
// field back out directly.
type Snapshot struct {
	BytesTransferred  float64
	SpliceFallbacks   float64
	ErrorBytesSkipped float64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BytesTransferred:  readValue(c.BytesTransferred),
		SpliceFallbacks:   readValue(c.SpliceFallbacks),
		ErrorBytesSkipped: readValue(c.ErrorBytesSkipped),
	}
}
