package telemetry

import "sync/atomic"

// LaneCounters is the per-second, wire-facing view of how many events each
// transport lane has carried since the last 5-second reset.
type LaneCounters struct {
	RTCPerf     uint64 `json:"rtcPerf"`
	WSImmediate uint64 `json:"wsImmediate"`
}

// Counters accumulates lane activity. The windowed totals reset every 5
// seconds alongside the operator-log summary; the cumulative Prometheus
// counters registered in metrics.go never reset, since Prometheus counters
// are expected to be monotonic for rate() queries.
type Counters struct {
	rtcPerf     atomic.Uint64
	wsImmediate atomic.Uint64
}

// NewCounters returns a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// IncRTCPerf records one performance-lane (WebRTC data channel) event.
func (c *Counters) IncRTCPerf() {
	c.rtcPerf.Add(1)
	rtcPerfTotal.Inc()
}

// IncWSImmediate records one immediate-lane (signaling channel) event.
func (c *Counters) IncWSImmediate() {
	c.wsImmediate.Add(1)
	wsImmediateTotal.Inc()
}

// Snapshot returns the current windowed totals without resetting them.
func (c *Counters) Snapshot() LaneCounters {
	return LaneCounters{
		RTCPerf:     c.rtcPerf.Load(),
		WSImmediate: c.wsImmediate.Load(),
	}
}

// Reset zeroes the windowed totals. Called once per 5-second operator-log
// summary.
func (c *Counters) Reset() {
	c.rtcPerf.Store(0)
	c.wsImmediate.Store(0)
}
