package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	queueLengthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jcmp_queue_length",
		Help: "Number of scheduled MIDI events currently pending dispatch.",
	})

	connectedClientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jcmp_connected_clients",
		Help: "Number of signaling connections currently registered.",
	})

	clientBufferDepthGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jcmp_client_buffer_depth_ms",
		Help: "Per-client adaptive jitter buffer depth in milliseconds.",
	}, []string{"client_id"})

	rtcPerfTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jcmp_lane_rtc_perf_total",
		Help: "Cumulative count of performance-lane events received over WebRTC data channels.",
	})

	wsImmediateTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jcmp_lane_ws_immediate_total",
		Help: "Cumulative count of immediate-lane events received over signaling connections.",
	})

	lateDropTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jcmp_late_drop_total",
		Help: "Cumulative count of scheduled events dropped by the dispatcher for arriving too late.",
	})
)

func init() {
	prometheus.MustRegister(
		queueLengthGauge,
		connectedClientsGauge,
		clientBufferDepthGauge,
		rtcPerfTotal,
		wsImmediateTotal,
		lateDropTotal,
	)
}

// IncLateDrop records a dispatcher late-drop. Exported for the dispatcher
// package, which has no other reason to depend on Counters.
func IncLateDrop() {
	lateDropTotal.Inc()
}
