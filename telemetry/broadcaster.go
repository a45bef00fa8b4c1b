package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jcmp-relay/server/playback"
	"github.com/jcmp-relay/server/registry"
)

// Snapshot is the payload of the per-second jcmp-stats broadcast.
type Snapshot struct {
	ServerTime   int64        `json:"serverTime"`
	QueueLength  int          `json:"queueLength"`
	LaneCounters LaneCounters `json:"laneCounters"`
	Clients      []ClientStat `json:"clients"`
}

// ClientStat is the per-client entry in a Snapshot.
type ClientStat struct {
	ID             int       `json:"id"`
	BufferSizeMs   int       `json:"bufferSizeMs"`
	RTTP95         float64   `json:"rttP95"`
	RTTAvg         float64   `json:"rttAvg"`
	LatencyHistory []float64 `json:"latencyHistory"`
	DCState        string    `json:"dcState"`
	LastSeen       *int64    `json:"lastSeen"`
}

type statsMessage struct {
	Type         string       `json:"type"`
	ServerTime   int64        `json:"serverTime"`
	QueueLength  int          `json:"queueLength"`
	LaneCounters LaneCounters `json:"laneCounters"`
	Clients      []ClientStat `json:"clients"`
}

const maxHistorySamples = 50

// Broadcaster drives the two telemetry timers described for C7: a 1-second
// jcmp-stats push to every connected client, and a 5-second operator-log
// summary that also resets the windowed lane counters.
type Broadcaster struct {
	registry *registry.Registry
	queue    *playback.Queue
	counters *Counters
	logger   zerolog.Logger
}

// NewBroadcaster wires a Broadcaster to the registry, queue, and counters
// it reports on.
func NewBroadcaster(reg *registry.Registry, queue *playback.Queue, counters *Counters, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: reg, queue: queue, counters: counters, logger: logger}
}

// Run blocks, driving both timers until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	statsTicker := time.NewTicker(time.Second)
	summaryTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()
	defer summaryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			b.broadcastStats()
		case <-summaryTicker.C:
			b.logSummaryAndReset()
		}
	}
}

func (b *Broadcaster) buildSnapshot() Snapshot {
	clients := b.registry.Snapshot()
	stats := make([]ClientStat, 0, len(clients))

	for _, c := range clients {
		history := c.Estimator.Samples()
		if len(history) > maxHistorySamples {
			history = history[len(history)-maxHistorySamples:]
		}

		var lastSeen *int64
		if t, ok := c.LastSeen(); ok {
			ms := t.UnixMilli()
			lastSeen = &ms
		}

		stats = append(stats, ClientStat{
			ID:             c.ID,
			BufferSizeMs:   c.Estimator.BufferDepthMs(),
			RTTP95:         c.Estimator.P95(),
			RTTAvg:         c.Estimator.Mean(),
			LatencyHistory: history,
			DCState:        c.DataChannelState(),
			LastSeen:       lastSeen,
		})
	}

	return Snapshot{
		ServerTime:   time.Now().UnixMilli(),
		QueueLength:  b.queue.Len(),
		LaneCounters: b.counters.Snapshot(),
		Clients:      stats,
	}
}

func (b *Broadcaster) broadcastStats() {
	snap := b.buildSnapshot()

	queueLengthGauge.Set(float64(snap.QueueLength))
	connectedClientsGauge.Set(float64(len(snap.Clients)))
	for _, cs := range snap.Clients {
		clientBufferDepthGauge.WithLabelValues(strconv.Itoa(cs.ID)).Set(float64(cs.BufferSizeMs))
	}

	msg := statsMessage{
		Type:         "jcmp-stats",
		ServerTime:   snap.ServerTime,
		QueueLength:  snap.QueueLength,
		LaneCounters: snap.LaneCounters,
		Clients:      snap.Clients,
	}

	for _, c := range b.registry.Snapshot() {
		if err := c.Signaling.Send(msg); err != nil {
			b.logger.Info().Err(err).Int("client_id", c.ID).Msg("telemetry broadcast failed")
		}
	}
}

func (b *Broadcaster) logSummaryAndReset() {
	snap := b.counters.Snapshot()
	b.logger.Info().
		Uint64("rtc_perf", snap.RTCPerf).
		Uint64("ws_immediate", snap.WSImmediate).
		Int("queue_length", b.queue.Len()).
		Int("clients", b.registry.Len()).
		Msg("jcmp 5s summary")
	b.counters.Reset()
}
