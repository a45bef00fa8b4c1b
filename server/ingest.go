package server

import (
	"encoding/json"
	"time"

	"github.com/jcmp-relay/server/playback"
)

// HandlePerformanceMessage implements rtc.DataHandler. It is the
// performance lane's entry point: every payload that arrives on a
// client's WebRTC data channel passes through here, feeding the client's
// latency estimator before being translated into one or more scheduled
// playback events.
func (a *App) HandlePerformanceMessage(clientID int, raw []byte) {
	var msg perfMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.logger.Info().Err(err).Int("client_id", clientID).Msg("malformed performance packet; dropped")
		return
	}

	client, ok := a.registry.Get(clientID)
	if !ok {
		return
	}

	now := time.Now().UnixMilli()
	ts := now
	if msg.Timestamp != nil {
		ts = *msg.Timestamp
	}

	client.UpdateLastSeen(time.Now())
	latencyMs, bufferDepthMs := client.Estimator.Sample(now, ts)
	playAt := ts + int64(bufferDepthMs)

	switch msg.Type {
	case "noteOn":
		a.queue.Insert(playback.Event{
			PlayAt:   playAt,
			Kind:     playback.NoteOn,
			Channel:  msg.Channel,
			Note:     msg.Note,
			Velocity: msg.Velocity,
		})
		// A safety noteOff is always scheduled alongside the noteOn,
		// regardless of whether the client later sends an explicit
		// noteOff of its own. If the explicit noteOff lands first,
		// this one simply repeats note-off on an already-silent note.
		a.queue.Insert(playback.Event{
			PlayAt:  playAt + safetyNoteOffMs,
			Kind:    playback.NoteOff,
			Channel: msg.Channel,
			Note:    msg.Note,
		})

	case "noteOff":
		a.queue.Insert(playback.Event{
			PlayAt:  playAt,
			Kind:    playback.NoteOff,
			Channel: msg.Channel,
			Note:    msg.Note,
		})

	case "controlChange":
		a.queue.Insert(playback.Event{
			PlayAt:     playAt,
			Kind:       playback.ControlChange,
			Channel:    msg.Channel,
			Controller: msg.Control,
			Value:      msg.Value,
		})

	case "programChange":
		a.queue.Insert(playback.Event{
			PlayAt:  playAt,
			Kind:    playback.ProgramChange,
			Channel: msg.Channel,
			Program: msg.Program,
		})

	default:
		a.logger.Info().Str("type", msg.Type).Int("client_id", clientID).Msg("unknown performance message type")
		return
	}

	a.counters.IncRTCPerf()
	if a.cfg.Debug {
		a.logger.Debug().
			Int("client_id", clientID).
			Float64("latency_ms", latencyMs).
			Int("buffer_ms", bufferDepthMs).
			Msg("rtc perf sample")
	}
}
