// Package dispatcher drains the playback queue on a fixed tick, sending
// due events to the MIDI sink and dropping anything that arrived too late
// to matter.
package dispatcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jcmp-relay/server/midi"
	"github.com/jcmp-relay/server/playback"
	"github.com/jcmp-relay/server/telemetry"
)

const (
	tickInterval = 5 * time.Millisecond
	lateDropMs   = 50
)

// Loop is the single-threaded consumer of the playback queue. All MIDI
// device access happens from Run's goroutine, since MIDI devices do not
// tolerate concurrent writers.
type Loop struct {
	queue  *playback.Queue
	sink   *midi.Sink
	logger zerolog.Logger
	debug  bool
}

// New wires a dispatcher to the queue it drains and the sink it dispatches
// to.
func New(queue *playback.Queue, sink *midi.Sink, logger zerolog.Logger, debug bool) *Loop {
	return &Loop{queue: queue, sink: sink, logger: logger, debug: debug}
}

// Run blocks, ticking every 5ms until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	now := time.Now().UnixMilli()

	for {
		evt, ok := l.queue.PeekMin()
		if !ok || evt.PlayAt > now {
			return
		}

		evt, _ = l.queue.PopMin()
		lateness := now - evt.PlayAt
		if lateness > lateDropMs {
			telemetry.IncLateDrop()
			if l.debug {
				l.logger.Debug().Int64("late_by_ms", lateness).Msg("dropped late event")
			}
			continue
		}

		l.dispatch(evt, now)
	}
}

func (l *Loop) dispatch(evt playback.Event, now int64) {
	switch evt.Kind {
	case playback.NoteOn:
		l.sink.NoteOn(evt.Channel, evt.Note, evt.Velocity)
	case playback.NoteOff:
		l.sink.NoteOff(evt.Channel, evt.Note, evt.Velocity)
	case playback.ControlChange:
		l.sink.ControlChange(evt.Channel, evt.Controller, evt.Value)
	case playback.ProgramChange:
		l.sink.ProgramChange(evt.Channel, evt.Program)
	}

	if l.debug {
		l.logger.Debug().
			Int64("play_at", evt.PlayAt).
			Int64("error_ms", now-evt.PlayAt).
			Msg("dispatched event")
	}
}
