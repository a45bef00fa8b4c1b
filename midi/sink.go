// Package midi wraps a single outbound MIDI device connection, the final
// hop for every dispatched event. It tolerates having no device attached:
// rather than failing, it drops events and logs once.
package midi

import (
	"sync"

	midilib "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/rs/zerolog"
)

// Config selects which device to open.
type Config struct {
	// Preferred is an ordered list of case-insensitive substrings matched
	// against enumerated device names. The first device matching any
	// entry, in list order, is opened.
	Preferred []string
	Logger    zerolog.Logger
}

// Sink serializes access to a single MIDI output. All sends are routed
// through dispatch, which holds the lock for the duration of the device
// call since MIDI devices do not tolerate concurrent writers.
type Sink struct {
	mu        sync.Mutex
	out       drivers.Out
	send      func(midilib.Message) error
	available bool
	logger    zerolog.Logger
	warnOnce  sync.Once
}

func (s *Sink) dispatch(build func() midilib.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		s.warnOnce.Do(func() {
			s.logger.Warn().Msg("midi sink has no device attached; discarding events")
		})
		return
	}

	if err := s.send(build()); err != nil {
		s.logger.Warn().Err(err).Msg("midi send failed")
	}
}

// NoteOn sends a note-on. channel is 1-based.
func (s *Sink) NoteOn(channel, note, velocity int) {
	s.dispatch(func() midilib.Message {
		return midilib.NoteOn(toDeviceChannel(channel), uint8(note), uint8(velocity))
	})
}

// NoteOff sends a note-off. channel is 1-based.
func (s *Sink) NoteOff(channel, note, velocity int) {
	s.dispatch(func() midilib.Message {
		return midilib.NoteOffVelocity(toDeviceChannel(channel), uint8(note), uint8(velocity))
	})
}

// ControlChange sends a control-change. channel is 1-based.
func (s *Sink) ControlChange(channel, controller, value int) {
	s.dispatch(func() midilib.Message {
		return midilib.ControlChange(toDeviceChannel(channel), uint8(controller), uint8(value))
	})
}

// ProgramChange sends a program-change. channel is 1-based.
func (s *Sink) ProgramChange(channel, program int) {
	s.dispatch(func() midilib.Message {
		return midilib.ProgramChange(toDeviceChannel(channel), uint8(program))
	})
}

// TransportStart sends a MIDI realtime Start message.
func (s *Sink) TransportStart() {
	s.dispatch(func() midilib.Message { return midilib.Start() })
}

// TransportStop sends a MIDI realtime Stop message.
func (s *Sink) TransportStop() {
	s.dispatch(func() midilib.Message { return midilib.Stop() })
}

// TransportContinue sends a MIDI realtime Continue message.
func (s *Sink) TransportContinue() {
	s.dispatch(func() midilib.Message { return midilib.Continue() })
}

// Available reports whether a real device is currently open.
func (s *Sink) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Close releases the underlying device, if any is open.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return nil
	}
	return s.out.Close()
}

func toDeviceChannel(channel int) uint8 {
	return uint8(channel - 1)
}

// NewNullSink returns a Sink with no device attached, for tests and for
// callers that want to exercise dispatch logic without a real driver.
func NewNullSink(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}
