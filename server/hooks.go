package server

import (
	"github.com/pion/webrtc/v4"

	"github.com/jcmp-relay/server/signaling"
)

// Connect implements signaling.Hooks: it allocates a new client record
// bound to sender and reports whether a MIDI device is currently attached.
func (a *App) Connect(sender signaling.Sender) (int, bool) {
	c := a.registry.NewClient(sender)
	a.logger.Info().Int("client_id", c.ID).Msg("client connected")
	return c.ID, a.sink.Available()
}

// Disconnect implements signaling.Hooks, cascading the teardown of any
// negotiated peer connection and removing the client record.
func (a *App) Disconnect(id int) {
	a.negotiator.Close(id)
	if _, ok := a.registry.Remove(id); ok {
		a.logger.Info().Int("client_id", id).Msg("client disconnected")
	}
}

// NoteOn implements the immediate lane's noteOn action: it bypasses the
// jitter buffer entirely and plays on the signaling goroutine.
func (a *App) NoteOn(id, channel, note, velocity int) {
	a.counters.IncWSImmediate()
	a.sink.NoteOn(channel, note, velocity)
}

// NoteOff implements the immediate lane's noteOff action.
func (a *App) NoteOff(id, channel, note, velocity int) {
	a.counters.IncWSImmediate()
	a.sink.NoteOff(channel, note, velocity)
}

// ControlChange implements the immediate lane's controlChange action.
func (a *App) ControlChange(id, channel, controller, value int) {
	a.counters.IncWSImmediate()
	a.sink.ControlChange(channel, controller, value)
}

// ProgramChange implements the immediate lane's programChange action.
func (a *App) ProgramChange(id, channel, program int) {
	a.counters.IncWSImmediate()
	a.sink.ProgramChange(channel, program)
}

// Transport implements the immediate lane's transport action, mapping the
// wire-level action name to the corresponding MIDI realtime message.
func (a *App) Transport(id int, action string) {
	switch action {
	case "play":
		a.sink.TransportStart()
	case "stop":
		a.sink.TransportStop()
	case "pause":
		a.sink.TransportContinue()
	case "record":
		a.sink.ControlChange(1, 119, 127)
	default:
		a.logger.Info().Str("action", action).Int("client_id", id).Msg("unknown transport action")
	}
}

// HandleOffer implements signaling.Hooks by delegating negotiation to the
// rtc package.
func (a *App) HandleOffer(id int, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	return a.negotiator.HandleOffer(id, offer)
}

// HandleCandidate implements signaling.Hooks by delegating to the rtc
// package.
func (a *App) HandleCandidate(id int, candidate webrtc.ICECandidateInit) error {
	return a.negotiator.HandleCandidate(id, candidate)
}

// SendCandidate implements rtc.CandidateSender, relaying a locally
// gathered ICE candidate back to the client over its signaling connection.
func (a *App) SendCandidate(clientID int, candidate *webrtc.ICECandidateInit) error {
	c, ok := a.registry.Get(clientID)
	if !ok {
		return nil
	}
	return c.Signaling.Send(struct {
		Type      string                   `json:"type"`
		Candidate *webrtc.ICECandidateInit `json:"candidate"`
	}{Type: "webrtc-ice-candidate", Candidate: candidate})
}

// SetDataChannelState implements rtc.StateHandler.
func (a *App) SetDataChannelState(clientID int, state string) {
	if c, ok := a.registry.Get(clientID); ok {
		c.SetDataChannelState(state)
	}
}

// perfMessage is the wire shape of a performance-lane payload carried over
// the WebRTC data channel.
type perfMessage struct {
	Type      string `json:"type"`
	Channel   int    `json:"channel"`
	Note      int    `json:"note"`
	Velocity  int    `json:"velocity"`
	Control   int    `json:"control"`
	Value     int    `json:"value"`
	Program   int    `json:"program"`
	Timestamp *int64 `json:"timestamp"`
}
