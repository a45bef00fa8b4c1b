package signaling

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type fakeHooks struct {
	noteOnCalls int
	lastOffer   *webrtc.SessionDescription
	answer      *webrtc.SessionDescription
	candidate   *webrtc.ICECandidateInit
}

func (f *fakeHooks) Connect(sender Sender) (int, bool)    { return 1, false }
func (f *fakeHooks) Disconnect(id int)                    {}
func (f *fakeHooks) NoteOn(id, channel, note, velocity int) {
	f.noteOnCalls++
}
func (f *fakeHooks) NoteOff(id, channel, note, velocity int)        {}
func (f *fakeHooks) ControlChange(id, channel, controller, value int) {}
func (f *fakeHooks) ProgramChange(id, channel, program int)         {}
func (f *fakeHooks) Transport(id int, action string)                {}

func (f *fakeHooks) HandleOffer(id int, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	f.lastOffer = &offer
	return f.answer, nil
}

func (f *fakeHooks) HandleCandidate(id int, candidate webrtc.ICECandidateInit) error {
	f.candidate = &candidate
	return nil
}

func newTestClient(hooks Hooks) *Client {
	return &Client{
		send:   make(chan []byte, 10),
		hooks:  hooks,
		logger: zerolog.Nop(),
		id:     1,
	}
}

func TestClientHelloIsIdempotent(t *testing.T) {
	c := newTestClient(&fakeHooks{})
	c.midiAvailable = true

	c.handle([]byte(`{"type":"client-hello"}`))
	c.handle([]byte(`{"type":"client-hello"}`))

	if len(c.send) != 2 {
		t.Fatalf("expected two welcome frames, got %d", len(c.send))
	}

	var w1, w2 welcomeMessage
	json.Unmarshal(<-c.send, &w1)
	json.Unmarshal(<-c.send, &w2)

	if w1.ID != w2.ID || w1.MidiAvailable != w2.MidiAvailable {
		t.Fatalf("expected identical welcome payloads, got %+v and %+v", w1, w2)
	}
}

func TestNoteOnDispatchesToHooks(t *testing.T) {
	hooks := &fakeHooks{}
	c := newTestClient(hooks)

	c.handle([]byte(`{"type":"noteOn","channel":1,"note":60,"velocity":100}`))

	if hooks.noteOnCalls != 1 {
		t.Fatalf("expected one NoteOn call, got %d", hooks.noteOnCalls)
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	hooks := &fakeHooks{}
	c := newTestClient(hooks)

	c.handle([]byte(`not json`))

	if len(c.send) != 0 {
		t.Fatal("expected malformed frame to produce no response")
	}
}

func TestUnknownMessageTypeIsIgnored(t *testing.T) {
	hooks := &fakeHooks{}
	c := newTestClient(hooks)

	c.handle([]byte(`{"type":"something-else"}`))

	if len(c.send) != 0 {
		t.Fatal("expected unknown message type to produce no response")
	}
}
