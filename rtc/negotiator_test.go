package rtc

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type fakeDataHandler struct {
	received [][]byte
}

func (f *fakeDataHandler) HandlePerformanceMessage(clientID int, raw []byte) {
	f.received = append(f.received, raw)
}

type fakeCandidateSender struct {
	sent []*webrtc.ICECandidateInit
}

func (f *fakeCandidateSender) SendCandidate(clientID int, candidate *webrtc.ICECandidateInit) error {
	f.sent = append(f.sent, candidate)
	return nil
}

type fakeStateHandler struct {
	states []string
}

func (f *fakeStateHandler) SetDataChannelState(clientID int, state string) {
	f.states = append(f.states, state)
}

// clientOffer spins up a throwaway PeerConnection purely to generate a
// realistic offer, mirroring what a browser client would send.
func clientOffer(t *testing.T) webrtc.SessionDescription {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("failed to create client peer connection: %v", err)
	}
	defer pc.Close()

	if _, err := pc.CreateDataChannel("performance", nil); err != nil {
		t.Fatalf("failed to create data channel: %v", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatalf("failed to set local description: %v", err)
	}
	return offer
}

func TestHandleOfferReturnsAnswer(t *testing.T) {
	dh := &fakeDataHandler{}
	cs := &fakeCandidateSender{}
	sh := &fakeStateHandler{}
	n := NewNegotiator(dh, cs, sh, zerolog.Nop())

	answer, err := n.HandleOffer(1, clientOffer(t))
	if err != nil {
		t.Fatalf("HandleOffer failed: %v", err)
	}
	if answer == nil || answer.Type != webrtc.SDPTypeAnswer {
		t.Fatalf("expected an SDP answer, got %+v", answer)
	}

	n.Close(1)
}

func TestHandleOfferClosesPriorPeer(t *testing.T) {
	dh := &fakeDataHandler{}
	cs := &fakeCandidateSender{}
	sh := &fakeStateHandler{}
	n := NewNegotiator(dh, cs, sh, zerolog.Nop())

	if _, err := n.HandleOffer(1, clientOffer(t)); err != nil {
		t.Fatalf("first HandleOffer failed: %v", err)
	}
	if _, err := n.HandleOffer(1, clientOffer(t)); err != nil {
		t.Fatalf("second HandleOffer failed: %v", err)
	}

	n.mu.Lock()
	count := len(n.peers)
	n.mu.Unlock()
	if count != 1 {
		t.Fatalf("expected exactly one peer after re-offer, got %d", count)
	}

	n.Close(1)
}

func TestHandleCandidateOnUnknownClientIsNoop(t *testing.T) {
	dh := &fakeDataHandler{}
	cs := &fakeCandidateSender{}
	sh := &fakeStateHandler{}
	n := NewNegotiator(dh, cs, sh, zerolog.Nop())

	if err := n.HandleCandidate(999, webrtc.ICECandidateInit{Candidate: "candidate:0 1 UDP 1 0.0.0.0 0 typ host"}); err != nil {
		t.Fatalf("expected nil error for unknown client, got %v", err)
	}
}

func TestCloseUnknownClientIsNoop(t *testing.T) {
	dh := &fakeDataHandler{}
	cs := &fakeCandidateSender{}
	sh := &fakeStateHandler{}
	n := NewNegotiator(dh, cs, sh, zerolog.Nop())

	n.Close(42)
}
