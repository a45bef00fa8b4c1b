package signaling

import "github.com/pion/webrtc/v4"

// envelope is the generic shape of an inbound signaling frame; fields
// irrelevant to Type are simply left zero.
type envelope struct {
	Type      string                     `json:"type"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Channel   int                        `json:"channel,omitempty"`
	Note      int                        `json:"note,omitempty"`
	Velocity  int                        `json:"velocity,omitempty"`
	Control   int                        `json:"control,omitempty"`
	Value     int                        `json:"value,omitempty"`
	Program   int                        `json:"program,omitempty"`
	Action    string                     `json:"action,omitempty"`
}

type welcomeMessage struct {
	Type          string `json:"type"`
	ID            int    `json:"id"`
	MidiAvailable bool   `json:"midiAvailable"`
}

type answerMessage struct {
	Type   string                     `json:"type"`
	Answer *webrtc.SessionDescription `json:"answer"`
}

type iceCandidateMessage struct {
	Type      string                   `json:"type"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}
