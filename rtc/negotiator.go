// Package rtc negotiates one WebRTC peer connection per client and routes
// its data channel into the performance lane. Negotiation here is
// deliberately simpler than a multi-track SFU's: each client offers
// exactly once and opens exactly one data channel, so there is no
// renegotiation, glare handling, or offer-collision machinery to carry
// over from a conferencing server.
package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// maxCandidateQueue bounds how many trickled candidates are buffered while
// waiting for the remote description to be set, guarding against a
// misbehaving client flooding candidates before ever sending an offer.
const maxCandidateQueue = 4096

// DataHandler receives raw performance-lane payloads as they arrive on a
// client's data channel.
type DataHandler interface {
	HandlePerformanceMessage(clientID int, raw []byte)
}

// CandidateSender delivers a locally-gathered ICE candidate back to the
// client over the signaling channel.
type CandidateSender interface {
	SendCandidate(clientID int, candidate *webrtc.ICECandidateInit) error
}

// StateHandler is notified of data channel lifecycle transitions for
// telemetry reporting.
type StateHandler interface {
	SetDataChannelState(clientID int, state string)
}

type peerState struct {
	pc *webrtc.PeerConnection

	candMu    sync.Mutex
	remoteSet bool
	candQueue []webrtc.ICECandidateInit
}

// Negotiator holds one peer connection per client and the three callbacks
// it needs to route negotiation and data traffic back into the rest of the
// server.
type Negotiator struct {
	dataHandler     DataHandler
	candidateSender CandidateSender
	stateHandler    StateHandler
	logger          zerolog.Logger

	mu    sync.Mutex
	peers map[int]*peerState
}

// NewNegotiator returns a Negotiator with no active peers. The ICE server
// list is intentionally empty: this relay assumes client and server share
// a LAN and never needs STUN/TURN to traverse NAT.
func NewNegotiator(dataHandler DataHandler, candidateSender CandidateSender, stateHandler StateHandler, logger zerolog.Logger) *Negotiator {
	return &Negotiator{
		dataHandler:     dataHandler,
		candidateSender: candidateSender,
		stateHandler:    stateHandler,
		logger:          logger,
		peers:           make(map[int]*peerState),
	}
}

// HandleOffer applies a client's SDP offer, creates an answer, and returns
// it. A prior peer connection for this client, if any, is closed first so
// that retrying a failed negotiation never leaks a connection.
func (n *Negotiator) HandleOffer(clientID int, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	n.closeExisting(clientID)

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: []webrtc.ICEServer{}})
	if err != nil {
		return nil, err
	}

	ps := &peerState{pc: pc}
	n.mu.Lock()
	n.peers[clientID] = ps
	n.mu.Unlock()

	n.wireEvents(clientID, ps)

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, err
	}

	n.flushCandidates(ps)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, err
	}

	return pc.LocalDescription(), nil
}

// HandleCandidate applies a trickled ICE candidate, or buffers it if the
// remote description has not been set yet.
func (n *Negotiator) HandleCandidate(clientID int, candidate webrtc.ICECandidateInit) error {
	n.mu.Lock()
	ps, ok := n.peers[clientID]
	n.mu.Unlock()
	if !ok {
		return nil
	}

	ps.candMu.Lock()
	if !ps.remoteSet {
		if len(ps.candQueue) < maxCandidateQueue {
			ps.candQueue = append(ps.candQueue, candidate)
		}
		ps.candMu.Unlock()
		return nil
	}
	ps.candMu.Unlock()

	return ps.pc.AddICECandidate(candidate)
}

// Close tears down the peer connection for clientID, if one exists. Called
// on client disconnect to cascade cleanup.
func (n *Negotiator) Close(clientID int) {
	n.closeExisting(clientID)
}

func (n *Negotiator) closeExisting(clientID int) {
	n.mu.Lock()
	ps, ok := n.peers[clientID]
	delete(n.peers, clientID)
	n.mu.Unlock()

	if ok {
		_ = ps.pc.Close()
	}
}

func (n *Negotiator) flushCandidates(ps *peerState) {
	ps.candMu.Lock()
	ps.remoteSet = true
	queued := ps.candQueue
	ps.candQueue = nil
	ps.candMu.Unlock()

	for _, c := range queued {
		_ = ps.pc.AddICECandidate(c)
	}
}

func (n *Negotiator) wireEvents(clientID int, ps *peerState) {
	ps.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		if err := n.candidateSender.SendCandidate(clientID, &init); err != nil {
			n.logger.Info().Err(err).Int("client_id", clientID).Msg("rtc: failed to relay local candidate")
		}
	})

	ps.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		n.stateHandler.SetDataChannelState(clientID, "connecting")

		dc.OnOpen(func() {
			n.stateHandler.SetDataChannelState(clientID, "open")
		})
		dc.OnClose(func() {
			n.stateHandler.SetDataChannelState(clientID, "closed")
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			n.dataHandler.HandlePerformanceMessage(clientID, msg.Data)
		})
	})

	ps.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			n.stateHandler.SetDataChannelState(clientID, "closed")
		}
	})
}
