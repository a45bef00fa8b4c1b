// Command jcmp-client is a reference/test harness for jcmp-server. It
// opens a signaling connection, completes the client-hello handshake,
// negotiates a WebRTC data channel, and sends a handful of performance
// events so the relay's full path can be exercised without a browser.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

type envelope struct {
	Type      string                     `json:"type"`
	ID        int                        `json:"id,omitempty"`
	MidiAvail bool                       `json:"midiAvailable,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

func main() {
	addr := flag.String("addr", "localhost:5000", "jcmp-server host:port")
	channel := flag.Int("channel", 1, "MIDI channel to play on")
	note := flag.Int("note", 60, "MIDI note number")
	velocity := flag.Int("velocity", 100, "note-on velocity")
	count := flag.Int("count", 10, "number of notes to play")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between notes")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(envelope{Type: "client-hello"}); err != nil {
		log.Fatalf("client-hello failed: %v", err)
	}

	var welcome envelope
	if err := conn.ReadJSON(&welcome); err != nil {
		log.Fatalf("reading server-welcome failed: %v", err)
	}
	log.Printf("connected as client %d, midi available: %v", welcome.ID, welcome.MidiAvail)

	pc, dc, err := negotiate(conn)
	if err != nil {
		log.Printf("webrtc negotiation failed, falling back to immediate lane only: %v", err)
		playImmediate(conn, *channel, *note, *velocity, *count, *interval)
		return
	}
	defer pc.Close()

	playPerformance(dc, *channel, *note, *velocity, *count, *interval)
}

func negotiate(conn *websocket.Conn) (*webrtc.PeerConnection, *webrtc.DataChannel, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, err
	}

	dc, err := pc.CreateDataChannel("performance", nil)
	if err != nil {
		pc.Close()
		return nil, nil, err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		_ = conn.WriteJSON(envelope{Type: "webrtc-ice-candidate", Candidate: &init})
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, nil, err
	}

	if err := conn.WriteJSON(envelope{Type: "webrtc-offer", Offer: &offer}); err != nil {
		pc.Close()
		return nil, nil, err
	}

	var answerEnv envelope
	if err := conn.ReadJSON(&answerEnv); err != nil {
		pc.Close()
		return nil, nil, err
	}
	if answerEnv.Answer == nil {
		pc.Close()
		return nil, nil, errNoAnswer
	}
	if err := pc.SetRemoteDescription(*answerEnv.Answer); err != nil {
		pc.Close()
		return nil, nil, err
	}

	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		pc.Close()
		return nil, nil, errDataChannelTimeout
	}

	return pc, dc, nil
}

var (
	errNoAnswer           = errors.New("jcmp-client: no webrtc-answer received")
	errDataChannelTimeout = errors.New("jcmp-client: data channel did not open in time")
)

type perfEvent struct {
	Type      string `json:"type"`
	Channel   int    `json:"channel"`
	Note      int    `json:"note"`
	Velocity  int    `json:"velocity"`
	Timestamp int64  `json:"timestamp"`
}

func playPerformance(dc *webrtc.DataChannel, channel, note, velocity, count int, interval time.Duration) {
	for i := 0; i < count; i++ {
		evt := perfEvent{Type: "noteOn", Channel: channel, Note: note, Velocity: velocity, Timestamp: time.Now().UnixMilli()}
		raw, _ := json.Marshal(evt)
		if err := dc.SendText(string(raw)); err != nil {
			log.Printf("send failed: %v", err)
		}
		time.Sleep(interval)
	}
}

func playImmediate(conn *websocket.Conn, channel, note, velocity, count int, interval time.Duration) {
	for i := 0; i < count; i++ {
		env := struct {
			Type     string `json:"type"`
			Channel  int    `json:"channel"`
			Note     int    `json:"note"`
			Velocity int    `json:"velocity"`
		}{Type: "noteOn", Channel: channel, Note: note, Velocity: velocity}
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("send failed: %v", err)
		}
		time.Sleep(interval)
	}
}
