// Package signaling implements the immediate lane: a persistent WebSocket
// connection per client carrying client-hello/server-welcome, WebRTC
// offer/answer/candidate exchange, and low-urgency MIDI actions that skip
// the jitter buffer entirely.
package signaling

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Sender delivers a JSON-encodable value to the client on the other end of
// a signaling connection.
type Sender interface {
	Send(v interface{}) error
}

// Hooks is the application logic a signaling Client dispatches into. One
// implementation (the server package's App) is shared by every connection.
type Hooks interface {
	// Connect registers a freshly upgraded connection and returns the
	// client ID assigned to it along with whether a MIDI device is
	// currently attached.
	Connect(sender Sender) (id int, midiAvailable bool)
	Disconnect(id int)

	NoteOn(id, channel, note, velocity int)
	NoteOff(id, channel, note, velocity int)
	ControlChange(id, channel, controller, value int)
	ProgramChange(id, channel, program int)
	Transport(id int, action string)

	HandleOffer(id int, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	HandleCandidate(id int, candidate webrtc.ICECandidateInit) error
}

// Upgrader controls the WebSocket handshake. CheckOrigin allows same-origin
// browser clients and local tooling; JCMP_DEBUG relaxes it further for
// development, mirroring the permissive-in-dev/strict-in-prod split used
// elsewhere in this codebase's origin checks.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		if os.Getenv("JCMP_DEBUG") != "" {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// Client is a single signaling connection. Writes are serialized through
// send so that the read loop and the telemetry broadcaster can both push
// frames without racing on the underlying socket.
type Client struct {
	conn          *websocket.Conn
	send          chan []byte
	hooks         Hooks
	logger        zerolog.Logger
	id            int
	midiAvailable bool

	malformedOnce   sync.Once
	unknownTypeOnce sync.Once
}

// Serve upgrades the request to a WebSocket and runs the connection's
// read/write pumps until the client disconnects.
func Serve(w http.ResponseWriter, r *http.Request, hooks Hooks, logger zerolog.Logger) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("signaling: upgrade failed")
		return
	}

	connID := uuid.NewString()
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hooks:  hooks,
		logger: logger.With().Str("conn_id", connID).Logger(),
	}

	id, midiAvailable := hooks.Connect(c)
	c.id = id
	c.midiAvailable = midiAvailable

	go c.writePump()
	c.readPump()

	hooks.Disconnect(id)
}

// Send marshals v and queues it for delivery. If the client's send buffer
// is full, the frame is dropped rather than blocking the caller.
func (c *Client) Send(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- raw:
		return nil
	default:
		return fmt.Errorf("signaling: send queue overflow for client %d", c.id)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Info().Err(err).Int("client_id", c.id).Msg("signaling: write error")
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.malformedOnce.Do(func() {
			c.logger.Info().Err(err).Int("client_id", c.id).Msg("signaling: malformed frame dropped")
		})
		return
	}

	switch env.Type {
	case "client-hello":
		// Idempotent: always echoes back the ID and MIDI availability
		// assigned at connect time, so repeating client-hello on the
		// same connection never reassigns identity.
		_ = c.Send(welcomeMessage{Type: "server-welcome", ID: c.id, MidiAvailable: c.midiAvailable})

	case "webrtc-offer":
		if env.Offer == nil {
			return
		}
		answer, err := c.hooks.HandleOffer(c.id, *env.Offer)
		if err != nil {
			c.logger.Info().Err(err).Int("client_id", c.id).Msg("signaling: offer negotiation failed")
			return
		}
		_ = c.Send(answerMessage{Type: "webrtc-answer", Answer: answer})

	case "webrtc-ice-candidate":
		if env.Candidate == nil {
			return
		}
		if err := c.hooks.HandleCandidate(c.id, *env.Candidate); err != nil {
			c.logger.Info().Err(err).Int("client_id", c.id).Msg("signaling: candidate rejected")
		}

	case "noteOn":
		c.hooks.NoteOn(c.id, env.Channel, env.Note, env.Velocity)
	case "noteOff":
		c.hooks.NoteOff(c.id, env.Channel, env.Note, env.Velocity)
	case "controlChange":
		c.hooks.ControlChange(c.id, env.Channel, env.Control, env.Value)
	case "programChange":
		c.hooks.ProgramChange(c.id, env.Channel, env.Program)
	case "transport":
		c.hooks.Transport(c.id, env.Action)

	default:
		c.unknownTypeOnce.Do(func() {
			c.logger.Info().Str("type", env.Type).Int("client_id", c.id).Msg("signaling: unknown message type")
		})
	}
}
