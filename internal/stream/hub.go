// Package stream serves live simulation frames over WebSocket and accepts
// run-state controls from connected clients.
package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/fluidsim/internal/sim"
)

// Controller is the subset of the engine a client may drive.
type Controller interface {
	SetPaused(p bool)
	Paused() bool
	RequestSingleStep() error
	AdjustTimestep(delta float64) (float64, error)
	SetParam(name string, v float64) error
	Snapshot() sim.Frame
}

// FrameMessage is the JSON payload broadcast for each published frame.
type FrameMessage struct {
	Type      string       `json:"type"`
	Tick      uint64       `json:"tick"`
	Time      float64      `json:"time"`
	Count     int          `json:"count"`
	Stride    int          `json:"stride"`
	Positions [][3]float64 `json:"positions"`
	Densities []float64    `json:"densities"`
}

// ControlMessage is a client request. Only the set fields are applied, in
// the order pause, step, dt_delta, param.
type ControlMessage struct {
	Pause   *bool    `json:"pause,omitempty"`
	Step    bool     `json:"step,omitempty"`
	DtDelta float64  `json:"dt_delta,omitempty"`
	Param   string   `json:"param,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// Reply acknowledges a control message.
type Reply struct {
	Type   string  `json:"type"`
	Paused bool    `json:"paused"`
	Dt     float64 `json:"dt,omitempty"`
	Error  string  `json:"error,omitempty"`
}

const defaultWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks connected clients. Every connection has its own write lock so
// broadcasts and replies never interleave on one socket.
type Hub struct {
	ctrl         Controller
	logger       *slog.Logger
	maxParticles int
	writeTimeout time.Duration

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
}

// NewHub returns a hub driving ctrl. Frames are thinned to at most
// maxParticles particles; zero sends everything.
func NewHub(ctrl Controller, maxParticles int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		ctrl:         ctrl,
		logger:       logger,
		maxParticles: maxParticles,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*websocket.Conn]*sync.Mutex),
	}
}

// SetWriteTimeout bounds every write to a client. A client that cannot
// take a frame within d is dropped.
func (h *Hub) SetWriteTimeout(d time.Duration) { h.writeTimeout = d }

func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request, sends the current snapshot and then reads
// control messages until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.clientsMu.Lock()
	h.clients[conn] = connMu
	h.clientsMu.Unlock()
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
	}()
	h.logger.Info("client connected", "remote", r.RemoteAddr)

	h.send(conn, connMu, h.Encode(h.ctrl.Snapshot()))

	for {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "err", err)
			}
			break
		}
		h.send(conn, connMu, h.Apply(msg))
	}
	h.logger.Info("client disconnected", "remote", r.RemoteAddr)
}

// Apply executes a control message against the controller.
func (h *Hub) Apply(msg ControlMessage) Reply {
	reply := Reply{Type: "ack"}
	fail := func(err error) Reply {
		reply.Type = "error"
		reply.Error = err.Error()
		reply.Paused = h.ctrl.Paused()
		return reply
	}

	if msg.Pause != nil {
		h.ctrl.SetPaused(*msg.Pause)
	}
	if msg.Step {
		if err := h.ctrl.RequestSingleStep(); err != nil {
			return fail(err)
		}
	}
	if msg.DtDelta != 0 {
		dt, err := h.ctrl.AdjustTimestep(msg.DtDelta)
		if err != nil {
			return fail(err)
		}
		reply.Dt = dt
	}
	if msg.Param != "" {
		if msg.Value == nil {
			return fail(fmt.Errorf("param %q needs a value", msg.Param))
		}
		if err := h.ctrl.SetParam(msg.Param, *msg.Value); err != nil {
			return fail(err)
		}
	}
	reply.Paused = h.ctrl.Paused()
	return reply
}

// Encode builds the broadcast payload for f. It copies what it needs, so it
// is safe to call from inside Engine.View.
func (h *Hub) Encode(f sim.Frame) FrameMessage {
	stride := 1
	if h.maxParticles > 0 && len(f.Particles) > h.maxParticles {
		stride = (len(f.Particles) + h.maxParticles - 1) / h.maxParticles
	}

	n := (len(f.Particles) + stride - 1) / stride
	msg := FrameMessage{
		Type:      "frame",
		Tick:      f.Tick,
		Time:      f.Time,
		Count:     len(f.Particles),
		Stride:    stride,
		Positions: make([][3]float64, 0, n),
		Densities: make([]float64, 0, n),
	}
	for i := 0; i < len(f.Particles); i += stride {
		p := f.Particles[i].Position
		msg.Positions = append(msg.Positions, [3]float64{p.X, p.Y, p.Z})
		msg.Densities = append(msg.Densities, f.Particles[i].Density)
	}
	return msg
}

// Broadcast sends msg to every client and drops the ones that fail.
func (h *Hub) Broadcast(msg FrameMessage) {
	h.clientsMu.RLock()
	var failed []*websocket.Conn
	for conn, mu := range h.clients {
		if err := h.write(conn, mu, msg); err != nil {
			h.logger.Warn("websocket write failed", "err", err)
			conn.Close()
			failed = append(failed, conn)
		}
	}
	h.clientsMu.RUnlock()

	if len(failed) > 0 {
		h.clientsMu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()
	}
}

func (h *Hub) send(conn *websocket.Conn, mu *sync.Mutex, v any) {
	if err := h.write(conn, mu, v); err != nil {
		h.logger.Warn("websocket write failed", "err", err)
	}
}

func (h *Hub) write(conn *websocket.Conn, mu *sync.Mutex, v any) error {
	mu.Lock()
	defer mu.Unlock()
	if h.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return err
		}
	}
	return conn.WriteJSON(v)
}
