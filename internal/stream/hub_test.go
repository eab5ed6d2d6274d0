package stream_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/stream"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func tinyEngine(opts ...sim.Option) *sim.Engine {
	GinkgoHelper()
	cfg := config.GetPreset("tiny")
	Expect(cfg).NotTo(BeNil())
	e, err := sim.New(cfg, append([]sim.Option{sim.WithLogger(quiet)}, opts...)...)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(e.Close)
	return e
}

func dial(url string) *websocket.Conn {
	GinkgoHelper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(conn.Close)
	Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
	return conn
}

var _ = Describe("Hub", func() {
	var (
		engine *sim.Engine
		srv    *stream.Server
		ts     *httptest.Server
	)

	BeforeEach(func() {
		engine = tinyEngine(sim.StartPaused())
		srv = stream.NewServer(engine, stream.ServerOptions{TickRate: 60, MaxParticles: 100, Logger: quiet})
		ts = httptest.NewServer(srv.Handler())
		DeferCleanup(ts.Close)
	})

	It("sends the current frame on connect", func() {
		conn := dial(ts.URL)

		var msg stream.FrameMessage
		Expect(conn.ReadJSON(&msg)).To(Succeed())
		Expect(msg.Type).To(Equal("frame"))
		Expect(msg.Count).To(Equal(512))
		Expect(msg.Stride).To(Equal(6))
		Expect(len(msg.Positions)).To(BeNumerically("<=", 100))
		Expect(msg.Densities).To(HaveLen(len(msg.Positions)))
		Eventually(srv.Hub().Clients).Should(Equal(1))
	})

	It("applies controls and acknowledges them", func() {
		conn := dial(ts.URL)
		var frame stream.FrameMessage
		Expect(conn.ReadJSON(&frame)).To(Succeed())

		Expect(conn.WriteJSON(stream.ControlMessage{Step: true, DtDelta: 0.002})).To(Succeed())
		var reply stream.Reply
		Expect(conn.ReadJSON(&reply)).To(Succeed())
		Expect(reply.Type).To(Equal("ack"))
		Expect(reply.Paused).To(BeTrue())
		Expect(reply.Dt).To(BeNumerically("~", 0.012, 1e-12))

		stepped, err := engine.Step()
		Expect(err).NotTo(HaveOccurred())
		Expect(stepped).To(BeTrue())

		resume := false
		Expect(conn.WriteJSON(stream.ControlMessage{Pause: &resume})).To(Succeed())
		Expect(conn.ReadJSON(&reply)).To(Succeed())
		Expect(reply.Paused).To(BeFalse())
		Expect(engine.Params().Dt).To(BeNumerically("~", config.DefaultDt, 1e-12))
	})

	It("reports control errors without dropping the client", func() {
		conn := dial(ts.URL)
		var frame stream.FrameMessage
		Expect(conn.ReadJSON(&frame)).To(Succeed())

		Expect(conn.WriteJSON(stream.ControlMessage{Param: "viscosity"})).To(Succeed())
		var reply stream.Reply
		Expect(conn.ReadJSON(&reply)).To(Succeed())
		Expect(reply.Type).To(Equal("error"))

		bad := -1.0
		Expect(conn.WriteJSON(stream.ControlMessage{Param: "viscosity", Value: &bad})).To(Succeed())
		Expect(conn.ReadJSON(&reply)).To(Succeed())
		Expect(reply.Type).To(Equal("error"))

		good := 2.0
		Expect(conn.WriteJSON(stream.ControlMessage{Param: "viscosity", Value: &good})).To(Succeed())
		Expect(conn.ReadJSON(&reply)).To(Succeed())
		Expect(reply.Type).To(Equal("ack"))
		Expect(engine.GetParams()).To(HaveKeyWithValue("viscosity", 2.0))
	})

	It("broadcasts frames to every client", func() {
		a := dial(ts.URL)
		b := dial(ts.URL)
		var frame stream.FrameMessage
		Expect(a.ReadJSON(&frame)).To(Succeed())
		Expect(b.ReadJSON(&frame)).To(Succeed())
		Eventually(srv.Hub().Clients).Should(Equal(2))

		srv.Hub().Broadcast(srv.Hub().Encode(sim.Frame{Tick: 9, Time: 0.09}))
		for _, conn := range []*websocket.Conn{a, b} {
			Expect(conn.ReadJSON(&frame)).To(Succeed())
			Expect(frame.Tick).To(Equal(uint64(9)))
			Expect(frame.Count).To(BeZero())
		}
	})

	It("drops a client that stops reading instead of blocking", func() {
		hub := stream.NewHub(engine, 0, quiet)
		hub.SetWriteTimeout(100 * time.Millisecond)
		hts := httptest.NewServer(hub)
		DeferCleanup(hts.Close)

		stalled, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hts.URL, "http"), nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(stalled.Close)
		Eventually(hub.Clients).Should(Equal(1))

		// large enough to fill the socket buffers of a reader that never reads
		big := sim.Frame{Tick: 1, Particles: make([]fluid.Particle, 400_000)}
		for i := range big.Particles {
			big.Particles[i].Position = r3.Vec{X: 0.123456789, Y: 0.987654321, Z: 0.555555555}
			big.Particles[i].Density = 1000.123456789
		}
		msg := hub.Encode(big)

		start := time.Now()
		for i := 0; i < 8 && hub.Clients() > 0; i++ {
			hub.Broadcast(msg)
		}
		Expect(hub.Clients()).To(BeZero())
		Expect(time.Since(start)).To(BeNumerically("<", 10*time.Second))
	})

	It("serves the engine state", func() {
		resp, err := http.Get(ts.URL + "/state")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var state map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&state)).To(Succeed())
		Expect(state).To(HaveKeyWithValue("paused", true))
		Expect(state).To(HaveKeyWithValue("particles", 512.0))
	})
})
