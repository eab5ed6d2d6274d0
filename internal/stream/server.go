package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fluidsim/internal/sim"
)

// Server runs an engine at a fixed tick rate and streams every n-th frame
// to WebSocket clients on /ws. GET /state returns the latest frame summary.
type Server struct {
	engine   *sim.Engine
	runner   *sim.Runner
	hub      *Hub
	logger   *slog.Logger
	every    uint64
	shutdown time.Duration

	// encoded frames waiting for the broadcast loop; holds at most one
	frames chan FrameMessage
}

type ServerOptions struct {
	TickRate     float64
	BroadcastHz  float64
	MaxParticles int
	Logger       *slog.Logger
}

func NewServer(e *sim.Engine, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	every := uint64(1)
	if opts.BroadcastHz > 0 && opts.TickRate > opts.BroadcastHz {
		every = uint64(opts.TickRate / opts.BroadcastHz)
	}

	s := &Server{
		engine:   e,
		runner:   sim.NewRunner(e, opts.TickRate),
		hub:      NewHub(e, opts.MaxParticles, logger),
		logger:   logger,
		every:    every,
		shutdown: 5 * time.Second,
		frames:   make(chan FrameMessage, 1),
	}
	s.runner.Subscribe(func(f sim.Frame) {
		if f.Tick%s.every != 0 || s.hub.Clients() == 0 {
			return
		}
		// Encode copies while the engine lock is held; writes happen on
		// broadcastLoop. A pending frame wins over a newer one.
		select {
		case s.frames <- s.hub.Encode(f):
		default:
		}
	})
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type stateResponse struct {
	Tick      uint64             `json:"tick"`
	Time      float64            `json:"time"`
	Paused    bool               `json:"paused"`
	Particles int                `json:"particles"`
	Clients   int                `json:"clients"`
	Params    map[string]float64 `json:"params"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Tick:      s.engine.Tick(),
		Time:      s.engine.Time(),
		Paused:    s.engine.Paused(),
		Particles: s.engine.Len(),
		Clients:   s.hub.Clients(),
		Params:    s.engine.GetParams(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("state encode failed", "err", err)
	}
}

// ListenAndServe runs the simulation and the HTTP server until ctx is done
// or either fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runner.Run(ctx)
	})
	g.Go(func() error {
		s.broadcastLoop(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.frames:
			s.hub.Broadcast(msg)
		}
	}
}
