package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/stream"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	serveAddr   string
	broadcastHz float64
	maxStreamed int
)

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	rate := cfg.TickRate
	if cmd.Flags().Changed("tick-rate") {
		rate = tickRate
	}

	engine, err := sim.New(cfg, sim.WithLogger(slog.Default()), sim.WithDefaultMetrics())
	if err != nil {
		return err
	}
	defer engine.Close()
	return viz.Run(engine, sceneName(), rate, theme)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	rate := cfg.TickRate
	if cmd.Flags().Changed("tick-rate") {
		rate = tickRate
	}

	engine, err := sim.New(cfg, sim.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := stream.NewServer(engine, stream.ServerOptions{
		TickRate:     rate,
		BroadcastHz:  broadcastHz,
		MaxParticles: maxStreamed,
		Logger:       slog.Default(),
	})
	return srv.ListenAndServe(ctx, serveAddr)
}
