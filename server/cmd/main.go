package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"shooter/server"
	"shooter/server/application"
	"shooter/server/config"
	"shooter/server/domain"
	"shooter/server/scheduler"
	"shooter/server/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		return err
	}
	level, _ := cfg.Level()

	// OTel 有効時はログも OTLP に流す
	var sink telemetry.Sink = telemetry.NopSink{}
	if cfg.OTelEnabled {
		shutdown, err := telemetry.Setup(ctx, telemetry.SetupConfig{ServiceName: cfg.ServiceName})
		if err != nil {
			return fmt.Errorf("telemetry setup: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("telemetry shutdown failed", "err", err)
			}
		}()
		slog.SetDefault(slog.New(otelslog.NewHandler(cfg.ServiceName)))
		sink = telemetry.NewOTelSink(otel.Meter("shooter/server"))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	pubsub := domain.NewSimplePubSub()

	// デフォルトルーム設定
	defaultRoomID := domain.NewRoomID()
	roomManager := domain.NewSimpleRoomManager(defaultRoomID)

	timer := scheduler.NewTimer(scheduler.TimerConfig{})
	app := application.NewDuelApplication(cfg.Duel(), slog.Default())

	roomCfg := cfg.Room()
	roomCfg.Observer = telemetry.NewTickRecorder(cfg.TickRate, sink)
	room, err := domain.NewRoom(defaultRoomID, pubsub, app, timer, roomCfg)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	handler := server.Route(pubsub, roomManager, room, cfg.Endpoint())
	s := server.NewServer(cfg.ListenAddr(), handler)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return timer.Run(ctx)
	})
	g.Go(func() error {
		return room.Run(ctx)
	})
	g.Go(func() error {
		slog.InfoContext(ctx, "server listening", "addr", s.Addr(), "room_id", defaultRoomID, "tick_rate", cfg.TickRate)
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
			if err := s.Close(); err != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", err)
			}
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("server shutdown complete")
	return err
}
