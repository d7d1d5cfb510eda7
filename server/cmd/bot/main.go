package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/joho/godotenv"

	"shooter/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}
	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount, err := utils.GetEnvInt64("BOT_COUNT", 2)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "err", err)
		os.Exit(1)
	}

	serverURL := fmt.Sprintf("ws://%s/ws", net.JoinHostPort(addr, port))
	slog.Info("starting bots", "count", botCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Go(func() {
			runBot(ctx, serverURL, int(i))
		})
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int) {
	logger := slog.With("botID", id)

	for ctx.Err() == nil {
		conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
			conn, _, err := websocket.Dial(ctx, serverURL, nil)
			return conn, err
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				logger.Warn("dial failed, retrying", "err", err, "in", next)
			}),
		)
		if err != nil {
			return
		}

		err = botSession(ctx, conn, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
		}
	}
}

func botSession(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) error {
	defer conn.CloseNow()
	logger.Info("connected")

	bot := newDuelBot(logger)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "shutdown")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		replies, err := bot.handle(data)
		if err != nil {
			logger.Debug("dropped message", "err", err)
			continue
		}
		for _, reply := range replies {
			if err := conn.Write(ctx, websocket.MessageBinary, reply); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
