package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Whisper/internal/adapters/http"
	"github.com/dkeye/Whisper/internal/app"
	"github.com/dkeye/Whisper/internal/app/orch"
	"github.com/dkeye/Whisper/internal/config"
	"github.com/dkeye/Whisper/internal/domain"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	rooms := app.NewRoomManager()
	timer, err := domain.ParseTimer(cfg.Room.MessageTimer)
	if err != nil {
		log.Warn().Err(err).Msg("room message timer, falling back to off")
		timer = domain.TimerOff
	}
	rooms.CreateRoom(domain.RoomID(cfg.Room.ID), domain.RoomName(cfg.Room.Name), domain.RoomMetadata{MessageTimer: timer})

	var policy app.Policy = app.SimplePolicy{}
	if cfg.BackpressureStrikes > 0 {
		policy = app.NewStrikePolicy(cfg.BackpressureStrikes)
	}
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Policy:   policy,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("room", cfg.Room.ID).Msg("Whisper server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			log.Info().Msg("Shutting down")
			cancel()
			return srv.Shutdown(ctx)
		},
		"deletions": func(context.Context) error {
			o.Close()
			return nil
		},
	})
	code := <-wait
	log.Info().Int("code", code).Msg("Server exited")
	os.Exit(code)
}
