package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Whisper/internal/adapters/backend"
	"github.com/dkeye/Whisper/internal/adapters/realtime"
	"github.com/dkeye/Whisper/internal/app/session"
	"github.com/dkeye/Whisper/internal/config"
	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
)

func usage() string {
	values := make([]string, 0, len(domain.Timers))
	for _, t := range domain.Timers {
		values = append(values, fmt.Sprintf("%s (%s)", t, t.Label()))
	}
	return "commands:\n" +
		"  /timer <ms>  set the disappearing message timer: " + strings.Join(values, ", ") + "\n" +
		"  /users       list room users\n" +
		"  /quit        leave\n" +
		"anything else is sent to the room"
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	api := backend.NewClient(cfg.Client.APIURL, cfg.Client.RequestTimeout)
	view := newRenderer(os.Stdout)
	ctrl := session.NewController(
		session.Deps{
			Registrar: api,
			Deleter:   api,
			Connector: realtime.NewClient(cfg.Client.RealtimeURL, cfg.InstanceLocator),
		},
		session.Options{
			RoomID:       domain.RoomID(cfg.Room.ID),
			MessageLimit: cfg.Client.MessageLimit,
			OnCommit:     view.commit,
		},
	)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = ctrl.Run(ctx)
	}()

	in := bufio.NewScanner(os.Stdin)
	userID := ""
	if len(os.Args) > 1 {
		userID = os.Args[1]
	} else {
		fmt.Print("user id: ")
		if in.Scan() {
			userID = in.Text()
		}
	}
	ctrl.SetInput(core.FieldUserID, userID)
	ctrl.Join(userID)
	fmt.Println(usage())

	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || !command(ctrl, os.Stdout, line) {
				break loop
			}
		}
	}

	cancel()
	<-stopped
	ctrl.Wait()
}

// command runs one input line and reports whether to keep reading.
func command(ctrl *session.Controller, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "/quit":
		return false
	case "/users":
		newRenderer(out).users(ctrl.Snapshot().Users)
	case "/timer":
		if len(fields) != 2 {
			fmt.Fprintln(out, usage())
			return true
		}
		if err := ctrl.UpdateMessageTimer(fields[1]); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	case "/help":
		fmt.Fprintln(out, usage())
	default:
		ctrl.SetInput(core.FieldNewMessage, line)
		ctrl.Submit()
	}
	return true
}
