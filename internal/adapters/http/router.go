package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Whisper/internal/adapters/signal"
	"github.com/dkeye/Whisper/internal/app/orch"
	"github.com/dkeye/Whisper/internal/config"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	UserID string `json:"userId"`
}

type deleteRequest struct {
	MessageID string `json:"messageId"`
	Timer     *int   `json:"timer"`
}

// SetupRouter wires the registration and deletion endpoints, room
// inspection and the realtime websocket.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Str("room", cfg.Room.ID).Msg("router setup")

	r.POST("/users", func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		user, created, err := o.Registry.RegisterUser(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, user)
	})

	r.POST("/delete-message", func(c *gin.Context) {
		var req deleteRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" || req.Timer == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		timer, err := domain.TimerFromMillis(*req.Timer)
		if err == nil {
			err = o.ScheduleDeletion(req.MessageID, timer)
		}
		switch {
		case errors.Is(err, domain.ErrInvalidTimer):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, orch.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusAccepted)
		}
	})

	r.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	r.GET("/rooms/:id", func(c *gin.Context) {
		room, ok := o.Rooms.GetRoom(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room is not exists"})
			return
		}
		c.JSON(http.StatusOK, room.Room())
	})

	ctrl := signal.NewSignalWSController(o, signal.Options{
		InstanceLocator: cfg.InstanceLocator,
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		SendLimit:       cfg.SendLimit,
		SendInterval:    cfg.SendInterval,
	})
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
