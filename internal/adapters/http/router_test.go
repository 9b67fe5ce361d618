package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Whisper/internal/app"
	"github.com/dkeye/Whisper/internal/app/orch"
	"github.com/dkeye/Whisper/internal/config"
	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func testConfig() *config.Config {
	return &config.Config{
		Mode:            "test",
		ReadLimit:       4096,
		PingPeriod:      time.Second,
		InstanceLocator: "v1:local:whisper",
		SendLimit:       20,
		SendInterval:    time.Second,
		Room:            config.RoomConfig{ID: "20509997", Name: "general", MessageTimer: "0"},
	}
}

func newRouter(t *testing.T) (*gin.Engine, *orch.Orchestrator, *[]time.Duration) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rooms := app.NewRoomManager()
	rooms.CreateRoom("20509997", "general", domain.RoomMetadata{MessageTimer: domain.TimerOff})
	var delays []time.Duration
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Policy:   app.SimplePolicy{},
		Schedule: func(d time.Duration, f func()) func() bool {
			delays = append(delays, d)
			return func() bool { return true }
		},
	}
	return SetupRouter(context.Background(), testConfig(), o), o, &delays
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterUser(t *testing.T) {
	r, o, _ := newRouter(t)

	w := do(r, http.MethodPost, "/users", map[string]string{"userId": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, domain.UserID("alice"), user.ID)

	w = do(r, http.MethodPost, "/users", map[string]string{"userId": "alice"})
	assert.Equal(t, http.StatusOK, w.Code, "registration is idempotent")

	_, ok := o.Registry.User("alice")
	assert.True(t, ok)
}

func TestRegisterUserRejectsBadInput(t *testing.T) {
	r, _, _ := newRouter(t)

	for name, body := range map[string]any{
		"empty":    map[string]string{"userId": "  "},
		"too long": map[string]string{"userId": string(bytes.Repeat([]byte("x"), domain.MaxUserIDLen+1))},
		"wrong":    []int{1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/users", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDeleteMessage(t *testing.T) {
	r, o, delays := newRouter(t)
	user, _, err := o.Registry.RegisterUser("alice")
	require.NoError(t, err)
	require.NoError(t, o.Connect("s1", core.NewMemberSession(user, nopConn{}), nil))
	_, _, err = o.Subscribe("s1", "20509997", 10)
	require.NoError(t, err)
	msg, err := o.SendMessage("s1", "20509997", "secret")
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/delete-message", map[string]any{"messageId": msg.ID, "timer": 20000})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []time.Duration{20 * time.Second}, *delays)

	cases := []struct {
		name string
		body any
		code int
	}{
		{"unknown message", map[string]any{"messageId": "nope", "timer": 10000}, http.StatusNotFound},
		{"odd timer", map[string]any{"messageId": msg.ID, "timer": 15000}, http.StatusBadRequest},
		{"timer off", map[string]any{"messageId": msg.ID, "timer": 0}, http.StatusBadRequest},
		{"no timer", map[string]any{"messageId": msg.ID}, http.StatusBadRequest},
		{"no id", map[string]any{"timer": 10000}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/delete-message", tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
	assert.Len(t, *delays, 1)
}

func TestRooms(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, domain.RoomID("20509997"), list.Rooms[0].ID)

	w = do(r, http.MethodGet, "/rooms/20509997", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var room domain.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, domain.RoomName("general"), room.Name)
	assert.Equal(t, domain.TimerOff, room.Metadata.MessageTimer)

	w = do(r, http.MethodGet, "/rooms/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebsocketRejectsUnregisteredUser(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, http.MethodGet, "/ws?user_id=ghost&instance=v1:local:whisper", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/ws?user_id=ghost&instance=other", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
