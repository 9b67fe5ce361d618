package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrInvalidTimer = errors.New("invalid message timer")

// Timer is the disappearing message delay in milliseconds, string encoded
// to match the room metadata wire shape.
type Timer string

const (
	TimerOff Timer = "0"
	Timer10s Timer = "10000"
	Timer20s Timer = "20000"
	Timer30s Timer = "30000"
	Timer60s Timer = "60000"
)

// Timers lists every selectable value in display order.
var Timers = []Timer{TimerOff, Timer10s, Timer20s, Timer30s, Timer60s}

var timerLabels = map[Timer]string{
	TimerOff: "Off",
	Timer10s: "10 seconds",
	Timer20s: "20 seconds",
	Timer30s: "30 seconds",
	Timer60s: "1 minute",
}

func ParseTimer(raw string) (Timer, error) {
	t := Timer(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimer, raw)
	}
	return t, nil
}

func TimerFromMillis(ms int) (Timer, error) {
	return ParseTimer(strconv.Itoa(ms))
}

func (t Timer) Valid() bool {
	_, ok := timerLabels[t]
	return ok
}

func (t Timer) Armed() bool { return t.Valid() && t != TimerOff }

// Millis returns 0 for invalid values.
func (t Timer) Millis() int {
	if !t.Valid() {
		return 0
	}
	ms, _ := strconv.Atoi(string(t))
	return ms
}

func (t Timer) Duration() time.Duration {
	return time.Duration(t.Millis()) * time.Millisecond
}

func (t Timer) Label() string { return timerLabels[t] }
