package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
)

// renderer prints what changed between committed snapshots. It is only
// called from the controller loop.
type renderer struct {
	out    io.Writer
	seen   map[string]string
	joined bool
	timer  domain.Timer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, seen: make(map[string]string), timer: domain.TimerOff}
}

func (r *renderer) commit(s core.Session) {
	if s.Joined() && !r.joined {
		r.joined = true
		fmt.Fprintf(r.out, "* joined %s as %s\n", s.Room.Name, s.Identity.ID)
		r.users(s.Users)
	}
	if s.MessageTimer != r.timer {
		r.timer = s.MessageTimer
		fmt.Fprintf(r.out, "* timer: %s\n", s.MessageTimer.Label())
	}
	for _, m := range s.Messages {
		prev, ok := r.seen[m.ID]
		if ok && prev == m.Text {
			continue
		}
		r.seen[m.ID] = m.Text
		r.message(m, ok)
	}
}

func (r *renderer) message(m domain.Message, edited bool) {
	switch {
	case m.Status():
		fmt.Fprintf(r.out, "* %s\n", m.Text)
	case edited:
		fmt.Fprintf(r.out, "~ %s: %s\n", m.SenderID, m.Text)
	default:
		fmt.Fprintf(r.out, "%s: %s\n", m.SenderID, m.Text)
	}
}

func (r *renderer) users(users []domain.User) {
	names := make([]string, 0, len(users))
	for _, u := range users {
		mark := " "
		if u.Online() {
			mark = "+"
		}
		names = append(names, mark+string(u.ID))
	}
	fmt.Fprintf(r.out, "* users: %s\n", strings.Join(names, " "))
}
