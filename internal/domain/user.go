// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 36

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

type UserID string

type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

type User struct {
	ID       UserID        `json:"id"`
	Name     string        `json:"name"`
	Presence PresenceState `json:"presence"`
}

// NewUser validates a user id and uses it as the display name too.
func NewUser(id string) (*User, error) {
	uid, err := ParseUserID(id)
	if err != nil {
		return nil, err
	}
	return &User{ID: uid, Name: string(uid), Presence: PresenceOffline}, nil
}

func ParseUserID(raw string) (UserID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(id), nil
}

func (u User) Online() bool { return u.Presence == PresenceOnline }
