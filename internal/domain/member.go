package domain

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User     *User
	Presence PresenceState
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user, Presence: PresenceOffline}
}

// Snapshot is the value handed out to subscribers.
func (m *Member) Snapshot() User {
	u := *m.User
	u.Presence = m.Presence
	return u
}
