package app

import (
	"sync"

	"github.com/dkeye/Whisper/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a subscriber whose send queue was full
// during a broadcast.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks any subscriber that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

// StrikePolicy lets a subscriber miss up to Max frames before kicking it.
// A missed frame is lost; the client catches up from later frames or on
// resubscribe.
type StrikePolicy struct {
	Max int

	mu      sync.Mutex
	strikes map[core.MemberSession]int
}

func NewStrikePolicy(strikes int) *StrikePolicy {
	return &StrikePolicy{Max: strikes, strikes: make(map[core.MemberSession]int)}
}

func (p *StrikePolicy) OnBackPressure(_ core.RoomService, member core.MemberSession) BackpressureAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strikes[member]++
	if p.strikes[member] > p.Max {
		delete(p.strikes, member)
		return KickMember
	}
	return DropFrame
}

// Strikes reports how many frames member has missed since it was last kicked.
func (p *StrikePolicy) Strikes(member core.MemberSession) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strikes[member]
}
