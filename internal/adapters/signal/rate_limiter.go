package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Whisper/internal/domain"
)

// SendLimiter caps how many messages one user may send over a sliding
// window. Attempts it turns down are not recorded.
type SendLimiter struct {
	mu     sync.Mutex
	sent   map[domain.UserID][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewSendLimiter(limit int, window time.Duration) *SendLimiter {
	return &SendLimiter{
		sent:   make(map[domain.UserID][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a send for uid. When the window is full it returns false
// and how long until the oldest send leaves it.
func (l *SendLimiter) Allow(uid domain.UserID) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.sent[uid][:0]
	for _, at := range l.sent[uid] {
		if now.Sub(at) < l.window {
			kept = append(kept, at)
		}
	}
	if len(kept) >= l.limit {
		l.sent[uid] = kept
		return false, l.window - now.Sub(kept[0])
	}
	l.sent[uid] = append(kept, now)
	return true, 0
}

// Forget drops the history of uid.
func (l *SendLimiter) Forget(uid domain.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sent, uid)
}
