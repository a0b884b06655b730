package watch

import "time"

// DefaultCooldown is the minimum interval between event-triggered rebuilds.
const DefaultCooldown = 2 * time.Second

// Session holds the debounce state of one watch run. It is owned by the
// event loop goroutine and is not safe for concurrent use.
type Session struct {
	cooldown time.Duration
	last     time.Time
	now      func() time.Time
}

// NewSession returns a session with the given cooldown. now supplies the
// current instant; nil means time.Now, whose monotonic reading keeps the
// comparison immune to wall-clock adjustments.
func NewSession(cooldown time.Duration, now func() time.Time) *Session {
	if cooldown < 0 {
		cooldown = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Session{cooldown: cooldown, now: now}
}

// Cooldown returns the configured interval.
func (s *Session) Cooldown() time.Duration {
	return s.cooldown
}

// Allow reports whether a rebuild may start now. When it returns true the
// instant is recorded as the last rebuild.
func (s *Session) Allow() bool {
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.cooldown {
		return false
	}
	s.last = now
	return true
}

// Last returns the instant of the last accepted rebuild, zero if none.
func (s *Session) Last() time.Time {
	return s.last
}
