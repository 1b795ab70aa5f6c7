package app

import "time"

// DefaultTypingTimeout how long a typing signal stays visible
const DefaultTypingTimeout = 600 * time.Millisecond

// PresenceTimer single typing slot, IDLE or ACTIVE(author, expiresAt).
// Only the latest author is kept: two people typing at once show as one.
type PresenceTimer struct {
	timeout   time.Duration
	active    bool
	author    string
	expiresAt time.Time
}

// NewPresenceTimer create a PresenceTimer, timeout <= 0 uses DefaultTypingTimeout
func NewPresenceTimer(timeout time.Duration) *PresenceTimer {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &PresenceTimer{timeout: timeout}
}

// Timeout configured T
func (p *PresenceTimer) Timeout() time.Duration {
	return p.timeout
}

// Signal (re)arm for author, returns the new expiry
func (p *PresenceTimer) Signal(author string, now time.Time) time.Time {
	p.active = true
	p.author = author
	p.expiresAt = now.Add(p.timeout)
	return p.expiresAt
}

// Expire go IDLE if the deadline has passed, true when it did
func (p *PresenceTimer) Expire(now time.Time) bool {
	if !p.active || now.Before(p.expiresAt) {
		return false
	}
	p.Clear()
	return true
}

// Clear force IDLE
func (p *PresenceTimer) Clear() {
	p.active = false
	p.author = ""
	p.expiresAt = time.Time{}
}

// ExpiresAt deadline of the active signal, zero when IDLE
func (p *PresenceTimer) ExpiresAt() time.Time {
	return p.expiresAt
}

// Current author and whether the signal is still live at now
func (p *PresenceTimer) Current(now time.Time) (string, bool) {
	if !p.active || !now.Before(p.expiresAt) {
		return "", false
	}
	return p.author, true
}
