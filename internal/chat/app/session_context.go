package app

import (
	"sync"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/token"
)

// SessionContext holds credential, display name and the active room.
// SetRoom is the only way the room changes; every call bumps the room epoch.
type SessionContext struct {
	mu      sync.RWMutex
	session domain.Session
	epoch   uint64
}

// NewSessionContext create an empty SessionContext
func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// SetCredential store the bearer token and read sub / exp from it
func (s *SessionContext) SetCredential(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Token = t
	s.session.UserID = ""
	s.session.Expiry = time.Time{}
	if claims, err := token.Inspect(t); err == nil {
		s.session.UserID = claims.Subject
		if claims.ExpiresAt != nil {
			s.session.Expiry = claims.ExpiresAt.Time
		}
	}
}

// SetUsername set the display name
func (s *SessionContext) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Username = name
}

// SetRoom bind roomID and return the new epoch
func (s *SessionContext) SetRoom(roomID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.RoomID = roomID
	s.epoch++
	return s.epoch
}

// Current snapshot
func (s *SessionContext) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// RoomID active room, empty before the first join
func (s *SessionContext) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RoomID
}

// Epoch current room epoch
func (s *SessionContext) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// IsCurrent true when roomID / epoch still name the active room
func (s *SessionContext) IsCurrent(roomID string, epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RoomID == roomID && s.epoch == epoch
}

// Clear drop credential, name and room (logout). The epoch keeps counting.
func (s *SessionContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = domain.Session{}
	s.epoch++
}
