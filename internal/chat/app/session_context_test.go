package app

import (
	"testing"
	"time"

	"impact_chat/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContext_SetRoomBumpsEpoch(t *testing.T) {
	s := NewSessionContext()

	e1 := s.SetRoom("r1")
	e2 := s.SetRoom("r1")
	assert.Greater(t, e2, e1)
	assert.True(t, s.IsCurrent("r1", e2))
	assert.False(t, s.IsCurrent("r1", e1), "re-joining the same room invalidates older loads")
	assert.False(t, s.IsCurrent("r2", e2))
}

func TestSessionContext_SetCredential(t *testing.T) {
	s := NewSessionContext()
	tok, err := token.GenerateJWT("42", "alice", []byte("secret"), time.Hour)
	require.NoError(t, err)

	s.SetCredential(tok)
	s.SetUsername("alice")

	cur := s.Current()
	assert.Equal(t, tok, cur.Token)
	assert.Equal(t, "42", cur.UserID)
	assert.Equal(t, "alice", cur.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cur.Expiry, time.Minute)

	s.SetCredential("not-a-jwt")
	assert.Empty(t, s.Current().UserID)
}

func TestSessionContext_Clear(t *testing.T) {
	s := NewSessionContext()
	s.SetUsername("alice")
	epoch := s.SetRoom("r1")

	s.Clear()
	assert.Empty(t, s.RoomID())
	assert.Empty(t, s.Current().Username)
	assert.Greater(t, s.Epoch(), epoch)
}
