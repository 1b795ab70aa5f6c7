package repository

import (
	"context"
	"testing"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
	"impact_chat/pkg/database"
	testtool "impact_chat/pkg/test_tool"
	"impact_chat/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebbleCredentialStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenPebble(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	store := NewPebbleCredentialStore(db, "impact_chat:")

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)

	cred := domain.Credential{Token: "tok", Username: "alice", UserID: "42"}
	require.NoError(t, store.Save(ctx, cred))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestPebbleCredentialStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, NewPebbleCredentialStore(db, "").Save(ctx, domain.Credential{Token: "tok", Username: "alice"}))
	require.NoError(t, db.Close())

	db, err = database.OpenPebble(dir)
	require.NoError(t, err)
	defer db.Close()

	got, err := NewPebbleCredentialStore(db, "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestRedisCredentialStore(t *testing.T) {
	ctx := context.Background()
	redis := testtool.StartRedis(t)

	client, err := database.NewRedisClient(ctx, config.RedisConfig{Addr: redis.Addr})
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisCredentialStore(client, "impact_chat:")

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)

	tok, err := token.GenerateJWT("42", "alice", []byte("secret"), time.Hour)
	require.NoError(t, err)
	cred := domain.Credential{Token: tok, Username: "alice", UserID: "42"}
	require.NoError(t, store.Save(ctx, cred))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	ttl, err := client.TTL(ctx, "impact_chat:credential").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 60)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}
