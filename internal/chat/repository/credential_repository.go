package repository

import (
	"context"
	"errors"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/database"
	"impact_chat/pkg/token"

	"github.com/go-redis/redis/v8"
)

const credentialKey = "credential"

// PebbleCredentialStore keeps the credential in the local pebble store
type PebbleCredentialStore struct {
	db  *database.PebbleDB
	key string
}

// NewPebbleCredentialStore create PebbleCredentialStore
func NewPebbleCredentialStore(db *database.PebbleDB, prefix string) *PebbleCredentialStore {
	return &PebbleCredentialStore{db: db, key: prefix + credentialKey}
}

// Load
func (s *PebbleCredentialStore) Load(_ context.Context) (domain.Credential, error) {
	var cred domain.Credential
	if err := s.db.GetJSON(s.key, &cred); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.Credential{}, domain.ErrNoCredential
		}
		return domain.Credential{}, err
	}
	return cred, nil
}

// Save
func (s *PebbleCredentialStore) Save(_ context.Context, cred domain.Credential) error {
	return s.db.PutJSON(s.key, cred)
}

// Clear
func (s *PebbleCredentialStore) Clear(_ context.Context) error {
	return s.db.Delete(s.key)
}

// RedisCredentialStore keeps the credential in redis, expiring with the token
type RedisCredentialStore struct {
	repo database.RedisRepository[domain.Credential]
	key  string
	now  func() time.Time
}

// NewRedisCredentialStore create RedisCredentialStore
func NewRedisCredentialStore(client redis.UniversalClient, prefix string) *RedisCredentialStore {
	return &RedisCredentialStore{
		repo: database.NewRedisRepository[domain.Credential](client),
		key:  prefix + credentialKey,
		now:  time.Now,
	}
}

// Load
func (s *RedisCredentialStore) Load(ctx context.Context) (domain.Credential, error) {
	cred, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.Credential{}, domain.ErrNoCredential
		}
		return domain.Credential{}, err
	}
	return cred, nil
}

// Save ttl follows the token exp claim, 0 (no expiry) when it has none
func (s *RedisCredentialStore) Save(ctx context.Context, cred domain.Credential) error {
	var ttl time.Duration
	if cred.Token != "" {
		if claims, err := token.Inspect(cred.Token); err == nil && claims.ExpiresAt != nil {
			ttl = claims.ExpiresAt.Sub(s.now())
			if ttl <= 0 {
				return s.repo.Del(ctx, s.key)
			}
		}
	}
	return s.repo.Set(ctx, s.key, cred, ttl)
}

// Clear
func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	return s.repo.Del(ctx, s.key)
}
