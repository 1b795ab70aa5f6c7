package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"impact_chat/internal/chat/app"
	"impact_chat/internal/chat/domain"
	"impact_chat/internal/chat/repository"
	"impact_chat/pkg/config"
	"impact_chat/pkg/database"
	"impact_chat/pkg/logger"

	"go.uber.org/zap"
)

// deps everything a command needs, built from cfg
type deps struct {
	session  *app.SessionContext
	api      *repository.APIClient
	commands *repository.CommandRepository
	history  *repository.HistoryRepository
	auth     app.AuthUseCase
	rooms    *app.RoomUseCase
	sink     *app.ConsoleSink
	closers  []func() error
}

// newDeps keepStore=false releases the credential store once the session is
// restored, so long-running commands do not hold the pebble lock
func newDeps(ctx context.Context, keepStore bool) (*deps, error) {
	d := &deps{
		session: app.NewSessionContext(),
		api:     repository.NewAPIClient(cfg.Server),
		sink:    app.NewConsoleSink(os.Stdout, cfg.Server.BaseURL),
	}
	d.commands = repository.NewCommandRepository(d.api)
	d.history = repository.NewHistoryRepository(d.api)
	d.rooms = app.NewRoomUseCase(d.commands, d.session)

	store, err := d.openStore(ctx)
	if err != nil {
		d.close()
		return nil, err
	}
	d.auth = app.NewAuthUseCase(d.commands, store, d.session)

	if _, err := d.auth.Restore(ctx); err != nil && !errors.Is(err, domain.ErrNoCredential) {
		logger.Log.Warn("restore credential", zap.Error(err))
	}
	if !keepStore {
		d.close()
		d.closers = nil
	}
	return d, nil
}

func (d *deps) openStore(ctx context.Context) (app.CredentialStore, error) {
	prefix := cfg.Store.KeyPrefix + ":"

	switch cfg.Store.Driver {
	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		d.closers = append(d.closers, client.Close)
		return repository.NewRedisCredentialStore(client, prefix), nil

	case config.StorePebble, "":
		if err := os.MkdirAll(cfg.Store.Path, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := database.OpenPebble(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open pebble: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		return repository.NewPebbleCredentialStore(db, prefix), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Log.Warn("close", zap.Error(err))
		}
	}
}
