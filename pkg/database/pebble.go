package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/goccy/go-json"
)

// PebbleDB small JSON key/value wrapper over a local pebble store
type PebbleDB struct {
	db *pebble.DB
}

// OpenPebble open (or create) the store under dir, retrying while locked
func OpenPebble(dir string) (*PebbleDB, error) {
	db, err := connectWithRetry(context.Background(), "pebble", PebbleRetry, func() (*pebble.DB, error) {
		return pebble.Open(filepath.Clean(dir), &pebble.Options{})
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &PebbleDB{db: db}, nil
}

// PutJSON store value under key
func (p *PebbleDB) PutJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return p.db.Set([]byte(key), data, pebble.Sync)
}

// GetJSON load key into out, ErrNotFound when absent
func (p *PebbleDB) GetJSON(key string, out any) error {
	data, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer closer.Close()
	return json.Unmarshal(data, out)
}

// Delete remove key, missing keys are not an error
func (p *PebbleDB) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

// Close flush and close
func (p *PebbleDB) Close() error {
	return p.db.Close()
}
