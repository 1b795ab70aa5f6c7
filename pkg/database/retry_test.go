package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithRetry(t *testing.T) {
	errDown := errors.New("down")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		got, err := connectWithRetry(context.Background(), "test", Retry{Count: 3, Interval: time.Millisecond}, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errDown
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		_, err := connectWithRetry(context.Background(), "test", Retry{Count: 2, Interval: time.Millisecond}, func() (int, error) {
			calls++
			return 0, errDown
		})
		assert.ErrorIs(t, err, errDown)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero count still tries once", func(t *testing.T) {
		calls := 0
		_, err := connectWithRetry(context.Background(), "test", Retry{}, func() (int, error) {
			calls++
			return 0, errDown
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := connectWithRetry(ctx, "test", Retry{Count: 5, Interval: time.Hour}, func() (int, error) {
			return 0, errDown
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPebbleDB(t *testing.T) {
	db, err := OpenPebble(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	type row struct {
		Name string `json:"name"`
	}

	var out row
	assert.ErrorIs(t, db.GetJSON("k", &out), ErrNotFound)

	require.NoError(t, db.PutJSON("k", row{Name: "alice"}))
	require.NoError(t, db.GetJSON("k", &out))
	assert.Equal(t, "alice", out.Name)

	require.NoError(t, db.Delete("k"))
	assert.ErrorIs(t, db.GetJSON("k", &out), ErrNotFound)
	assert.NoError(t, db.Delete("missing"))
}

func TestOpenPebble_LockedRetriesThenFails(t *testing.T) {
	prev := PebbleRetry
	PebbleRetry = Retry{Count: 2, Interval: time.Millisecond}
	t.Cleanup(func() { PebbleRetry = prev })

	dir := t.TempDir()
	db, err := OpenPebble(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = OpenPebble(dir)
	assert.Error(t, err)
}
