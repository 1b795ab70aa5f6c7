package encrypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"ok", "s3cret", nil},
		{"unicode counts runes", "密碼密碼密碼", nil},
		{"empty", "", ErrEmptyPassword},
		{"short", "abc", ErrPasswordTooShort},
		{"long", strings.Repeat("x", MaxPasswordLen+1), ErrPasswordTooLong},
		{"padded", " s3cret ", ErrPasswordSpaces},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, h.Check(hash, "s3cret"))
	assert.ErrorIs(t, h.Check(hash, "wrong!"), ErrPasswordMismatch)

	err = h.Check("not-a-hash", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHasher_RejectsInvalid(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestNewHasher_CostOutOfRange(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
}
