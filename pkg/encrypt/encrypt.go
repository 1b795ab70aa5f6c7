package encrypt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLen shortest password an account accepts
	MinPasswordLen = 6
	// MaxPasswordLen bcrypt ignores input past 72 bytes
	MaxPasswordLen = 72
)

var (
	ErrEmptyPassword    = errors.New("password is empty")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
	ErrPasswordSpaces   = errors.New("password must not start or end with whitespace")
	ErrPasswordMismatch = errors.New("password does not match")
)

// ValidatePassword account password rules, checked before hashing
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case len([]rune(password)) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLen:
		return ErrPasswordTooLong
	case strings.TrimSpace(password) != password:
		return ErrPasswordSpaces
	}
	return nil
}

// Hasher bcrypt with a fixed cost; test servers use bcrypt.MinCost
type Hasher struct {
	cost int
}

// NewHasher cost outside bcrypt's range falls back to bcrypt.DefaultCost
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash validate then hash password
func (h Hasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Check ErrPasswordMismatch for a wrong password, a wrapped error for a broken hash
func (h Hasher) Check(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("check password: %w", err)
	}
}
