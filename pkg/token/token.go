package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims the server issues `sub` (user id) and `exp`
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT generates a HS256 token, used by local test servers
func GenerateJWT(userID, name string, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseJWT parses and verifies a HS256 token
func ParseJWT(tokenStr string, secret []byte) (*Claims, error) {
	t, err := jwt.ParseWithClaims(StripBearer(tokenStr), &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Inspect decodes claims without verifying the signature.
// The client never holds the signing secret; this only reads sub / exp.
func Inspect(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(StripBearer(tokenStr), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired true when the token carries an exp in the past
func Expired(tokenStr string, now time.Time) bool {
	claims, err := Inspect(tokenStr)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// StripBearer drop an optional "Bearer " prefix
func StripBearer(t string) string {
	return strings.TrimPrefix(strings.TrimSpace(t), "Bearer ")
}
