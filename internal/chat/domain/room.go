package domain

import "errors"

// ErrNoCredential nothing stored yet
var ErrNoCredential = errors.New("no stored credential")

// Country room directory grouping
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Room chat room listed in a country
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User account returned by auth endpoints
type User struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
}

// AuthResult login / register reply
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// LoginRequest POST /auth/login body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest POST /auth/register body
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Gender   string `json:"gender,omitempty"`
}

// Credential persisted between runs
type Credential struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"user_id,omitempty"`
}
