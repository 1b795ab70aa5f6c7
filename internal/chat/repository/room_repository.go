package repository

import (
	"context"
	"net/url"

	"impact_chat/internal/chat/domain"
)

// Countries GET /rooms/countries
func (r *CommandRepository) Countries(ctx context.Context) ([]domain.Country, error) {
	var out []domain.Country
	err := r.api.do(ctx, request{op: "countries", method: "GET", path: "/rooms/countries"}, &out)
	return out, err
}

// Rooms GET /rooms?code=
func (r *CommandRepository) Rooms(ctx context.Context, countryCode string) ([]domain.Room, error) {
	var out []domain.Room
	err := r.api.do(ctx, request{
		op:     "rooms",
		method: "GET",
		path:   "/rooms",
		query:  url.Values{"code": {countryCode}},
	}, &out)
	return out, err
}

// CreateRoom POST /rooms/create?code=&name=
func (r *CommandRepository) CreateRoom(ctx context.Context, token, countryCode, name string) (domain.Room, error) {
	var out domain.Room
	err := r.api.do(ctx, request{
		op:     "create room",
		method: "POST",
		path:   "/rooms/create",
		query:  url.Values{"code": {countryCode}, "name": {name}},
		token:  token,
	}, &out)
	return out, err
}

// Login POST /auth/login
func (r *CommandRepository) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResult, error) {
	var out domain.AuthResult
	body, err := jsonBody(req)
	if err != nil {
		return out, err
	}
	err = r.api.do(ctx, request{
		op:          "login",
		method:      "POST",
		path:        "/auth/login",
		contentType: "application/json",
		body:        body,
	}, &out)
	return out, err
}

// Register POST /auth/register
func (r *CommandRepository) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResult, error) {
	var out domain.AuthResult
	body, err := jsonBody(req)
	if err != nil {
		return out, err
	}
	err = r.api.do(ctx, request{
		op:          "register",
		method:      "POST",
		path:        "/auth/register",
		contentType: "application/json",
		body:        body,
	}, &out)
	return out, err
}

// Me GET /auth/me
func (r *CommandRepository) Me(ctx context.Context, token string) (domain.User, error) {
	var out domain.User
	err := r.api.do(ctx, request{op: "whoami", method: "GET", path: "/auth/me", token: token}, &out)
	return out, err
}
