package app

import (
	"context"
	"strings"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/metrics"
)

// RoomRepository room directory endpoints
type RoomRepository interface {
	Countries(ctx context.Context) ([]domain.Country, error)
	Rooms(ctx context.Context, countryCode string) ([]domain.Room, error)
	CreateRoom(ctx context.Context, token, countryCode, name string) (domain.Room, error)
}

// RoomUseCase - 房間目錄 (國家 / 房間列表 / 建立房間)
type RoomUseCase struct {
	roomRepo RoomRepository
	session  *SessionContext
}

// NewRoomUseCase init room use case
func NewRoomUseCase(r RoomRepository, session *SessionContext) *RoomUseCase {
	return &RoomUseCase{
		roomRepo: r,
		session:  session,
	}
}

// Countries list countries
func (uc *RoomUseCase) Countries(ctx context.Context) ([]domain.Country, error) {
	return uc.roomRepo.Countries(ctx)
}

// Rooms list rooms of a country
func (uc *RoomUseCase) Rooms(ctx context.Context, countryCode string) ([]domain.Room, error) {
	code, err := normalizeCountry(countryCode)
	if err != nil {
		return nil, err
	}
	return uc.roomRepo.Rooms(ctx, code)
}

// CreateRoom create a room in a country, the server rejects duplicates with 409
func (uc *RoomUseCase) CreateRoom(ctx context.Context, countryCode, name string) (domain.Room, error) {
	code, err := normalizeCountry(countryCode)
	if err != nil {
		return domain.Room{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, errprocess.Validation("create_room", "room name required")
	}
	t := uc.session.Current().Token
	if t == "" {
		return domain.Room{}, errprocess.Validation("create_room", "login required")
	}

	room, err := uc.roomRepo.CreateRoom(ctx, t, code, name)
	if err != nil {
		metrics.Commands.WithLabelValues("create_room", "error").Inc()
		return domain.Room{}, err
	}
	metrics.Commands.WithLabelValues("create_room", "ok").Inc()
	return room, nil
}

func normalizeCountry(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", errprocess.Validation("country", "country code must be 2 letters")
	}
	return code, nil
}
