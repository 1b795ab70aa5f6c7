package app

import (
	"context"

	"impact_chat/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockEmitter Mock Emitter
type MockEmitter struct {
	mock.Mock
}

// Emit mock emit
func (m *MockEmitter) Emit(name domain.EventName, data any) error {
	args := m.Called(name, data)
	return args.Error(0)
}

// MockHistoryRepository Mock HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

// FetchMessages mock fetch messages
func (m *MockHistoryRepository) FetchMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FetchAttachments mock fetch attachments
func (m *MockHistoryRepository) FetchAttachments(ctx context.Context, roomID string, limit int) ([]domain.Attachment, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageCommandRepository Mock MessageCommandRepository
type MockMessageCommandRepository struct {
	mock.Mock
}

// SendMessage mock send message
func (m *MockMessageCommandRepository) SendMessage(ctx context.Context, token, roomID, text string) (domain.Message, error) {
	args := m.Called(ctx, token, roomID, text)
	return args.Get(0).(domain.Message), args.Error(1)
}

// Upload mock upload
func (m *MockMessageCommandRepository) Upload(ctx context.Context, token, roomID, username string, files []domain.UploadFile) ([]domain.Attachment, error) {
	args := m.Called(ctx, token, roomID, username, files)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// Countries mock list countries
func (m *MockRoomRepository) Countries(ctx context.Context) ([]domain.Country, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Country), args.Error(1)
	}
	return nil, args.Error(1)
}

// Rooms mock list rooms
func (m *MockRoomRepository) Rooms(ctx context.Context, countryCode string) ([]domain.Room, error) {
	args := m.Called(ctx, countryCode)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateRoom mock create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, token, countryCode, name string) (domain.Room, error) {
	args := m.Called(ctx, token, countryCode, name)
	return args.Get(0).(domain.Room), args.Error(1)
}

// MockAuthRepository Mock AuthRepository
type MockAuthRepository struct {
	mock.Mock
}

// Login mock login
func (m *MockAuthRepository) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

// Register mock register
func (m *MockAuthRepository) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

// Me mock whoami
func (m *MockAuthRepository) Me(ctx context.Context, token string) (domain.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.User), args.Error(1)
}

// MockCredentialStore Mock CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

// Load mock load
func (m *MockCredentialStore) Load(ctx context.Context) (domain.Credential, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Credential), args.Error(1)
}

// Save mock save
func (m *MockCredentialStore) Save(ctx context.Context, cred domain.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

// Clear mock clear
func (m *MockCredentialStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
