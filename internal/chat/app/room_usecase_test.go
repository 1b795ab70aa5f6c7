package app

import (
	"context"
	"testing"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoomUseCase_Rooms(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRoomRepository)
	repo.On("Rooms", ctx, "TW").Return([]domain.Room{{ID: "1", Name: "general"}}, nil)

	uc := NewRoomUseCase(repo, NewSessionContext())
	rooms, err := uc.Rooms(ctx, " tw ")

	require.NoError(t, err)
	assert.Equal(t, "general", rooms[0].Name)
	repo.AssertExpectations(t)

	_, err = uc.Rooms(ctx, "TWN")
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

func TestRoomUseCase_CreateRoom(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRoomRepository)
	repo.On("CreateRoom", ctx, "tok", "US", "golang").Return(domain.Room{ID: "9", Name: "golang"}, nil)

	uc := NewRoomUseCase(repo, newSession("tok", "alice", ""))
	room, err := uc.CreateRoom(ctx, "us", " golang ")

	require.NoError(t, err)
	assert.Equal(t, "9", room.ID)
	repo.AssertExpectations(t)
}

func TestRoomUseCase_CreateRoomConflict(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRoomRepository)
	repo.On("CreateRoom", ctx, "tok", "US", "golang").Return(domain.Room{}, errprocess.Command("create room", 409, "Room already exists"))

	uc := NewRoomUseCase(repo, newSession("tok", "alice", ""))
	_, err := uc.CreateRoom(ctx, "US", "golang")

	assert.True(t, errprocess.IsKind(err, errprocess.KindCommand))
	assert.Equal(t, "Room already exists", errprocess.DetailOf(err))
}

func TestRoomUseCase_CreateRoomRequiresLogin(t *testing.T) {
	repo := new(MockRoomRepository)
	uc := NewRoomUseCase(repo, NewSessionContext())

	_, err := uc.CreateRoom(context.Background(), "US", "golang")
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))

	_, err = uc.CreateRoom(context.Background(), "US", "")
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
	repo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
