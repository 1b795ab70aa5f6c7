package app

import (
	"context"
	"testing"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type clientFixture struct {
	client    *ChatClient
	transport *fakeTransport
	history   *MockHistoryRepository
	sink      *recordSink
	cancel    context.CancelFunc
	stopped   chan struct{}
}

func startClient(t *testing.T, opts Options, setup func(h *MockHistoryRepository)) *clientFixture {
	t.Helper()

	f := &clientFixture{
		transport: newFakeTransport(),
		history:   new(MockHistoryRepository),
		sink:      &recordSink{},
		stopped:   make(chan struct{}),
	}
	if setup != nil {
		setup(f.history)
	}

	session := NewSessionContext()
	session.SetUsername("alice")
	f.client = NewChatClient(opts, session, f.transport, f.history, f.sink)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		defer close(f.stopped)
		_ = f.client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.stopped
	})
	return f
}

func emptyHistory(h *MockHistoryRepository) {
	h.On("FetchMessages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
	h.On("FetchAttachments", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Attachment{}, nil)
}

func (f *clientFixture) entries(t *testing.T) []domain.DedupKey {
	t.Helper()
	entries, err := f.client.Entries(context.Background())
	require.NoError(t, err)
	return entryKeys(entries)
}

func (f *clientFixture) status(t *testing.T) Status {
	t.Helper()
	st, err := f.client.Status(context.Background())
	require.NoError(t, err)
	return st
}

func TestChatClient_JoinLoadsHistory(t *testing.T) {
	f := startClient(t, Options{}, func(h *MockHistoryRepository) {
		h.On("FetchMessages", mock.Anything, "r1", 50).Return([]domain.Message{testMessage(1, "r1", "bob", "hi", 1)}, nil)
		h.On("FetchAttachments", mock.Anything, "r1", 50).Return([]domain.Attachment{testAttachment(2, "r1", "bob", "a.png", 2)}, nil)
	})

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)
	assert.Equal(t, []domain.DedupKey{"m:1", "a:2"}, f.entries(t))

	joins := f.transport.Emits(domain.EmitJoinRoom)
	require.Len(t, joins, 1)
	assert.Equal(t, domain.JoinRoomPayload{RoomID: "r1"}, joins[0].Data)
	assert.Equal(t, domain.JoinJoining, f.status(t).JoinState)
}

// a live message arriving before the history reply is shown once, in time order
func TestChatClient_LiveDuringHistoryLoad(t *testing.T) {
	m5 := testMessage(5, "r1", "amy", "old", 10)
	m7 := testMessage(7, "r1", "bob", "live", 30)

	f := startClient(t, Options{}, func(h *MockHistoryRepository) {
		h.On("FetchMessages", mock.Anything, "r1", mock.Anything).After(200*time.Millisecond).Return([]domain.Message{m5, m7}, nil)
		h.On("FetchAttachments", mock.Anything, "r1", mock.Anything).Return([]domain.Attachment{}, nil)
	})

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	f.transport.send(domain.EventChatMessage, messagePayload(m7))

	assert.Eventually(t, func() bool { return len(f.sink.Appends()) == 1 }, waitFor, tick)
	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)
	assert.Equal(t, []domain.DedupKey{"m:5", "m:7"}, f.entries(t))

	// the same message pushed again after the load is a duplicate
	f.transport.send(domain.EventChatMessage, messagePayload(m7))
	f.transport.send(domain.EventChatMessage, messagePayload(testMessage(8, "r1", "bob", "next", 40)))
	assert.Eventually(t, func() bool { return len(f.sink.Appends()) == 2 }, waitFor, tick)
	assert.Equal(t, []domain.DedupKey{"m:5", "m:7", "m:8"}, f.entries(t))
}

// an echo without an id is matched to its history copy, in both orders
func TestChatClient_EchoWithoutIDMatchesHistory(t *testing.T) {
	stored := testMessage(1, "r1", "alice", "hi", 1)
	echo := stored
	echo.ID = nil

	f := startClient(t, Options{}, func(h *MockHistoryRepository) {
		h.On("FetchMessages", mock.Anything, "r1", mock.Anything).After(200*time.Millisecond).Return([]domain.Message{stored}, nil)
		h.On("FetchAttachments", mock.Anything, "r1", mock.Anything).Return([]domain.Attachment{}, nil)
	})

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	f.transport.send(domain.EventChatMessage, messagePayload(echo))
	assert.Eventually(t, func() bool { return len(f.sink.Appends()) == 1 }, waitFor, tick)

	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)
	assert.Equal(t, []domain.DedupKey{"m:1"}, f.entries(t))

	// a repeated echo after the load is a duplicate too
	f.transport.send(domain.EventChatMessage, messagePayload(echo))
	f.transport.send(domain.EventChatMessage, messagePayload(testMessage(2, "r1", "bob", "next", 2)))
	assert.Eventually(t, func() bool { return len(f.sink.Appends()) == 2 }, waitFor, tick)
	assert.Equal(t, []domain.DedupKey{"m:1", "m:2"}, f.entries(t))
}

// switching rooms before the first load finishes discards its result
func TestChatClient_StaleHistoryDiscarded(t *testing.T) {
	f := startClient(t, Options{}, func(h *MockHistoryRepository) {
		h.On("FetchMessages", mock.Anything, "r1", mock.Anything).After(300*time.Millisecond).Return([]domain.Message{testMessage(1, "r1", "amy", "r1 msg", 1)}, nil)
		h.On("FetchAttachments", mock.Anything, "r1", mock.Anything).Return([]domain.Attachment{}, nil)
		h.On("FetchMessages", mock.Anything, "r2", mock.Anything).Return([]domain.Message{testMessage(2, "r2", "amy", "r2 msg", 1)}, nil)
		h.On("FetchAttachments", mock.Anything, "r2", mock.Anything).Return([]domain.Attachment{}, nil)
	})

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	require.NoError(t, f.client.JoinRoom(context.Background(), "r2"))

	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)
	// give the slow r1 load time to come back
	time.Sleep(400 * time.Millisecond)

	assert.Len(t, f.sink.Replaces(), 1)
	assert.Equal(t, []domain.DedupKey{"m:2"}, f.entries(t))
	assert.Equal(t, "r2", f.status(t).RoomID)

	leaves := f.transport.Emits(domain.EmitLeaveRoom)
	require.Len(t, leaves, 1)
	assert.Equal(t, domain.LeaveRoomPayload{RoomID: "r1"}, leaves[0].Data)
}

func TestChatClient_TypingExpires(t *testing.T) {
	f := startClient(t, Options{TypingTimeout: 80 * time.Millisecond}, emptyHistory)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	f.transport.send(domain.EventTyping, domain.PresencePayload{Username: "bob", RoomID: "r1"})
	assert.Eventually(t, func() bool { return f.status(t).Typing == "bob" }, waitFor, tick)

	assert.Eventually(t, func() bool {
		typing := f.sink.Typing()
		return len(typing) >= 3 && typing[len(typing)-1] == ""
	}, waitFor, tick)
	assert.Empty(t, f.status(t).Typing)
}

func TestChatClient_TypingResignalKeepsIndicator(t *testing.T) {
	f := startClient(t, Options{TypingTimeout: 150 * time.Millisecond}, emptyHistory)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	f.transport.send(domain.EventTyping, domain.PresencePayload{Username: "bob", RoomID: "r1"})
	time.Sleep(100 * time.Millisecond)
	f.transport.send(domain.EventTyping, domain.PresencePayload{Username: "bob", RoomID: "r1"})
	time.Sleep(100 * time.Millisecond)

	// first deadline has passed, the second has not
	assert.Equal(t, "bob", f.status(t).Typing)
	assert.Eventually(t, func() bool { return f.status(t).Typing == "" }, waitFor, tick)
}

func TestChatClient_EchoAckJoins(t *testing.T) {
	f := startClient(t, Options{}, emptyHistory)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	f.transport.send(domain.EventUserJoined, domain.PresencePayload{Username: "alice", RoomID: "r1"})
	assert.Eventually(t, func() bool { return f.status(t).JoinState == domain.JoinJoined }, waitFor, tick)
}

func TestChatClient_JoinTimeout(t *testing.T) {
	f := startClient(t, Options{JoinTimeout: 80 * time.Millisecond}, emptyHistory)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	assert.Eventually(t, func() bool { return f.status(t).JoinState == domain.JoinFailed }, waitFor, tick)

	// retry by joining again
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	f.transport.send(domain.EventUserJoined, domain.PresencePayload{Username: "alice", RoomID: "r1"})
	assert.Eventually(t, func() bool { return f.status(t).JoinState == domain.JoinJoined }, waitFor, tick)
}

func TestChatClient_JoinEmitFailure(t *testing.T) {
	f := startClient(t, Options{JoinAck: config.JoinAckFireAndForget}, emptyHistory)
	f.transport.setFailing(true)

	err := f.client.JoinRoom(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindConnectivity))

	// history still loads, the room stays bound in JOINING
	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)
	st := f.status(t)
	assert.Equal(t, "r1", st.RoomID)
	assert.Equal(t, domain.JoinJoining, st.JoinState)
}

func TestChatClient_ReconnectRejoinsAndReloads(t *testing.T) {
	f := startClient(t, Options{JoinAck: config.JoinAckFireAndForget}, emptyHistory)

	f.transport.send(domain.EventConnect, nil)
	assert.Eventually(t, func() bool { return len(f.transport.Emits(domain.EmitSetProfile)) == 1 }, waitFor, tick)
	assert.Equal(t, domain.SetProfilePayload{Name: "alice"}, f.transport.Emits(domain.EmitSetProfile)[0].Data)

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 1 }, waitFor, tick)

	f.transport.send(domain.EventDisconnect, domain.InfoPayload{Message: "eof"})
	f.transport.send(domain.EventConnect, nil)

	assert.Eventually(t, func() bool { return len(f.transport.Emits(domain.EmitJoinRoom)) == 2 }, waitFor, tick)
	assert.Eventually(t, func() bool { return len(f.sink.Replaces()) == 2 }, waitFor, tick)
	assert.Equal(t, domain.Online, f.status(t).Connectivity)
}

// the timer of the first join must not fail the rejoin that follows a reconnect
func TestChatClient_ReconnectIgnoresEarlierJoinTimer(t *testing.T) {
	f := startClient(t, Options{JoinTimeout: 400 * time.Millisecond}, emptyHistory)

	f.transport.send(domain.EventConnect, nil)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	f.transport.send(domain.EventUserJoined, domain.PresencePayload{Username: "alice", RoomID: "r1"})
	assert.Eventually(t, func() bool { return f.status(t).JoinState == domain.JoinJoined }, waitFor, tick)

	time.Sleep(250 * time.Millisecond)
	f.transport.send(domain.EventDisconnect, domain.InfoPayload{Message: "eof"})
	f.transport.send(domain.EventConnect, nil)
	assert.Eventually(t, func() bool { return len(f.transport.Emits(domain.EmitJoinRoom)) == 2 }, waitFor, tick)

	// first join's deadline passes, the rejoin's has not
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, domain.JoinJoining, f.status(t).JoinState)

	f.transport.send(domain.EventUserJoined, domain.PresencePayload{Username: "alice", RoomID: "r1"})
	assert.Eventually(t, func() bool { return f.status(t).JoinState == domain.JoinJoined }, waitFor, tick)
	assert.NotContains(t, f.sink.JoinStates(), domain.JoinFailed)
}

func TestChatClient_LegacyProfile(t *testing.T) {
	f := startClient(t, Options{APIMode: config.APIModeLegacy}, emptyHistory)

	f.transport.send(domain.EventConnect, nil)
	assert.Eventually(t, func() bool { return len(f.transport.Emits(domain.EmitSetUsername)) == 1 }, waitFor, tick)
	assert.Empty(t, f.transport.Emits(domain.EmitSetProfile))
}

func TestChatClient_UnknownEventIgnored(t *testing.T) {
	f := startClient(t, Options{}, emptyHistory)
	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))

	f.transport.push <- domain.Envelope{Event: "reaction_added", Data: []byte(`{"emoji":"+1"}`)}
	f.transport.send(domain.EventChatMessage, messagePayload(testMessage(1, "r1", "bob", "hi", 1)))

	assert.Eventually(t, func() bool { return len(f.sink.Appends()) == 1 }, waitFor, tick)
	assert.Empty(t, f.sink.Errors())
}

func TestChatClient_LeaveRoom(t *testing.T) {
	f := startClient(t, Options{}, emptyHistory)

	err := f.client.LeaveRoom(context.Background())
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	require.NoError(t, f.client.LeaveRoom(context.Background()))

	st := f.status(t)
	assert.Empty(t, st.RoomID)
	assert.Equal(t, domain.JoinDisconnected, st.JoinState)
	assert.Len(t, f.transport.Emits(domain.EmitLeaveRoom), 1)
}

func TestChatClient_TypingThrottle(t *testing.T) {
	f := startClient(t, Options{TypingThrottle: time.Second}, emptyHistory)

	err := f.client.Typing(context.Background())
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))

	require.NoError(t, f.client.JoinRoom(context.Background(), "r1"))
	require.NoError(t, f.client.Typing(context.Background()))
	require.NoError(t, f.client.Typing(context.Background()))
	assert.Len(t, f.transport.Emits(domain.EventTyping), 1)
}

func TestChatClient_Stopped(t *testing.T) {
	f := startClient(t, Options{}, emptyHistory)
	f.cancel()
	<-f.stopped

	assert.ErrorIs(t, f.client.JoinRoom(context.Background(), "r1"), ErrClientStopped)
	assert.NotEmpty(t, f.client.ID())
}
