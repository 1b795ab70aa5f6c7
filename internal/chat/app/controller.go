package app

import (
	"strings"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"go.uber.org/zap"
)

// Emitter outbound side of the push transport
type Emitter interface {
	Emit(name domain.EventName, data any) error
}

// RoomSwitchController moves the client between rooms:
// DISCONNECTED -> JOINING -> JOINED, or JOINING -> JOIN_FAILED on timeout.
type RoomSwitchController struct {
	session  *SessionContext
	presence *PresenceTimer
	dedup    *DedupSet
	timeline *Timeline
	emitter  Emitter
	sink     Sink
	mode     config.APIMode
	ack      config.JoinAck

	state     domain.JoinState
	stateRoom string
	attempt   uint64
}

// NewRoomSwitchController create RoomSwitchController
func NewRoomSwitchController(
	session *SessionContext,
	presence *PresenceTimer,
	dedup *DedupSet,
	timeline *Timeline,
	emitter Emitter,
	sink Sink,
	mode config.APIMode,
	ack config.JoinAck,
) *RoomSwitchController {
	return &RoomSwitchController{
		session:  session,
		presence: presence,
		dedup:    dedup,
		timeline: timeline,
		emitter:  emitter,
		sink:     sink,
		mode:     mode,
		ack:      ack,
		state:    domain.JoinDisconnected,
	}
}

// State current join state
func (c *RoomSwitchController) State() domain.JoinState {
	return c.state
}

// Attempt id of the latest join_room emit, armed on the join timer.
// A reconnect re-emits without a room switch, so the session epoch alone
// cannot tell an old timer from the current one.
func (c *RoomSwitchController) Attempt() uint64 {
	return c.attempt
}

// Request switch to roomID. The returned epoch identifies this switch for
// the history load. An emit failure is returned but the
// controller stays JOINING; nothing is retried.
func (c *RoomSwitchController) Request(roomID string) (uint64, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return 0, errprocess.Validation("join_room", "room id required")
	}

	if old := c.session.RoomID(); old != "" && old != roomID {
		if err := c.emitter.Emit(domain.EmitLeaveRoom, domain.LeaveRoomPayload{RoomID: old}); err != nil {
			logger.Log.Debug("leave_room not sent", zap.String("room_id", old), zap.Error(err))
		}
	}

	c.presence.Clear()
	c.dedup.Reset()
	c.timeline.Reset()
	epoch := c.session.SetRoom(roomID)
	c.sink.OnRoomSwitched(roomID)
	c.sink.OnTyping("", false)

	return epoch, c.emitJoin(roomID)
}

// Rejoin re-emit join_room for the bound room after a (re)connect
func (c *RoomSwitchController) Rejoin() error {
	roomID := c.session.RoomID()
	if roomID == "" {
		return nil
	}
	return c.emitJoin(roomID)
}

func (c *RoomSwitchController) emitJoin(roomID string) error {
	c.attempt++
	c.setState(roomID, domain.JoinJoining)

	payload := domain.JoinRoomPayload{RoomID: roomID}
	if c.mode == config.APIModeLegacy {
		payload = domain.JoinRoomPayload{Room: roomID}
	}

	if err := c.emitter.Emit(domain.EmitJoinRoom, payload); err != nil {
		metrics.Joins.WithLabelValues("emit_error").Inc()
		cerr := errprocess.Connectivity("join_room "+roomID, err)
		c.sink.OnError(cerr)
		return cerr
	}

	if c.ack == config.JoinAckFireAndForget {
		c.joined(roomID)
	}
	return nil
}

// OnAck feed an accepted user_joined / room_changed; true when it completed the join
func (c *RoomSwitchController) OnAck(ev domain.Event) bool {
	if c.state != domain.JoinJoining {
		return false
	}
	roomID := c.session.RoomID()
	// unscoped echoes come from deployments without room tagging
	if ev.RoomID != "" && ev.RoomID != roomID {
		return false
	}

	switch ev.Name {
	case domain.EventRoomChanged:
	case domain.EventUserJoined:
		if ev.Username != c.session.Current().Username {
			return false
		}
	default:
		return false
	}

	c.joined(roomID)
	return true
}

// OnJoinTimeout join timer fired for attempt; true when it failed the join
func (c *RoomSwitchController) OnJoinTimeout(attempt uint64) bool {
	if c.state != domain.JoinJoining || attempt != c.attempt {
		return false
	}
	roomID := c.session.RoomID()
	metrics.Joins.WithLabelValues("failed").Inc()
	logger.Log.Warn("join timed out", zap.String("room_id", roomID))
	c.setState(roomID, domain.JoinFailed)
	return true
}

// Reset back to DISCONNECTED (logout)
func (c *RoomSwitchController) Reset() {
	c.presence.Clear()
	c.dedup.Reset()
	c.timeline.Reset()
	c.setState("", domain.JoinDisconnected)
}

func (c *RoomSwitchController) joined(roomID string) {
	metrics.Joins.WithLabelValues("joined").Inc()
	c.setState(roomID, domain.JoinJoined)
}

func (c *RoomSwitchController) setState(roomID string, s domain.JoinState) {
	if c.state == s && c.stateRoom == roomID {
		return
	}
	c.state = s
	c.stateRoom = roomID
	c.sink.OnJoinState(roomID, s)
}
