package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EventName websocket event name
type EventName string

const (
	// EventConnect transport connected
	EventConnect EventName = "connect"
	// EventConnectError transport failed to connect
	EventConnectError EventName = "connect_error"
	// EventDisconnect transport dropped
	EventDisconnect EventName = "disconnect"
	// EventUserJoined someone joined a room
	EventUserJoined EventName = "user_joined"
	// EventUserLeft someone left a room
	EventUserLeft EventName = "user_left"
	// EventTyping someone is typing, also the outbound typing signal
	EventTyping EventName = "typing"
	// EventChatMessage new message, also the legacy outbound send
	EventChatMessage EventName = "chat_message"
	// EventFileUploaded new attachment
	EventFileUploaded EventName = "file_uploaded"
	// EventRoomChanged legacy server join acknowledgement
	EventRoomChanged EventName = "room_changed"
	// EventServerInfo legacy server greeting
	EventServerInfo EventName = "server_info"

	// EmitJoinRoom outbound join_room
	EmitJoinRoom EventName = "join_room"
	// EmitLeaveRoom outbound leave_room
	EmitLeaveRoom EventName = "leave_room"
	// EmitSetUsername outbound set_username (legacy)
	EmitSetUsername EventName = "set_username"
	// EmitSetProfile outbound set_profile
	EmitSetProfile EventName = "set_profile"
)

var inboundEvents = map[EventName]struct{}{
	EventConnect:      {},
	EventConnectError: {},
	EventDisconnect:   {},
	EventUserJoined:   {},
	EventUserLeft:     {},
	EventTyping:       {},
	EventChatMessage:  {},
	EventFileUploaded: {},
	EventRoomChanged:  {},
	EventServerInfo:   {},
}

// Known reports whether n is part of the inbound event set
func (n EventName) Known() bool {
	_, ok := inboundEvents[n]
	return ok
}

// ErrUnknownEvent inbound event name outside the known set
var ErrUnknownEvent = errors.New("unknown event")

// Envelope wire frame {"event": ..., "data": ...}
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshal data into an envelope
func NewEnvelope(name EventName, data any) (Envelope, error) {
	if data == nil {
		return Envelope{Event: name}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: raw}, nil
}

// MessagePayload chat_message and history message row
type MessagePayload struct {
	ID        *int64 `json:"id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	Room      string `json:"room,omitempty"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// ToMessage convert to the domain model
func (p MessagePayload) ToMessage() (Message, error) {
	at, err := ParseTime(p.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        p.ID,
		RoomID:    firstNonEmpty(p.RoomID, p.Room),
		Username:  p.Username,
		Text:      p.Text,
		CreatedAt: at,
	}, nil
}

// AttachmentPayload file_uploaded and history attachment row
type AttachmentPayload struct {
	ID           *int64 `json:"id,omitempty"`
	RoomID       string `json:"room_id,omitempty"`
	Room         string `json:"room,omitempty"`
	Username     string `json:"username"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	URL          string `json:"url"`
	CreatedAt    string `json:"created_at"`
}

// ToAttachment convert to the domain model
func (p AttachmentPayload) ToAttachment() (Attachment, error) {
	at, err := ParseTime(p.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{
		ID:           p.ID,
		RoomID:       firstNonEmpty(p.RoomID, p.Room),
		Username:     p.Username,
		OriginalName: p.OriginalName,
		MimeType:     p.MimeType,
		SizeBytes:    p.SizeBytes,
		URL:          p.URL,
		CreatedAt:    at,
	}, nil
}

// PresencePayload user_joined, user_left, typing
type PresencePayload struct {
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
}

// RoomChangedPayload room_changed
type RoomChangedPayload struct {
	Room string `json:"room"`
}

// InfoPayload connect_error, server_info
type InfoPayload struct {
	Message string `json:"message"`
	SID     string `json:"sid,omitempty"`
}

// JoinRoomPayload outbound join_room, room_id or legacy room
type JoinRoomPayload struct {
	RoomID string `json:"room_id,omitempty"`
	Room   string `json:"room,omitempty"`
}

// LeaveRoomPayload outbound leave_room
type LeaveRoomPayload struct {
	RoomID string `json:"room_id"`
}

// TypingPayload outbound typing
type TypingPayload struct {
	RoomID string `json:"room_id,omitempty"`
}

// SendMessagePayload outbound legacy chat_message
type SendMessagePayload struct {
	Text string `json:"text"`
	Room string `json:"room,omitempty"`
}

// SetUsernamePayload outbound set_username
type SetUsernamePayload struct {
	Username string `json:"username"`
}

// SetProfilePayload outbound set_profile
type SetProfilePayload struct {
	Name string `json:"name"`
}

// Event decoded inbound event handed to the live router
type Event struct {
	Name     EventName
	RoomID   string
	Username string
	Detail   string
	Entry    *Entry
}

// DecodeEvent turn a wire envelope into an Event
func DecodeEvent(env Envelope) (Event, error) {
	ev := Event{Name: env.Event}
	if !env.Event.Known() {
		return ev, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	switch env.Event {
	case EventConnect, EventDisconnect:
		return ev, nil

	case EventConnectError, EventServerInfo:
		var p InfoPayload
		if err := unmarshalData(env, &p); err != nil {
			return ev, err
		}
		ev.Detail = p.Message

	case EventUserJoined, EventUserLeft, EventTyping:
		var p PresencePayload
		if err := unmarshalData(env, &p); err != nil {
			return ev, err
		}
		ev.Username = p.Username
		ev.RoomID = firstNonEmpty(p.RoomID, p.Room)

	case EventRoomChanged:
		var p RoomChangedPayload
		if err := unmarshalData(env, &p); err != nil {
			return ev, err
		}
		ev.RoomID = p.Room

	case EventChatMessage:
		var p MessagePayload
		if err := unmarshalData(env, &p); err != nil {
			return ev, err
		}
		m, err := p.ToMessage()
		if err != nil {
			return ev, err
		}
		e := MessageEntry(m)
		ev.Entry = &e
		ev.RoomID = m.RoomID
		ev.Username = m.Username

	case EventFileUploaded:
		var p AttachmentPayload
		if err := unmarshalData(env, &p); err != nil {
			return ev, err
		}
		a, err := p.ToAttachment()
		if err != nil {
			return ev, err
		}
		e := AttachmentEntry(a)
		ev.Entry = &e
		ev.RoomID = a.RoomID
		ev.Username = a.Username
	}

	return ev, nil
}

func unmarshalData(env Envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", env.Event, err)
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime accepts RFC3339 and the zone-less ISO form the server emits (read as UTC)
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid created_at %q", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
