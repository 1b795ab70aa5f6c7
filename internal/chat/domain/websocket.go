package domain

import "time"

// Session client-held identity and current room
type Session struct {
	Token    string
	UserID   string
	Username string
	RoomID   string
	Expiry   time.Time
}

// JoinState room switch controller state
type JoinState string

const (
	// JoinDisconnected no room bound
	JoinDisconnected JoinState = "DISCONNECTED"
	// JoinJoining join_room sent, waiting for acknowledgement
	JoinJoining JoinState = "JOINING"
	// JoinJoined subscription acknowledged
	JoinJoined JoinState = "JOINED"
	// JoinFailed acknowledgement did not arrive in time
	JoinFailed JoinState = "JOIN_FAILED"
)

// Connectivity transport state shown to the user
type Connectivity string

const (
	// Offline not connected yet or dropped
	Offline Connectivity = "offline"
	// Online connected
	Online Connectivity = "online"
	// ConnectFailed last connect attempt failed
	ConnectFailed Connectivity = "connect_failed"
)

// NoticeKind presence notices rendered inline
type NoticeKind string

const (
	// NoticeJoined user joined the room
	NoticeJoined NoticeKind = "joined"
	// NoticeLeft user left the room
	NoticeLeft NoticeKind = "left"
	// NoticeInfo server informational line
	NoticeInfo NoticeKind = "info"
)

// Notice one presence line
type Notice struct {
	Kind     NoticeKind
	Username string
	RoomID   string
	Text     string
}
