package app

import "impact_chat/internal/chat/domain"

// Sink receives everything the user should see. All calls come from the
// client event loop, one at a time.
type Sink interface {
	// OnRoomSwitched display cleared for a new room
	OnRoomSwitched(roomID string)
	// OnReplace full replace of the displayed sequence
	OnReplace(entries []domain.Entry)
	// OnAppend one live entry
	OnAppend(entry domain.Entry)
	OnNotice(n domain.Notice)
	OnTyping(author string, active bool)
	OnConnectivity(state domain.Connectivity, detail string)
	OnJoinState(roomID string, state domain.JoinState)
	// OnError non-fatal errors (connectivity, history fetch, command)
	OnError(err error)
}
