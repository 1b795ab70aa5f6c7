package app

import (
	"time"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"go.uber.org/zap"
)

// RouteOutcome what the router did with a push event
type RouteOutcome string

const (
	// RouteAccepted forwarded to state / sink
	RouteAccepted RouteOutcome = "accepted"
	// RouteDroppedRoom carried another room id
	RouteDroppedRoom RouteOutcome = "dropped_room"
	// RouteDuplicate key already seen
	RouteDuplicate RouteOutcome = "duplicate"
	// RouteUnknown name outside the known set
	RouteUnknown RouteOutcome = "unknown"
)

// LiveEventRouter filters push events by room, drops duplicates and
// forwards the rest in arrival order.
type LiveEventRouter struct {
	session  *SessionContext
	dedup    *DedupSet
	presence *PresenceTimer
	timeline *Timeline
	sink     Sink
	now      func() time.Time

	connectivity domain.Connectivity
}

// NewLiveEventRouter create LiveEventRouter
func NewLiveEventRouter(
	session *SessionContext,
	dedup *DedupSet,
	presence *PresenceTimer,
	timeline *Timeline,
	sink Sink,
	now func() time.Time,
) *LiveEventRouter {
	if now == nil {
		now = time.Now
	}
	return &LiveEventRouter{
		session:      session,
		dedup:        dedup,
		presence:     presence,
		timeline:     timeline,
		sink:         sink,
		now:          now,
		connectivity: domain.Offline,
	}
}

// Connectivity last transport state seen
func (r *LiveEventRouter) Connectivity() domain.Connectivity {
	return r.connectivity
}

// OnPush route one inbound event
func (r *LiveEventRouter) OnPush(ev domain.Event) RouteOutcome {
	outcome := r.route(ev)
	metrics.LiveEvents.WithLabelValues(string(ev.Name), string(outcome)).Inc()
	return outcome
}

func (r *LiveEventRouter) route(ev domain.Event) RouteOutcome {
	if !ev.Name.Known() {
		logger.Log.Warn("unknown push event", zap.String("event", string(ev.Name)))
		return RouteUnknown
	}

	switch ev.Name {
	case domain.EventConnect:
		r.connectivity = domain.Online
		r.sink.OnConnectivity(domain.Online, "")
		return RouteAccepted
	case domain.EventConnectError:
		r.connectivity = domain.ConnectFailed
		r.sink.OnConnectivity(domain.ConnectFailed, ev.Detail)
		r.sink.OnError(errprocess.Connectivity("connect", errString(ev.Detail)))
		return RouteAccepted
	case domain.EventDisconnect:
		r.connectivity = domain.Offline
		r.sink.OnConnectivity(domain.Offline, ev.Detail)
		return RouteAccepted
	case domain.EventServerInfo:
		r.sink.OnNotice(domain.Notice{Kind: domain.NoticeInfo, Text: ev.Detail})
		return RouteAccepted
	}

	// events without a room id are global (legacy server) and always pass
	current := r.session.RoomID()
	if ev.RoomID != "" && ev.RoomID != current {
		return RouteDroppedRoom
	}

	switch ev.Name {
	case domain.EventTyping:
		if current == "" {
			return RouteDroppedRoom
		}
		r.presence.Signal(ev.Username, r.now())
		r.sink.OnTyping(ev.Username, true)

	case domain.EventUserJoined:
		r.sink.OnNotice(domain.Notice{Kind: domain.NoticeJoined, Username: ev.Username, RoomID: ev.RoomID})

	case domain.EventUserLeft:
		r.sink.OnNotice(domain.Notice{Kind: domain.NoticeLeft, Username: ev.Username, RoomID: ev.RoomID})

	case domain.EventRoomChanged:
		// join acknowledgement only, handled by the controller

	case domain.EventChatMessage, domain.EventFileUploaded:
		if ev.Entry == nil || current == "" {
			return RouteDroppedRoom
		}
		if !r.dedup.AddEntry(*ev.Entry) {
			return RouteDuplicate
		}
		r.timeline.AppendLive(*ev.Entry)
		r.sink.OnAppend(*ev.Entry)
	}

	return RouteAccepted
}

type errString string

func (e errString) Error() string {
	if e == "" {
		return "connect failed"
	}
	return string(e)
}
