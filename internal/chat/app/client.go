package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClientStopped the event loop is not running anymore
var ErrClientStopped = errors.New("chat client stopped")

// Transport push channel: outbound emits plus an inbound pump.
// Run connects (and reconnects) until ctx is done, delivering every frame
// and the synthetic connect / disconnect / connect_error events on out.
type Transport interface {
	Emitter
	Run(ctx context.Context, out chan<- domain.Envelope) error
}

// Options client tuning, see config.ChatConfig
type Options struct {
	APIMode        config.APIMode
	JoinAck        config.JoinAck
	JoinTimeout    time.Duration
	TypingTimeout  time.Duration
	TypingThrottle time.Duration
	HistoryLimit   int
	DedupCapacity  int
}

// OptionsFromConfig map the YAML config onto Options
func OptionsFromConfig(cfg config.Client) Options {
	return Options{
		APIMode:        cfg.Server.APIMode,
		JoinAck:        cfg.Chat.JoinAck,
		JoinTimeout:    cfg.Chat.JoinTimeout,
		TypingTimeout:  cfg.Chat.TypingTimeout,
		TypingThrottle: cfg.Chat.TypingThrottle,
		HistoryLimit:   cfg.Chat.HistoryLimit,
		DedupCapacity:  cfg.Chat.DedupCapacity,
	}
}

type timerKind int

const (
	timerTypingExpire timerKind = iota
	timerJoinTimeout
)

// timerFire seq is the room epoch for typing timers and the join attempt
// for join timers
type timerFire struct {
	kind timerKind
	seq  uint64
}

// Status snapshot of the client state
type Status struct {
	Username     string              `json:"username"`
	RoomID       string              `json:"room_id"`
	JoinState    domain.JoinState    `json:"join_state"`
	Connectivity domain.Connectivity `json:"connectivity"`
	Typing       string              `json:"typing,omitempty"`
	Entries      int                 `json:"entries"`
}

// ChatClient owns the room sync state and runs the single event loop that
// mutates it. Public methods post into the loop and wait for the result.
type ChatClient struct {
	id        string
	log       *logger.LogInfo
	opts      Options
	session   *SessionContext
	transport Transport
	sink      Sink
	now       func() time.Time

	presence   *PresenceTimer
	dedup      *DedupSet
	timeline   *Timeline
	router     *LiveEventRouter
	reconciler *HistoryReconciler
	controller *RoomSwitchController

	inbound chan domain.Envelope
	results chan HistoryResult
	timers  chan timerFire
	cmds    chan func(ctx context.Context)
	done    chan struct{}

	historyCancel context.CancelFunc
	connectedOnce bool
	lastTyping    time.Time
}

// NewChatClient wire every component around one SessionContext
func NewChatClient(opts Options, session *SessionContext, transport Transport, history HistoryRepository, sink Sink) *ChatClient {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 5 * time.Second
	}
	if opts.JoinAck == "" {
		opts.JoinAck = config.JoinAckEcho
	}
	if opts.APIMode == "" {
		opts.APIMode = config.APIModeChat
	}

	id := uuid.NewString()
	c := &ChatClient{
		id:        id,
		log:       logger.Log.With(zap.String("client_id", id)),
		opts:      opts,
		session:   session,
		transport: transport,
		sink:      sink,
		now:       time.Now,
		inbound:   make(chan domain.Envelope, 64),
		results:   make(chan HistoryResult, 4),
		timers:    make(chan timerFire, 8),
		cmds:      make(chan func(ctx context.Context)),
		done:      make(chan struct{}),
	}

	// history pages of both kinds must fit in the dedup window, two keys per entry
	c.presence = NewPresenceTimer(opts.TypingTimeout)
	c.dedup = NewDedupSet(opts.DedupCapacity, 4*opts.HistoryLimit)
	c.timeline = NewTimeline()
	c.router = NewLiveEventRouter(session, c.dedup, c.presence, c.timeline, sink, c.now)
	c.reconciler = NewHistoryReconciler(history, session, c.dedup, c.timeline, sink, opts.HistoryLimit)
	c.controller = NewRoomSwitchController(session, c.presence, c.dedup, c.timeline, transport, sink, opts.APIMode, opts.JoinAck)
	return c
}

// ID client instance id, attached to every log line of this client
func (c *ChatClient) ID() string {
	return c.id
}

// Session shared session context
func (c *ChatClient) Session() *SessionContext {
	return c.session
}

// Run start the transport and process events until ctx is done. Call once.
func (c *ChatClient) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(c.done)
	}()

	go func() {
		if err := c.transport.Run(ctx, c.inbound); err != nil && ctx.Err() == nil {
			c.log.Error("transport stopped", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case env := <-c.inbound:
			c.handleEnvelope(ctx, env)

		case res := <-c.results:
			c.reconciler.Apply(res)

		case t := <-c.timers:
			c.handleTimer(t)

		case fn := <-c.cmds:
			fn(ctx)
		}
	}
}

func (c *ChatClient) handleEnvelope(ctx context.Context, env domain.Envelope) {
	ev, err := domain.DecodeEvent(env)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEvent) {
			c.log.Warn("unknown push event", zap.String("event", string(env.Event)))
			metrics.LiveEvents.WithLabelValues(string(env.Event), string(RouteUnknown)).Inc()
			return
		}
		c.log.Error("decode push event", zap.String("event", string(env.Event)), zap.Error(err))
		return
	}

	if c.router.OnPush(ev) != RouteAccepted {
		return
	}

	switch ev.Name {
	case domain.EventConnect:
		c.onConnect(ctx)
	case domain.EventTyping:
		c.arm(timerTypingExpire, c.presence.Timeout(), c.session.Epoch())
	case domain.EventUserJoined, domain.EventRoomChanged:
		c.controller.OnAck(ev)
	}
}

// onConnect restore profile and room subscription on every (re)connect
func (c *ChatClient) onConnect(ctx context.Context) {
	reconnect := c.connectedOnce
	c.connectedOnce = true

	s := c.session.Current()
	if s.Username != "" {
		var err error
		if c.opts.APIMode == config.APIModeLegacy {
			err = c.transport.Emit(domain.EmitSetUsername, domain.SetUsernamePayload{Username: s.Username})
		} else {
			err = c.transport.Emit(domain.EmitSetProfile, domain.SetProfilePayload{Name: s.Username})
		}
		if err != nil {
			c.log.Warn("profile not sent", zap.Error(err))
		}
	}

	if s.RoomID == "" {
		return
	}
	if err := c.controller.Rejoin(); err == nil && c.controller.State() == domain.JoinJoining {
		c.arm(timerJoinTimeout, c.opts.JoinTimeout, c.controller.Attempt())
	}
	if reconnect {
		c.startHistory(ctx, s.RoomID, c.session.Epoch())
	}
}

func (c *ChatClient) handleTimer(t timerFire) {
	switch t.kind {
	case timerTypingExpire:
		if t.seq != c.session.Epoch() {
			return
		}
		now := c.now()
		if c.presence.Expire(now) {
			c.sink.OnTyping("", false)
			return
		}
		// re-signalled meanwhile, wait for the newer deadline
		if _, ok := c.presence.Current(now); ok {
			c.arm(timerTypingExpire, c.presence.ExpiresAt().Sub(now), t.seq)
		}
	case timerJoinTimeout:
		c.controller.OnJoinTimeout(t.seq)
	}
}

func (c *ChatClient) arm(kind timerKind, d time.Duration, seq uint64) {
	time.AfterFunc(d, func() {
		select {
		case c.timers <- timerFire{kind: kind, seq: seq}:
		case <-c.done:
		}
	})
}

func (c *ChatClient) startHistory(ctx context.Context, roomID string, epoch uint64) {
	if c.historyCancel != nil {
		c.historyCancel()
	}
	hctx, cancel := context.WithCancel(ctx)
	c.historyCancel = cancel

	go func() {
		res := c.reconciler.Load(hctx, roomID, epoch)
		select {
		case c.results <- res:
		case <-ctx.Done():
		}
	}()
}

// do run fn on the event loop and wait for its error
func (c *ChatClient) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	select {
	case c.cmds <- func(loopCtx context.Context) { errc <- fn(loopCtx) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClientStopped
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinRoom switch the active room. The history load starts even when the
// join emit fails; that failure is returned as a ConnectivityError.
func (c *ChatClient) JoinRoom(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return errprocess.Validation("join_room", "room id required")
	}
	return c.do(ctx, func(loopCtx context.Context) error {
		epoch, err := c.controller.Request(roomID)
		if epoch == 0 {
			return err
		}
		c.startHistory(loopCtx, roomID, epoch)
		if err == nil && c.controller.State() == domain.JoinJoining {
			c.arm(timerJoinTimeout, c.opts.JoinTimeout, c.controller.Attempt())
		}
		return err
	})
}

// LeaveRoom unsubscribe from the active room and go DISCONNECTED
func (c *ChatClient) LeaveRoom(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		roomID := c.session.RoomID()
		if roomID == "" {
			return errprocess.Validation("leave_room", "not in a room")
		}
		if c.historyCancel != nil {
			c.historyCancel()
		}
		err := c.transport.Emit(domain.EmitLeaveRoom, domain.LeaveRoomPayload{RoomID: roomID})
		c.controller.Reset()
		c.session.SetRoom("")
		c.sink.OnRoomSwitched("")
		if err != nil {
			return errprocess.Connectivity("leave_room "+roomID, err)
		}
		return nil
	})
}

// Typing tell the room the local user is typing
func (c *ChatClient) Typing(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		roomID := c.session.RoomID()
		if roomID == "" {
			return errprocess.Validation("typing", "not in a room")
		}
		now := c.now()
		if c.opts.TypingThrottle > 0 && now.Sub(c.lastTyping) < c.opts.TypingThrottle {
			return nil
		}
		c.lastTyping = now
		if err := c.transport.Emit(domain.EventTyping, domain.TypingPayload{RoomID: roomID}); err != nil {
			return errprocess.Connectivity("typing", err)
		}
		return nil
	})
}

// Status snapshot taken on the loop
func (c *ChatClient) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func(context.Context) error {
		s := c.session.Current()
		author, _ := c.presence.Current(c.now())
		st = Status{
			Username:     s.Username,
			RoomID:       s.RoomID,
			JoinState:    c.controller.State(),
			Connectivity: c.router.Connectivity(),
			Typing:       author,
			Entries:      c.timeline.Len(),
		}
		return nil
	})
	return st, err
}

// Entries displayed sequence snapshot taken on the loop
func (c *ChatClient) Entries(ctx context.Context) ([]domain.Entry, error) {
	var out []domain.Entry
	err := c.do(ctx, func(context.Context) error {
		out = c.timeline.Entries()
		return nil
	})
	return out, err
}
