package testtool

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/encrypt"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/middlewares"
	"impact_chat/pkg/token"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// serverTimeLayout zone-less ISO timestamps, the way the chat server writes them
const serverTimeLayout = "2006-01-02T15:04:05.000000"

// DefaultMaxUploadBytes upload size limit of the fake server
const DefaultMaxUploadBytes = 5 * 1024 * 1024

type fakeUser struct {
	user domain.User
	hash string
}

type fakeConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	// guarded by FakeChatServer.mu
	name string
	room string
}

// FakeChatServer in-process chat server (fiber REST + websocket) for integration tests
type FakeChatServer struct {
	URL    string
	WSURL  string
	Secret []byte

	app *fiber.App

	mu             sync.Mutex
	clock          time.Time
	nextID         int64
	messages       map[string][]domain.MessagePayload
	attachments    map[string][]domain.AttachmentPayload
	users          map[string]*fakeUser
	passwords      encrypt.Hasher
	rooms          map[string][]domain.Room
	clients        map[*fakeConn]struct{}
	received       []domain.Envelope
	historyDelay   time.Duration
	historyStatus  int
	silentJoin     bool
	maxUploadBytes int64
}

// StartFakeChatServer listen on a random loopback port and serve until Close
func StartFakeChatServer() (*FakeChatServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0") // 隨機取得可用 Port
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &FakeChatServer{
		URL:         "http://" + ln.Addr().String(),
		WSURL:       "ws://" + ln.Addr().String() + "/ws",
		Secret:      []byte("fake-chat-secret"),
		clock:       time.Now().UTC().Truncate(time.Second),
		messages:    map[string][]domain.MessagePayload{},
		attachments: map[string][]domain.AttachmentPayload{},
		users:       map[string]*fakeUser{},
		passwords:   encrypt.NewHasher(bcrypt.MinCost),
		rooms: map[string][]domain.Room{
			"TW": {{ID: "tw-general", Name: "general"}},
			"US": {},
		},
		clients:        map[*fakeConn]struct{}{},
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             4 * DefaultMaxUploadBytes,
	})
	s.routes()

	go func() {
		if err := s.app.Listener(ln); err != nil {
			logger.Log.Error("fake chat server stopped", zap.Error(err))
		}
	}()
	return s, nil
}

// Close stop the server and drop every socket
func (s *FakeChatServer) Close() error {
	s.DropConnections()
	return s.app.Shutdown()
}

func (s *FakeChatServer) routes() {
	auth := middlewares.JWTMiddleware(s.Secret, false)
	optionalAuth := middlewares.JWTMiddleware(s.Secret, true)

	s.app.Post("/auth/register", s.register)
	s.app.Post("/auth/login", s.login)
	s.app.Get("/auth/me", auth, s.me)

	s.app.Get("/rooms/countries", s.countries)
	s.app.Get("/rooms", s.listRooms)
	s.app.Post("/rooms/create", auth, s.createRoom)

	s.app.Get("/chat/messages", s.historyMessages(false))
	s.app.Get("/chat/attachments", s.historyAttachments(false))
	s.app.Post("/chat/message", auth, s.postMessage)
	s.app.Post("/chat/upload", auth, s.upload(false))

	s.app.Get("/api/messages", s.historyMessages(true))
	s.app.Get("/api/attachments", s.historyAttachments(true))
	s.app.Post("/api/upload", s.upload(true))

	s.app.Use("/ws", optionalAuth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWS))
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

// tick monotonically increasing server clock, 1ms per stored row
func (s *FakeChatServer) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *FakeChatServer) id() *int64 {
	s.nextID++
	id := s.nextID
	return &id
}

// ---- auth ----

func (s *FakeChatServer) register(c *fiber.Ctx) error {
	var req domain.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid body")
	}
	if err := encrypt.ValidatePassword(req.Password); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	u, err := s.AddUser(req.Email, req.Name, req.Password)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}
	return s.issue(c, u)
}

func (s *FakeChatServer) login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid body")
	}
	s.mu.Lock()
	fu, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || s.passwords.Check(fu.hash, req.Password) != nil {
		return detail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	return s.issue(c, fu.user)
}

func (s *FakeChatServer) issue(c *fiber.Ctx, u domain.User) error {
	tok, err := s.Token(strconv.FormatInt(u.ID, 10), u.Name)
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(domain.AuthResult{Token: tok, User: u})
}

func (s *FakeChatServer) me(c *fiber.Ctx) error {
	id, _ := c.Locals(middlewares.TokenUserID).(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fu := range s.users {
		if strconv.FormatInt(fu.user.ID, 10) == id {
			return c.JSON(fu.user)
		}
	}
	return detail(c, fiber.StatusNotFound, "User not found")
}

// AddUser register an account directly; the password follows encrypt.ValidatePassword
func (s *FakeChatServer) AddUser(email, name, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(name) == "" {
		return domain.User{}, errors.New("email and name required")
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return domain.User{}, errors.New("Email already registered")
	}
	u := domain.User{ID: int64(len(s.users) + 1), Email: email, Name: strings.TrimSpace(name)}
	s.users[email] = &fakeUser{user: u, hash: hash}
	return u, nil
}

// Token issue a token the server accepts
func (s *FakeChatServer) Token(userID, name string) (string, error) {
	return token.GenerateJWT(userID, name, s.Secret, time.Hour)
}

// ---- rooms ----

func (s *FakeChatServer) countries(c *fiber.Ctx) error {
	return c.JSON([]domain.Country{
		{Code: "TW", Name: "Taiwan"},
		{Code: "US", Name: "United States"},
	})
}

func (s *FakeChatServer) listRooms(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms, ok := s.rooms[strings.ToUpper(c.Query("code"))]
	if !ok {
		return detail(c, fiber.StatusNotFound, "Country not found")
	}
	return c.JSON(rooms)
}

func (s *FakeChatServer) createRoom(c *fiber.Ctx) error {
	code := strings.ToUpper(c.Query("code"))
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return detail(c, fiber.StatusBadRequest, "Room name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rooms, ok := s.rooms[code]
	if !ok {
		return detail(c, fiber.StatusNotFound, "Country not found")
	}
	for _, r := range rooms {
		if strings.EqualFold(r.Name, name) {
			return detail(c, fiber.StatusConflict, "Room already exists")
		}
	}
	room := domain.Room{ID: uuid.NewString(), Name: name}
	s.rooms[code] = append(rooms, room)
	return c.JSON(room)
}

// ---- history ----

// historyGate applies the configured delay; ok=false means the reply was already written
func (s *FakeChatServer) historyGate(c *fiber.Ctx) (bool, error) {
	s.mu.Lock()
	delay, status := s.historyDelay, s.historyStatus
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		return false, detail(c, status, "history unavailable")
	}
	return true, nil
}

func historyRoom(c *fiber.Ctx, legacy bool) string {
	if legacy {
		return c.Query("room")
	}
	return c.Query("room_id")
}

func (s *FakeChatServer) historyMessages(legacy bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ok, err := s.historyGate(c); !ok {
			return err
		}
		room := historyRoom(c, legacy)
		limit := c.QueryInt("limit", 50)

		s.mu.Lock()
		rows := tail(s.messages[room], limit)
		s.mu.Unlock()

		out := make([]domain.MessagePayload, 0, len(rows))
		for _, r := range rows {
			if legacy {
				r.Room, r.RoomID = r.RoomID, ""
			}
			out = append(out, r)
		}
		return c.JSON(out)
	}
}

func (s *FakeChatServer) historyAttachments(legacy bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ok, err := s.historyGate(c); !ok {
			return err
		}
		room := historyRoom(c, legacy)
		limit := c.QueryInt("limit", 50)

		s.mu.Lock()
		rows := tail(s.attachments[room], limit)
		s.mu.Unlock()

		out := make([]domain.AttachmentPayload, 0, len(rows))
		for _, r := range rows {
			if legacy {
				r.Room, r.RoomID = r.RoomID, ""
			}
			out = append(out, r)
		}
		return c.JSON(out)
	}
}

func tail[T any](rows []T, n int) []T {
	if n <= 0 || n >= len(rows) {
		return append([]T(nil), rows...)
	}
	return append([]T(nil), rows[len(rows)-n:]...)
}

// SeedMessage store a message without broadcasting it; zero at uses the server clock
func (s *FakeChatServer) SeedMessage(roomID, username, text string, at time.Time) domain.MessagePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeMessage(roomID, username, text, at)
}

func (s *FakeChatServer) storeMessage(roomID, username, text string, at time.Time) domain.MessagePayload {
	if at.IsZero() {
		at = s.tick()
	}
	p := domain.MessagePayload{
		ID:        s.id(),
		RoomID:    roomID,
		Username:  username,
		Text:      text,
		CreatedAt: at.UTC().Format(serverTimeLayout),
	}
	s.messages[roomID] = append(s.messages[roomID], p)
	return p
}

// SeedAttachment store an attachment without broadcasting it
func (s *FakeChatServer) SeedAttachment(roomID, username, name, mime string, size int64, at time.Time) domain.AttachmentPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeAttachment(roomID, username, name, mime, size, at)
}

func (s *FakeChatServer) storeAttachment(roomID, username, name, mime string, size int64, at time.Time) domain.AttachmentPayload {
	if at.IsZero() {
		at = s.tick()
	}
	id := s.id()
	p := domain.AttachmentPayload{
		ID:           id,
		RoomID:       roomID,
		Username:     username,
		OriginalName: name,
		MimeType:     mime,
		SizeBytes:    size,
		URL:          "/uploads/" + strconv.FormatInt(*id, 10) + "_" + name,
		CreatedAt:    at.UTC().Format(serverTimeLayout),
	}
	s.attachments[roomID] = append(s.attachments[roomID], p)
	return p
}

// ---- commands ----

func (s *FakeChatServer) postMessage(c *fiber.Ctx) error {
	room := strings.TrimSpace(c.FormValue("room_id"))
	text := strings.TrimSpace(c.FormValue("text"))
	if room == "" || text == "" {
		return detail(c, fiber.StatusBadRequest, "room_id and text required")
	}
	name, _ := c.Locals(middlewares.TokenName).(string)

	s.mu.Lock()
	p := s.storeMessage(room, name, text, time.Time{})
	s.mu.Unlock()

	s.Broadcast(room, domain.EventChatMessage, p)
	return c.JSON(p)
}

func (s *FakeChatServer) upload(legacy bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return detail(c, fiber.StatusBadRequest, "multipart form required")
		}

		var room, username string
		if legacy {
			room = firstValue(form.Value["room"])
			username = firstValue(form.Value["username"])
		} else {
			room = firstValue(form.Value["room_id"])
			username, _ = c.Locals(middlewares.TokenName).(string)
		}
		files := form.File["files"]
		if room == "" || len(files) == 0 {
			return detail(c, fiber.StatusBadRequest, "room and files required")
		}

		s.mu.Lock()
		limit := s.maxUploadBytes
		s.mu.Unlock()

		var out []domain.AttachmentPayload
		for _, fh := range files {
			if fh.Size > limit {
				return detail(c, fiber.StatusRequestEntityTooLarge, "File too large: "+fh.Filename)
			}
			f, err := fh.Open()
			if err != nil {
				return detail(c, fiber.StatusBadRequest, err.Error())
			}
			n, _ := io.Copy(io.Discard, f)
			f.Close()

			s.mu.Lock()
			p := s.storeAttachment(room, username, fh.Filename, fh.Header.Get("Content-Type"), n, time.Time{})
			s.mu.Unlock()
			if legacy {
				p.Room, p.RoomID = p.RoomID, ""
			}
			s.Broadcast(room, domain.EventFileUploaded, p)
			out = append(out, p)
		}
		return c.JSON(out)
	}
}

func firstValue(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return strings.TrimSpace(v[0])
}

// ---- websocket ----

func (s *FakeChatServer) handleWS(conn *websocket.Conn) {
	fc := &fakeConn{conn: conn}
	if name, ok := conn.Locals(middlewares.TokenName).(string); ok {
		fc.name = name
	}

	s.mu.Lock()
	s.clients[fc] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, fc)
		room, name := fc.room, fc.name
		s.mu.Unlock()
		if room != "" {
			s.broadcastExcept(room, fc, domain.EventUserLeft, domain.PresencePayload{Username: name, RoomID: room})
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
		s.dispatch(fc, env)
	}
}

func (s *FakeChatServer) dispatch(fc *fakeConn, env domain.Envelope) {
	switch env.Event {
	case domain.EmitSetProfile:
		var p domain.SetProfilePayload
		_ = json.Unmarshal(env.Data, &p)
		s.mu.Lock()
		fc.name = p.Name
		s.mu.Unlock()

	case domain.EmitSetUsername:
		var p domain.SetUsernamePayload
		_ = json.Unmarshal(env.Data, &p)
		s.mu.Lock()
		fc.name = p.Username
		s.mu.Unlock()

	case domain.EmitJoinRoom:
		var p domain.JoinRoomPayload
		_ = json.Unmarshal(env.Data, &p)
		legacy := p.RoomID == ""
		room := p.RoomID
		if legacy {
			room = p.Room
		}

		s.mu.Lock()
		prev, name, silent := fc.room, fc.name, s.silentJoin
		fc.room = room
		s.mu.Unlock()

		if prev != "" && prev != room {
			s.broadcastExcept(prev, fc, domain.EventUserLeft, domain.PresencePayload{Username: name, RoomID: prev})
		}
		if silent {
			return
		}
		if legacy {
			s.send(fc, domain.EventRoomChanged, domain.RoomChangedPayload{Room: room})
			s.Broadcast(room, domain.EventUserJoined, domain.PresencePayload{Username: name, Room: room})
			return
		}
		s.Broadcast(room, domain.EventUserJoined, domain.PresencePayload{Username: name, RoomID: room})

	case domain.EmitLeaveRoom:
		s.mu.Lock()
		room, name := fc.room, fc.name
		fc.room = ""
		s.mu.Unlock()
		if room != "" {
			s.broadcastExcept(room, fc, domain.EventUserLeft, domain.PresencePayload{Username: name, RoomID: room})
		}

	case domain.EventTyping:
		s.mu.Lock()
		room, name := fc.room, fc.name
		s.mu.Unlock()
		if room != "" {
			s.broadcastExcept(room, fc, domain.EventTyping, domain.PresencePayload{Username: name, RoomID: room})
		}

	case domain.EventChatMessage:
		var p domain.SendMessagePayload
		_ = json.Unmarshal(env.Data, &p)

		s.mu.Lock()
		room, name := p.Room, fc.name
		if room == "" {
			room = fc.room
		}
		if room == "" || strings.TrimSpace(p.Text) == "" {
			s.mu.Unlock()
			return
		}
		msg := s.storeMessage(room, name, p.Text, time.Time{})
		s.mu.Unlock()

		msg.Room, msg.RoomID = msg.RoomID, ""
		s.Broadcast(room, domain.EventChatMessage, msg)
	}
}

func (s *FakeChatServer) send(fc *fakeConn, name domain.EventName, data any) {
	env, err := domain.NewEnvelope(name, data)
	if err != nil {
		return
	}
	s.sendEnvelope(fc, env)
}

func (s *FakeChatServer) sendEnvelope(fc *fakeConn, env domain.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	fc.wmu.Lock()
	defer fc.wmu.Unlock()
	if err := fc.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		logger.Log.Debug("fake server write failed", zap.Error(err))
	}
}

func (s *FakeChatServer) members(roomID string, except *fakeConn) []*fakeConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeConn
	for fc := range s.clients {
		if fc != except && (roomID == "" || fc.room == roomID) {
			out = append(out, fc)
		}
	}
	return out
}

// Broadcast push an event to every socket in roomID; "" targets every socket
func (s *FakeChatServer) Broadcast(roomID string, name domain.EventName, data any) {
	s.broadcastExcept(roomID, nil, name, data)
}

func (s *FakeChatServer) broadcastExcept(roomID string, except *fakeConn, name domain.EventName, data any) {
	env, err := domain.NewEnvelope(name, data)
	if err != nil {
		return
	}
	for _, fc := range s.members(roomID, except) {
		s.sendEnvelope(fc, env)
	}
}

// PushRaw send a raw envelope to every socket, including unknown events
func (s *FakeChatServer) PushRaw(env domain.Envelope) {
	for _, fc := range s.members("", nil) {
		s.sendEnvelope(fc, env)
	}
}

// DropConnections close every socket from the server side
func (s *FakeChatServer) DropConnections() {
	for _, fc := range s.members("", nil) {
		fc.wmu.Lock()
		_ = fc.conn.Close()
		fc.wmu.Unlock()
	}
}

// Connections open sockets
func (s *FakeChatServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Members display names currently subscribed to roomID
func (s *FakeChatServer) Members(roomID string) []string {
	var out []string
	s.mu.Lock()
	defer s.mu.Unlock()
	for fc := range s.clients {
		if fc.room == roomID {
			out = append(out, fc.name)
		}
	}
	return out
}

// Received every envelope clients sent so far
func (s *FakeChatServer) Received() []domain.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Envelope(nil), s.received...)
}

// SetHistoryDelay slow down both history endpoints
func (s *FakeChatServer) SetHistoryDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyDelay = d
}

// SetHistoryFailure make history endpoints answer status; 0 restores them
func (s *FakeChatServer) SetHistoryFailure(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyStatus = status
}

// SetSilentJoin stop acknowledging join_room
func (s *FakeChatServer) SetSilentJoin(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silentJoin = silent
}

// SetMaxUploadBytes per-file upload limit
func (s *FakeChatServer) SetMaxUploadBytes(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxUploadBytes = n
}
