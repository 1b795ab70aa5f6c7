package app

import (
	"context"
	"sync"
	"time"

	"impact_chat/internal/chat/domain"
)

// recordSink records every sink call, safe to read from the test goroutine
type recordSink struct {
	mu         sync.Mutex
	switched   []string
	replaces   [][]domain.Entry
	appends    []domain.Entry
	notices    []domain.Notice
	typing     []string
	conn       []domain.Connectivity
	joinStates []domain.JoinState
	errs       []error
}

func (s *recordSink) OnRoomSwitched(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switched = append(s.switched, roomID)
}

func (s *recordSink) OnReplace(entries []domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces = append(s.replaces, entries)
}

func (s *recordSink) OnAppend(e domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends = append(s.appends, e)
}

func (s *recordSink) OnNotice(n domain.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

// OnTyping records the author, "" for a clear
func (s *recordSink) OnTyping(author string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !active {
		author = ""
	}
	s.typing = append(s.typing, author)
}

func (s *recordSink) OnConnectivity(state domain.Connectivity, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = append(s.conn, state)
}

func (s *recordSink) OnJoinState(_ string, state domain.JoinState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinStates = append(s.joinStates, state)
}

func (s *recordSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordSink) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *recordSink) Appends() []domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Entry(nil), s.appends...)
}

func (s *recordSink) Replaces() [][]domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]domain.Entry(nil), s.replaces...)
}

func (s *recordSink) Typing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.typing...)
}

func (s *recordSink) JoinStates() []domain.JoinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.JoinState(nil), s.joinStates...)
}

func (s *recordSink) Notices() []domain.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notice(nil), s.notices...)
}

// emitted one outbound event seen by fakeTransport
type emitted struct {
	Name domain.EventName
	Data any
}

// fakeTransport in-memory Transport: tests push envelopes, emits are recorded
type fakeTransport struct {
	push chan domain.Envelope

	mu      sync.Mutex
	emits   []emitted
	failing bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{push: make(chan domain.Envelope, 64)}
}

func (f *fakeTransport) Emit(name domain.EventName, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return ErrTestTransportDown
	}
	f.emits = append(f.emits, emitted{Name: name, Data: data})
	return nil
}

func (f *fakeTransport) Run(ctx context.Context, out chan<- domain.Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-f.push:
			select {
			case out <- env:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (f *fakeTransport) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *fakeTransport) Emits(name domain.EventName) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.emits {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// send push an inbound event built from data
func (f *fakeTransport) send(name domain.EventName, data any) {
	env, err := domain.NewEnvelope(name, data)
	if err != nil {
		panic(err)
	}
	f.push <- env
}

// ErrTestTransportDown emit failure used by tests
var ErrTestTransportDown = errTransportDown{}

type errTransportDown struct{}

func (errTransportDown) Error() string { return "transport down" }

// fixture helpers

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return baseTime.Add(time.Duration(sec) * time.Second)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func testMessage(id int64, room, user, text string, sec int) domain.Message {
	return domain.Message{ID: int64Ptr(id), RoomID: room, Username: user, Text: text, CreatedAt: at(sec)}
}

func testAttachment(id int64, room, user, name string, sec int) domain.Attachment {
	return domain.Attachment{
		ID:           int64Ptr(id),
		RoomID:       room,
		Username:     user,
		OriginalName: name,
		MimeType:     "image/png",
		SizeBytes:    2048,
		URL:          "/uploads/" + name,
		CreatedAt:    at(sec),
	}
}

func messagePayload(m domain.Message) domain.MessagePayload {
	return domain.MessagePayload{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func attachmentPayload(a domain.Attachment) domain.AttachmentPayload {
	return domain.AttachmentPayload{
		ID:           a.ID,
		RoomID:       a.RoomID,
		Username:     a.Username,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		SizeBytes:    a.SizeBytes,
		URL:          a.URL,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339Nano),
	}
}

func entryKeys(entries []domain.Entry) []domain.DedupKey {
	out := make([]domain.DedupKey, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key())
	}
	return out
}
