package app

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
	"unicode"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strip markup and control characters from server text
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	clean := textPolicy.Sanitize(html.UnescapeString(s))
	// StrictPolicy escapes what it keeps; the terminal wants plain text
	clean = html.UnescapeString(clean)
	clean = strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}

// ConsoleSink line-oriented Sink for a terminal
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	baseURL string
	typing  string
}

// NewConsoleSink write to w; attachment URLs are resolved against baseURL
func NewConsoleSink(w io.Writer, baseURL string) *ConsoleSink {
	return &ConsoleSink{w: w, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *ConsoleSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

// Printf one line from outside the event loop (command replies)
func (s *ConsoleSink) Printf(format string, args ...any) {
	s.printf(format, args...)
}

// OnRoomSwitched print a room banner
func (s *ConsoleSink) OnRoomSwitched(roomID string) {
	s.typing = ""
	if roomID == "" {
		s.printf("-- left room --")
		return
	}
	s.printf("-- room %s --", SanitizeText(roomID))
}

// OnReplace reprint the whole room
func (s *ConsoleSink) OnReplace(entries []domain.Entry) {
	s.printf("-- history (%d) --", len(entries))
	for _, e := range entries {
		s.OnAppend(e)
	}
}

// OnAppend print one entry
func (s *ConsoleSink) OnAppend(e domain.Entry) {
	at := e.CreatedAt().Local().Format("15:04:05")
	switch e.Kind {
	case domain.EntryAttachment:
		a := e.Attachment
		tag := "[file]"
		if a.IsImage() {
			tag = "[image]"
		}
		s.printf("[%s] %s uploaded %s %s (%s) %s", at, SanitizeText(a.Username), tag,
			SanitizeText(a.OriginalName), a.PrettySize(), s.resolve(a.URL))
	default:
		s.printf("[%s] %s: %s", at, SanitizeText(e.Message.Username), SanitizeText(e.Message.Text))
	}
}

// OnNotice print join / leave / info lines
func (s *ConsoleSink) OnNotice(n domain.Notice) {
	switch n.Kind {
	case domain.NoticeJoined:
		s.printf("* %s joined", SanitizeText(n.Username))
	case domain.NoticeLeft:
		s.printf("* %s left", SanitizeText(n.Username))
	default:
		s.printf("* %s", SanitizeText(n.Text))
	}
}

// OnTyping print only on change
func (s *ConsoleSink) OnTyping(author string, active bool) {
	if !active {
		s.typing = ""
		return
	}
	if author == s.typing {
		return
	}
	s.typing = author
	s.printf("  %s is typing...", SanitizeText(author))
}

// OnConnectivity print transport changes
func (s *ConsoleSink) OnConnectivity(state domain.Connectivity, detail string) {
	if detail != "" {
		s.printf("-- %s: %s --", state, SanitizeText(detail))
		return
	}
	s.printf("-- %s --", state)
}

// OnJoinState print join progress
func (s *ConsoleSink) OnJoinState(roomID string, state domain.JoinState) {
	switch state {
	case domain.JoinJoined:
		s.printf("-- joined %s --", SanitizeText(roomID))
	case domain.JoinFailed:
		s.printf("-- join %s failed, use /join to retry --", SanitizeText(roomID))
	}
}

// OnError print non-fatal errors
func (s *ConsoleSink) OnError(err error) {
	kind, _ := errprocess.KindOf(err)
	switch kind {
	case errprocess.KindHistoryFetch:
		s.printf("! history unavailable: %s", errprocess.DetailOf(err))
	case errprocess.KindValidation:
		// never shown
	default:
		s.printf("! %s", errprocess.DetailOf(err))
	}
}

func (s *ConsoleSink) resolve(url string) string {
	if strings.HasPrefix(url, "/") && s.baseURL != "" {
		return s.baseURL + url
	}
	return url
}
