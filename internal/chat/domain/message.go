package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntryKind timeline entry type
type EntryKind string

const (
	// EntryMessage chat text
	EntryMessage EntryKind = "message"
	// EntryAttachment file share
	EntryAttachment EntryKind = "attachment"
)

// DedupKey identity of an entry across live and history sources
type DedupKey string

// Message 表示一則聊天訊息
type Message struct {
	ID        *int64
	RoomID    string
	Username  string
	Text      string
	CreatedAt time.Time
}

// Key id when known, otherwise FallbackKey
func (m Message) Key() DedupKey {
	if m.ID != nil {
		return DedupKey("m:" + strconv.FormatInt(*m.ID, 10))
	}
	return m.FallbackKey()
}

// FallbackKey author|text|created_at, matches an echo that carried no id
func (m Message) FallbackKey() DedupKey {
	return DedupKey("m:" + m.Username + "|" + m.Text + "|" + m.CreatedAt.UTC().Format(time.RFC3339Nano))
}

// Attachment 表示一則檔案分享
type Attachment struct {
	ID           *int64
	RoomID       string
	Username     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	URL          string
	CreatedAt    time.Time
}

// Key id when known, otherwise FallbackKey
func (a Attachment) Key() DedupKey {
	if a.ID != nil {
		return DedupKey("a:" + strconv.FormatInt(*a.ID, 10))
	}
	return a.FallbackKey()
}

// FallbackKey author|filename|created_at
func (a Attachment) FallbackKey() DedupKey {
	return DedupKey("a:" + a.Username + "|" + a.OriginalName + "|" + a.CreatedAt.UTC().Format(time.RFC3339Nano))
}

// IsImage mime type starts with image/
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// PrettySize human readable size
func (a Attachment) PrettySize() string {
	const unit = 1024
	if a.SizeBytes < unit {
		return fmt.Sprintf("%d B", a.SizeBytes)
	}
	div, exp := int64(unit), 0
	for n := a.SizeBytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(a.SizeBytes)/float64(div), "KMGT"[exp])
}

// Entry one line of the room timeline
type Entry struct {
	Kind       EntryKind
	Message    *Message
	Attachment *Attachment
}

// MessageEntry wrap m
func MessageEntry(m Message) Entry {
	return Entry{Kind: EntryMessage, Message: &m}
}

// AttachmentEntry wrap a
func AttachmentEntry(a Attachment) Entry {
	return Entry{Kind: EntryAttachment, Attachment: &a}
}

// Key dedup key of the wrapped value
func (e Entry) Key() DedupKey {
	if e.Kind == EntryAttachment {
		return e.Attachment.Key()
	}
	return e.Message.Key()
}

// FallbackKey id-less key of the wrapped value; equals Key when HasID is false
func (e Entry) FallbackKey() DedupKey {
	if e.Kind == EntryAttachment {
		return e.Attachment.FallbackKey()
	}
	return e.Message.FallbackKey()
}

// HasID the server id is known
func (e Entry) HasID() bool {
	if e.Kind == EntryAttachment {
		return e.Attachment.ID != nil
	}
	return e.Message.ID != nil
}

// CreatedAt server timestamp of the wrapped value
func (e Entry) CreatedAt() time.Time {
	if e.Kind == EntryAttachment {
		return e.Attachment.CreatedAt
	}
	return e.Message.CreatedAt
}

// RoomID room of the wrapped value, may be empty
func (e Entry) RoomID() string {
	if e.Kind == EntryAttachment {
		return e.Attachment.RoomID
	}
	return e.Message.RoomID
}

// Author username of the wrapped value
func (e Entry) Author() string {
	if e.Kind == EntryAttachment {
		return e.Attachment.Username
	}
	return e.Message.Username
}
