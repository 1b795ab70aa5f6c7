package repository

import (
	"context"
	"net/url"
	"strconv"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
)

const (
	// MaxMessageLimit server cap for the messages page
	MaxMessageLimit = 200
	// MaxAttachmentLimit server cap for the attachments page
	MaxAttachmentLimit = 500
)

// HistoryRepository most recent page of a room, oldest first
type HistoryRepository struct {
	api *APIClient
}

// NewHistoryRepository create HistoryRepository
func NewHistoryRepository(api *APIClient) *HistoryRepository {
	return &HistoryRepository{api: api}
}

func (r *HistoryRepository) query(roomID string, limit, max int) url.Values {
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	q := url.Values{}
	if r.api.Mode == config.APIModeLegacy {
		q.Set("room", roomID)
	} else {
		q.Set("room_id", roomID)
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (r *HistoryRepository) prefix() string {
	if r.api.Mode == config.APIModeLegacy {
		return "/api"
	}
	return "/chat"
}

// FetchMessages GET {prefix}/messages
func (r *HistoryRepository) FetchMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	var rows []domain.MessagePayload
	if err := r.api.do(ctx, request{
		op:     "history messages",
		method: "GET",
		path:   r.prefix() + "/messages",
		query:  r.query(roomID, limit, MaxMessageLimit),
	}, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		m, err := row.ToMessage()
		if err != nil {
			return nil, err
		}
		if m.RoomID == "" {
			m.RoomID = roomID
		}
		out = append(out, m)
	}
	return out, nil
}

// FetchAttachments GET {prefix}/attachments
func (r *HistoryRepository) FetchAttachments(ctx context.Context, roomID string, limit int) ([]domain.Attachment, error) {
	var rows []domain.AttachmentPayload
	if err := r.api.do(ctx, request{
		op:     "history attachments",
		method: "GET",
		path:   r.prefix() + "/attachments",
		query:  r.query(roomID, limit, MaxAttachmentLimit),
	}, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Attachment, 0, len(rows))
	for _, row := range rows {
		a, err := row.ToAttachment()
		if err != nil {
			return nil, err
		}
		if a.RoomID == "" {
			a.RoomID = roomID
		}
		out = append(out, a)
	}
	return out, nil
}
