package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
)

// CommandRepository REST commands: send, upload, room directory, auth
type CommandRepository struct {
	api *APIClient
}

// NewCommandRepository create CommandRepository
func NewCommandRepository(api *APIClient) *CommandRepository {
	return &CommandRepository{api: api}
}

// SendMessage POST /chat/message (form room_id, text)
func (r *CommandRepository) SendMessage(ctx context.Context, token, roomID, text string) (domain.Message, error) {
	form := url.Values{}
	form.Set("room_id", roomID)
	form.Set("text", text)

	var row domain.MessagePayload
	if err := r.api.do(ctx, request{
		op:          "send message",
		method:      "POST",
		path:        "/chat/message",
		token:       token,
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(form.Encode()),
	}, &row); err != nil {
		return domain.Message{}, err
	}
	return row.ToMessage()
}

// Upload POST multipart files to /chat/upload (or /api/upload on legacy servers)
func (r *CommandRepository) Upload(ctx context.Context, token, roomID, username string, files []domain.UploadFile) ([]domain.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	path := "/chat/upload"
	if r.api.Mode == config.APIModeLegacy {
		path = "/api/upload"
		_ = mw.WriteField("room", roomID)
		_ = mw.WriteField("username", username)
	} else {
		_ = mw.WriteField("room_id", roomID)
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Name)))
		ct := f.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var rows []domain.AttachmentPayload
	if err := r.api.do(ctx, request{
		op:          "upload",
		method:      "POST",
		path:        path,
		token:       token,
		contentType: mw.FormDataContentType(),
		body:        &buf,
	}, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Attachment, 0, len(rows))
	for _, row := range rows {
		a, err := row.ToAttachment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
