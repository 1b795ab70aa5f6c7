package app

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"go.uber.org/zap"
)

// MessageCommandRepository REST side of sending
type MessageCommandRepository interface {
	SendMessage(ctx context.Context, token, roomID, text string) (domain.Message, error)
	Upload(ctx context.Context, token, roomID, username string, files []domain.UploadFile) ([]domain.Attachment, error)
}

// SendMessageUseCase send text and files to the active room.
// Results come back through the push channel like anyone else's messages.
type SendMessageUseCase struct {
	repo    MessageCommandRepository
	emitter Emitter
	session *SessionContext
	mode    config.APIMode
}

// NewSendMessageUseCase create SendMessageUseCase
func NewSendMessageUseCase(repo MessageCommandRepository, emitter Emitter, session *SessionContext, mode config.APIMode) *SendMessageUseCase {
	return &SendMessageUseCase{
		repo:    repo,
		emitter: emitter,
		session: session,
		mode:    mode,
	}
}

// Execute send text to the active room
func (uc *SendMessageUseCase) Execute(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errprocess.Validation("send_message", "message is empty")
	}
	s := uc.session.Current()
	if s.RoomID == "" {
		return errprocess.Validation("send_message", "join a room first")
	}

	// legacy server: the socket itself is the send path
	if uc.mode == config.APIModeLegacy {
		if err := uc.emitter.Emit(domain.EventChatMessage, domain.SendMessagePayload{Text: text, Room: s.RoomID}); err != nil {
			metrics.Commands.WithLabelValues("send_message", "error").Inc()
			return errprocess.Connectivity("chat_message", err)
		}
		metrics.Commands.WithLabelValues("send_message", "ok").Inc()
		return nil
	}

	if s.Token == "" {
		return errprocess.Validation("send_message", "login required")
	}
	msg, err := uc.repo.SendMessage(ctx, s.Token, s.RoomID, text)
	if err != nil {
		metrics.Commands.WithLabelValues("send_message", "error").Inc()
		return err
	}
	metrics.Commands.WithLabelValues("send_message", "ok").Inc()
	logger.Log.Debug("message sent", zap.String("room_id", s.RoomID), zap.Any("id", msg.ID))
	return nil
}

// Upload share local files with the active room
func (uc *SendMessageUseCase) Upload(ctx context.Context, paths ...string) ([]domain.Attachment, error) {
	if len(paths) == 0 {
		return nil, errprocess.Validation("upload", "no files given")
	}
	s := uc.session.Current()
	if s.RoomID == "" {
		return nil, errprocess.Validation("upload", "join a room first")
	}
	if uc.mode == config.APIModeChat && s.Token == "" {
		return nil, errprocess.Validation("upload", "login required")
	}

	files := make([]domain.UploadFile, 0, len(paths))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range paths {
		fh, err := os.Open(p)
		if err != nil {
			return nil, errprocess.CommandFailed("upload "+p, err)
		}
		files = append(files, domain.UploadFile{
			Name:     filepath.Base(p),
			MimeType: mime.TypeByExtension(filepath.Ext(p)),
			Content:  fh,
		})
	}

	out, err := uc.repo.Upload(ctx, s.Token, s.RoomID, s.Username, files)
	if err != nil {
		metrics.Commands.WithLabelValues("upload", "error").Inc()
		return nil, err
	}
	metrics.Commands.WithLabelValues("upload", "ok").Inc()
	return out, nil
}
