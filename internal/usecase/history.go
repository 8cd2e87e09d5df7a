package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentcare-chat/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxHistoryContent   = 8000
)

type HistoryStore interface {
	SaveMessage(ctx context.Context, msg domain.HistoryMessage) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.HistoryMessage, error)
}

// HistoryService records chat lines on behalf of the chat UI. The completion
// service never touches it.
type HistoryService struct {
	store HistoryStore
	now   func() time.Time
}

type RecordInput struct {
	SessionID     string
	Content       string
	IsBotResponse bool
}

func NewHistoryService(store HistoryStore) (*HistoryService, error) {
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	return &HistoryService{store: store, now: time.Now}, nil
}

func (s *HistoryService) Record(ctx context.Context, in RecordInput) (domain.HistoryMessage, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return domain.HistoryMessage{}, newError(ErrorMissingSession, "missing_session_id", nil)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.HistoryMessage{}, newError(ErrorInvalidInput, "empty_content", nil)
	}
	if len(content) > maxHistoryContent {
		return domain.HistoryMessage{}, newError(ErrorInvalidInput, "content_too_long", nil)
	}

	msg := domain.HistoryMessage{
		ID:            newUUID(),
		SessionID:     sessionID,
		Content:       content,
		IsBotResponse: in.IsBotResponse,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return domain.HistoryMessage{}, newError(ErrorStorage, "history_write_error", err)
	}
	return msg, nil
}

// List returns the most recent messages of a session in chronological order.
func (s *HistoryService) List(ctx context.Context, sessionID string, limit int) ([]domain.HistoryMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, newError(ErrorMissingSession, "missing_session_id", nil)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	msgs, err := s.store.ListMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, newError(ErrorStorage, "history_read_error", err)
	}
	return msgs, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
