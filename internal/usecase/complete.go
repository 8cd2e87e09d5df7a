package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"studentcare-chat/internal/config"
	"studentcare-chat/internal/domain"
)

type CompletionProvider interface {
	Complete(ctx context.Context, in domain.CompletionRequest) (domain.Completion, error)
}

type ChatRequest struct {
	Message   string
	SessionID string
}

type ChatResponse struct {
	Message string
	Model   string
	Usage   domain.Usage
}

// CompletionService turns one chat message into one completion. It keeps no
// state between calls.
type CompletionService struct {
	cfg config.ProviderConfig
	llm CompletionProvider
}

func NewCompletionService(cfg config.ProviderConfig, llm CompletionProvider) (*CompletionService, error) {
	if llm == nil {
		return nil, errors.New("usecase: completion provider must not be nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = config.DefaultModel
	}
	return &CompletionService{cfg: cfg, llm: llm}, nil
}

// Debug reports whether failure envelopes may carry diagnostic detail.
func (s *CompletionService) Debug() bool {
	return s.cfg.Debug
}

func (s *CompletionService) Complete(ctx context.Context, in ChatRequest) (ChatResponse, error) {
	if !s.cfg.Valid() {
		return ChatResponse{}, newError(ErrorConfigurationMissing, "provider_not_configured", &ConfigError{Status: s.cfg.Status()})
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatResponse{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if in.SessionID == "" {
		return ChatResponse{}, newError(ErrorMissingSession, "missing_session_id", nil)
	}

	slog.InfoContext(ctx, "sending completion request",
		"sessionId", in.SessionID,
		"messageLength", len(message),
		"model", s.cfg.Model,
	)

	out, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model:            s.cfg.Model,
		Messages:         buildPromptMessages(message),
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
	})
	if err != nil {
		f := FailureOf(err)
		kind := Classify(f)
		slog.WarnContext(ctx, "completion request failed",
			"sessionId", in.SessionID,
			"kind", string(kind),
			"providerStatus", f.Status,
			"providerCode", f.Code,
			"transport", f.Transport,
			"err", err,
		)
		return ChatResponse{}, newError(kind, "provider_error", err)
	}

	answer := strings.TrimSpace(out.Content)
	if answer == "" {
		slog.WarnContext(ctx, "completion was empty", "sessionId", in.SessionID, "model", out.Model)
		return ChatResponse{}, newError(ErrorEmptyCompletion, "empty_completion", nil)
	}

	model := out.Model
	if model == "" {
		model = s.cfg.Model
	}
	slog.InfoContext(ctx, "completion received",
		"sessionId", in.SessionID,
		"completionTokens", out.Usage.CompletionTokens,
		"totalTokens", out.Usage.TotalTokens,
	)
	return ChatResponse{Message: answer, Model: model, Usage: out.Usage}, nil
}
