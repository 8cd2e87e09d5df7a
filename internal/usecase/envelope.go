package usecase

import (
	"errors"
	"time"

	"studentcare-chat/internal/config"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t as UTC with millisecond precision, the format
// every error body uses.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Envelope is the failure body returned to the chat UI.
type Envelope struct {
	Kind        ErrorKind  `json:"error"`
	Message     string     `json:"message"`
	UserMessage string     `json:"userMessage"`
	Timestamp   string     `json:"timestamp"`
	DebugInfo   *DebugInfo `json:"debugInfo,omitempty"`

	Status int `json:"-"`
}

// DebugInfo is only attached outside production.
type DebugInfo struct {
	Reason         string         `json:"reason,omitempty"`
	Detail         string         `json:"detail,omitempty"`
	ProviderStatus int            `json:"providerStatus,omitempty"`
	ProviderCode   string         `json:"providerCode,omitempty"`
	ProviderType   string         `json:"providerType,omitempty"`
	ConfigStatus   *config.Status `json:"configStatus,omitempty"`
}

// NewEnvelope formats err for the caller. Anything that is not a *Error is
// reported as ErrorUnknown. Diagnostic detail is included only when debug is
// set.
func NewEnvelope(err error, at time.Time, debug bool) Envelope {
	kind := ErrorUnknown
	var ue *Error
	if errors.As(err, &ue) {
		kind = ue.Kind
	}
	env := Envelope{
		Kind:        kind,
		Message:     kind.Summary(),
		UserMessage: kind.UserMessage(),
		Timestamp:   FormatTimestamp(at),
		Status:      kind.HTTPStatus(),
	}
	if !debug || err == nil {
		return env
	}

	info := &DebugInfo{Detail: err.Error()}
	if ue != nil {
		info.Reason = ue.Reason
	}
	f := FailureOf(err)
	info.ProviderStatus = f.Status
	info.ProviderCode = f.Code
	info.ProviderType = f.Type
	var ce *ConfigError
	if errors.As(err, &ce) {
		st := ce.Status
		info.ConfigStatus = &st
	}
	env.DebugInfo = info
	return env
}
