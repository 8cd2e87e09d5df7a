package usecase

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studentcare-chat/internal/config"
	"studentcare-chat/internal/integrations/openai"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

var allKinds = []ErrorKind{
	ErrorConfigurationMissing,
	ErrorInvalidInput,
	ErrorMissingSession,
	ErrorInvalidCredentials,
	ErrorRateLimited,
	ErrorQuotaExceeded,
	ErrorProviderUnavailable,
	ErrorNetwork,
	ErrorInvalidRequest,
	ErrorEmptyCompletion,
	ErrorStorage,
	ErrorUnknown,
}

func TestErrorKinds_DistinctAndDisplaySafe(t *testing.T) {
	seenUser := map[string]ErrorKind{}
	for _, k := range allKinds {
		require.NotEmpty(t, k.UserMessage(), k)
		require.NotEmpty(t, k.Summary(), k)
		require.NotEqual(t, string(k), k.UserMessage())
		require.NotEqual(t, k.Summary(), k.UserMessage())
		require.NotZero(t, k.HTTPStatus())
		if other, dup := seenUser[k.UserMessage()]; dup {
			t.Fatalf("user message of %s duplicates %s", k, other)
		}
		seenUser[k.UserMessage()] = k
	}
	require.Equal(t, ErrorUnknown.UserMessage(), ErrorKind("SOMETHING_ELSE").UserMessage())
}

func TestNewEnvelope_Production(t *testing.T) {
	err := newError(ErrorInvalidCredentials, "provider_error", &openai.ProviderError{
		StatusCode: 401,
		Code:       "invalid_api_key",
		Message:    "Incorrect API key provided: sk-proj-****abcd",
	})
	env := NewEnvelope(err, fixedNow, false)
	require.Equal(t, ErrorInvalidCredentials, env.Kind)
	require.Equal(t, 503, env.Status)
	require.Equal(t, "2026-10-18T09:30:00.000Z", env.Timestamp)
	require.Nil(t, env.DebugInfo)

	raw, mErr := json.Marshal(env)
	require.NoError(t, mErr)
	require.NotContains(t, string(raw), "sk-proj")
	require.NotContains(t, string(raw), "invalid_api_key")
	require.NotContains(t, string(raw), "debugInfo")
	require.NotContains(t, string(raw), "Status")
}

func TestNewEnvelope_DebugCarriesDiagnostics(t *testing.T) {
	err := newError(ErrorRateLimited, "provider_error", &openai.ProviderError{StatusCode: 429, Code: "rate_limit_exceeded", Type: "requests"})
	env := NewEnvelope(err, fixedNow, true)
	require.NotNil(t, env.DebugInfo)
	require.Equal(t, "provider_error", env.DebugInfo.Reason)
	require.Equal(t, 429, env.DebugInfo.ProviderStatus)
	require.Equal(t, "rate_limit_exceeded", env.DebugInfo.ProviderCode)
	require.Equal(t, "requests", env.DebugInfo.ProviderType)
	require.Contains(t, env.DebugInfo.Detail, "status 429")
	require.Nil(t, env.DebugInfo.ConfigStatus)
}

func TestNewEnvelope_DebugConfigStatus(t *testing.T) {
	cfg := config.ProviderConfig{APIKey: "sk-short", Environment: config.EnvDevelopment}
	err := newError(ErrorConfigurationMissing, "provider_not_configured", &ConfigError{Status: cfg.Status()})
	env := NewEnvelope(err, fixedNow, true)
	require.Equal(t, 503, env.Status)
	require.NotNil(t, env.DebugInfo.ConfigStatus)
	require.Equal(t, "sk-shor...", env.DebugInfo.ConfigStatus.KeyPrefix)
	require.False(t, env.DebugInfo.ConfigStatus.IsValid)
}

func TestNewEnvelope_UnexpectedError(t *testing.T) {
	env := NewEnvelope(errors.New("panic-ish"), fixedNow, false)
	require.Equal(t, ErrorUnknown, env.Kind)
	require.Equal(t, 500, env.Status)
	require.Equal(t, ErrorUnknown.UserMessage(), env.UserMessage)
}

func TestFormatTimestamp(t *testing.T) {
	local := time.Date(2026, 10, 18, 11, 30, 0, 5_000_000, time.FixedZone("CEST", 2*60*60))
	require.Equal(t, "2026-10-18T09:30:00.005Z", FormatTimestamp(local))
	require.Equal(t, "2026-10-18T09:30:00.000Z", FormatTimestamp(fixedNow))
}
