package openai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderError captures a non-2xx response from the completion API together
// with the structured error body OpenAI returns.
type ProviderError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Message)
}

func (e *ProviderError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *ProviderError) ErrorCode() string {
	return e.Code
}

func (e *ProviderError) ErrorType() string {
	return e.Type
}

// TransportError is a failure where no HTTP response came back: dial errors,
// resets, timeouts.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("openai: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport marks the error as a connection-level failure.
func (e *TransportError) Transport() bool {
	return true
}

type errorBody struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

func newProviderError(status int, body []byte) *ProviderError {
	pe := &ProviderError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		pe.Message = strings.TrimSpace(string(body))
		return pe
	}
	pe.Message = eb.Error.Message
	pe.Type = eb.Error.Type
	pe.Code = rawCode(eb.Error.Code)
	return pe
}

// rawCode flattens OpenAI's error code, which is a string, a number or null.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
