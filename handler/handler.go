package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"studentcare-chat/internal/domain"
	"studentcare-chat/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type ChatUseCase interface {
	Complete(ctx context.Context, in usecase.ChatRequest) (usecase.ChatResponse, error)
	Debug() bool
}

type HistoryUseCase interface {
	Record(ctx context.Context, in usecase.RecordInput) (domain.HistoryMessage, error)
	List(ctx context.Context, sessionID string, limit int) ([]domain.HistoryMessage, error)
}

// Handler serves the chat API behind API Gateway.
type Handler struct {
	chat    ChatUseCase
	history HistoryUseCase
	now     func() time.Time
}

// NewHandler wires the use cases. history may be nil, in which case the
// history routes answer 404.
func NewHandler(chat ChatUseCase, history HistoryUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat, history: history, now: time.Now}, nil
}

type chatRequestBody struct {
	Message   json.RawMessage `json:"message"`
	SessionID json.RawMessage `json:"sessionId"`
}

type chatResponse struct {
	Message  string       `json:"message"`
	Metadata chatMetadata `json:"metadata"`
}

type chatMetadata struct {
	Model  string       `json:"model"`
	Tokens domain.Usage `json:"tokens"`
}

type recordRequestBody struct {
	SessionID     json.RawMessage `json:"sessionId"`
	Content       string          `json:"content"`
	IsBotResponse bool            `json:"isBotResponse"`
}

type historyMessage struct {
	ID            string `json:"id"`
	SessionID     string `json:"sessionId"`
	Content       string `json:"content"`
	IsBotResponse bool   `json:"isBotResponse"`
	CreatedAt     string `json:"createdAt"`
}

type historyResponse struct {
	SessionID string           `json:"sessionId"`
	Messages  []historyMessage `json:"messages"`
}

type errorResponse struct {
	Error       string             `json:"error"`
	Message     string             `json:"message"`
	UserMessage string             `json:"userMessage"`
	Timestamp   string             `json:"timestamp"`
	DebugInfo   *usecase.DebugInfo `json:"debugInfo,omitempty"`
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := h.now()
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp := h.route(ctx, event)
	resp.Headers[correlationHeader] = correlationID

	slog.InfoContext(ctx, "request handled",
		"correlationId", correlationID,
		"method", event.HTTPMethod,
		"path", event.Path,
		"status", resp.StatusCode,
		"durationMs", h.now().Sub(start).Milliseconds(),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := strings.TrimSuffix(strings.TrimPrefix(event.Path, "/api"), "/")
	switch path {
	case "/chat":
		if event.HTTPMethod != http.MethodPost {
			return h.routeError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.")
		}
		// An undecodable body counts as a missing message.
		body, _ := requestBody(event)
		return h.handleChat(ctx, body)
	case "/chat/history":
		if h.history == nil {
			return h.routeError(http.StatusNotFound, "NOT_FOUND", "Chat history is not enabled.")
		}
		switch event.HTTPMethod {
		case http.MethodPost:
			body, err := requestBody(event)
			if err != nil {
				return h.failure(usecase.NewEnvelope(&usecase.Error{Kind: usecase.ErrorInvalidInput, Reason: "undecodable_body", Err: err}, h.now(), h.chat.Debug()))
			}
			return h.handleRecord(ctx, body)
		case http.MethodGet:
			return h.handleList(ctx, event.QueryStringParameters)
		default:
			return h.routeError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.")
		}
	default:
		return h.routeError(http.StatusNotFound, "NOT_FOUND", "Route not found.")
	}
}

// handleChat never rejects a body before the use case runs: configuration is
// checked first, and a malformed body is treated as a missing message.
func (h *Handler) handleChat(ctx context.Context, body []byte) events.APIGatewayProxyResponse {
	var req chatRequestBody
	_ = json.Unmarshal(body, &req)

	out, err := h.chat.Complete(ctx, usecase.ChatRequest{
		Message:   textValue(req.Message),
		SessionID: opaqueID(req.SessionID),
	})
	if err != nil {
		return h.failure(usecase.NewEnvelope(err, h.now(), h.chat.Debug()))
	}
	return jsonResponse(http.StatusOK, chatResponse{
		Message:  out.Message,
		Metadata: chatMetadata{Model: out.Model, Tokens: out.Usage},
	})
}

func (h *Handler) handleRecord(ctx context.Context, body []byte) events.APIGatewayProxyResponse {
	var req recordRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return h.failure(usecase.NewEnvelope(&usecase.Error{Kind: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}, h.now(), h.chat.Debug()))
	}
	msg, err := h.history.Record(ctx, usecase.RecordInput{
		SessionID:     opaqueID(req.SessionID),
		Content:       req.Content,
		IsBotResponse: req.IsBotResponse,
	})
	if err != nil {
		return h.failure(usecase.NewEnvelope(err, h.now(), h.chat.Debug()))
	}
	return jsonResponse(http.StatusCreated, toHistoryMessage(msg))
}

func (h *Handler) handleList(ctx context.Context, query map[string]string) events.APIGatewayProxyResponse {
	sessionID := query["sessionId"]
	limit, _ := strconv.Atoi(query["limit"])
	msgs, err := h.history.List(ctx, sessionID, limit)
	if err != nil {
		return h.failure(usecase.NewEnvelope(err, h.now(), h.chat.Debug()))
	}
	out := historyResponse{SessionID: strings.TrimSpace(sessionID), Messages: make([]historyMessage, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, toHistoryMessage(m))
	}
	return jsonResponse(http.StatusOK, out)
}

func (h *Handler) failure(env usecase.Envelope) events.APIGatewayProxyResponse {
	return jsonResponse(env.Status, errorResponse{
		Error:       string(env.Kind),
		Message:     env.Message,
		UserMessage: env.UserMessage,
		Timestamp:   env.Timestamp,
		DebugInfo:   env.DebugInfo,
	})
}

func (h *Handler) routeError(status int, code, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, errorResponse{
		Error:       code,
		Message:     message,
		UserMessage: "Something went wrong. Please refresh the page and try again.",
		Timestamp:   usecase.FormatTimestamp(h.now()),
	})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"UNKNOWN_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

func requestBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	return base64.StdEncoding.DecodeString(event.Body)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// textValue returns the JSON string in raw, or "" when raw holds anything else.
func textValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// opaqueID accepts any truthy JSON value as an identifier. null, false, 0 and
// "" count as absent.
func opaqueID(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	switch {
	case v == "" || v == "null" || v == "false":
		return ""
	case strings.HasPrefix(v, `"`):
		return textValue(raw)
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil && n == 0 {
		return ""
	}
	return v
}

func toHistoryMessage(m domain.HistoryMessage) historyMessage {
	return historyMessage{
		ID:            m.ID,
		SessionID:     m.SessionID,
		Content:       m.Content,
		IsBotResponse: m.IsBotResponse,
		CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
