package domain

// ChatMessage is the provider-agnostic chat message shape used by the service
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by the completion provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is one call to the completion provider. Generation
// parameters are set by the service, never by the caller.
type CompletionRequest struct {
	Model            string
	Messages         []ChatMessage
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Completion is the normalized provider reply. Content is empty when the
// provider returned no choices.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}
