package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType identifies the kind of a multimodal content segment.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

// ContentPart is one segment of multimodal message content.
type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"` // data URI for inlined uploads
}

// ChatMessage represents one role-tagged unit of conversational content.
// Parts, when present, take priority over Content.
type ChatMessage struct {
	Role    Role          `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// TextMessage builds a plain text message.
func TextMessage(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content, Parts: nil}
}

// IsMultimodal reports whether the message carries structured parts.
func (m ChatMessage) IsMultimodal() bool {
	return len(m.Parts) > 0
}

// CompletionRequest represents one request to the completion provider.
type CompletionRequest struct {
	Feature  string        `json:"feature,omitempty"`
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// CompletionResult is the successful outcome of a completion call.
type CompletionResult struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	Reply      string    `json:"reply"`
	Usage      Usage     `json:"usage"`
	FinishTime time.Time `json:"finish_time"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// EnvCheck reports which credentials are configured without exposing their values.
type EnvCheck struct {
	APIKeySet       bool `json:"apiKeySet"`
	OrganizationSet bool `json:"organizationSet"`
	ProjectSet      bool `json:"projectSet"`
}

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	Error    string      `json:"error"`
	Kind     ErrorKind   `json:"kind"`
	Details  *Diagnostic `json:"details,omitempty"`
	EnvCheck *EnvCheck   `json:"envCheck,omitempty"`
}

// NewErrorResponse builds the envelope for err. Empty diagnostics are omitted.
func NewErrorResponse(err *Error) ErrorResponse {
	resp := ErrorResponse{
		Error:    err.Message,
		Kind:     err.Kind,
		Details:  nil,
		EnvCheck: nil,
	}

	if d := err.Diagnostic; d != nil && (d.StatusCode != 0 || d.Type != "" || d.Code != "") {
		resp.Details = d
	}

	return resp
}
