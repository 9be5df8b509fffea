// Package client calls the relay API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/prompt"
)

// FallbackText is shown to learners whenever a request fails, whatever the cause.
const FallbackText = "⚠️ Error connecting to AI service."

// NoResponseText is shown when the API answers without the expected field.
const NoResponseText = "⚠️ No response."

const maxErrorBody = 64 << 10

// Config contains client settings.
type Config struct {
	BaseURL string `env:"MEDIMENTOR_API_URL" envDefault:"http://localhost:5000"`
	Timeout int    `env:"MEDIMENTOR_TIMEOUT" envDefault:"90"`
}

// APIError is a non-2xx answer from the relay API.
type APIError struct {
	Status  int
	Kind    domain.ErrorKind
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// Client is an HTTP client for the relay routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. A nil httpClient uses one with the configured timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		//nolint:exhaustruct // default transport
		httpClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// Ask sends a free-form question to the agent.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	return c.postJSON(ctx, "/api/agent-mode", "reply", prompt.AgentQuery{Query: query})
}

// AnalyzeCase requests a structured case analysis.
func (c *Client) AnalyzeCase(ctx context.Context, caseText string) (string, error) {
	return c.postJSON(ctx, "/api/case-learning", "analysis", prompt.CaseAnalysis{CaseText: caseText})
}

// TutorMCQ asks the tutor to explain a multiple choice question.
func (c *Client) TutorMCQ(ctx context.Context, mcq prompt.MCQ) (string, error) {
	return c.postJSON(ctx, "/api/mcq-tutor", "result", mcq)
}

// Discuss sends one case discussion turn.
func (c *Client) Discuss(ctx context.Context, caseText, answer string) (string, error) {
	return c.postJSON(ctx, "/api/case-discussion", "reply", prompt.CaseDiscussion{CaseText: caseText, UserAnswer: answer})
}

// AnalyzeImage uploads an image for a radiology style report. An empty
// mimeType leaves detection to the server.
func (c *Client) AnalyzeImage(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	return c.post(ctx, "/api/analyze-file", "analysis", writer.FormDataContentType(), &body)
}

func (c *Client) postJSON(ctx context.Context, route, field string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	return c.post(ctx, route, field, "application/json", bytes.NewReader(body))
}

func (c *Client) post(ctx context.Context, route, field, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	reply := result[field]
	if reply == "" {
		return NoResponseText, nil
	}

	return reply, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope domain.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == "" {
		return &APIError{
			Status:  resp.StatusCode,
			Kind:    "",
			Message: strings.TrimSpace(string(raw)),
		}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Kind:    envelope.Kind,
		Message: envelope.Error,
	}
}
