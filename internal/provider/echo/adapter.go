// Package echo provides an offline provider that echoes the rendered prompt
// back as the reply. It makes no network calls, which makes it useful for
// local development of front-ends and for deterministic tests.
package echo

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/observability"
)

const providerName = "echo"

// Provider implements the domain.Provider interface without external calls.
type Provider struct {
	name string
}

// NewProvider creates a new echo provider.
// No configuration is required as this provider operates entirely in-memory.
func NewProvider() *Provider {
	return &Provider{
		name: providerName,
	}
}

// Complete returns the request messages rendered as text.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, domain.InvalidInput("request cannot be nil")
	}

	if len(req.Messages) == 0 {
		return nil, domain.InvalidInput("request has no messages")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request")

	echoContent := buildEchoContent(req.Messages)

	// Word-based token estimate; the echo replies with the same size.
	promptTokens := countTokens(echoContent)
	completionTokens := promptTokens

	return &domain.CompletionResult{
		ID:       fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Model:    req.Model,
		Provider: p.name,
		Reply:    echoContent,
		Usage: domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
			Cost:             0.0,
		},
		FinishTime: time.Now(),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// buildEchoContent renders messages one per line. Inlined images are
// summarized instead of echoing their payload.
func buildEchoContent(messages []domain.ChatMessage) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, renderContent(msg)))
	}
	return builder.String()
}

func renderContent(msg domain.ChatMessage) string {
	if !msg.IsMultimodal() {
		return msg.Content
	}

	segments := make([]string, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		if part.Type == domain.PartImage {
			segments = append(segments, describeImage(part.ImageURL))
			continue
		}
		segments = append(segments, part.Text)
	}
	return strings.Join(segments, " ")
}

// describeImage summarizes a data URI as "[image <mime>, <n> bytes]".
func describeImage(uri string) string {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "[image]"
	}

	mimeType := strings.TrimSuffix(header, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Sprintf("[image %s]", mimeType)
	}

	return fmt.Sprintf("[image %s, %d bytes]", mimeType, len(data))
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
