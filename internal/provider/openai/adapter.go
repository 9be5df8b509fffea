// Package openai provides an adapter for the OpenAI chat completion API using
// the official SDK. It converts domain messages (including inlined images) to
// SDK parameters and normalizes every failure into a domain upstream error.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/observability"
)

const providerName = "openai"

// NoContentReply is returned when the provider answers without any content.
const NoContentReply = "No content returned by the AI service."

// Provider implements the domain.Provider interface for OpenAI.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config, extra ...option.RequestOption) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.NewError(domain.KindConfigurationMissing, "OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}

	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}

	if config.ProjectID != "" {
		opts = append(opts, option.WithProject(config.ProjectID))
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	opts = append(opts, extra...)

	return &Provider{
		client: openai.NewClient(opts...),
		name:   providerName,
	}, nil
}

// Complete performs one chat completion exchange.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, domain.InvalidInput("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API", observability.Int("messages", len(req.Messages)))

	params := p.toSDKParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		upstreamErr := normalizeError(ctx, err)
		logger.Error("OpenAI API call failed",
			observability.Error(err),
			observability.Any("diagnostic", upstreamErr.Diagnostic),
			observability.String("raw_diagnostic", upstreamErr.Diagnostic.Raw),
		)
		return nil, upstreamErr
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return p.toDomainResult(resp), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// toSDKParams converts a domain request to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleUser:
			messages[i] = userMessage(msg)
		default:
			// Unknown roles are sent as user content.
			messages[i] = userMessage(msg)
		}
	}

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
}

func userMessage(msg domain.ChatMessage) openai.ChatCompletionMessageParamUnion {
	if !msg.IsMultimodal() {
		return openai.UserMessage(msg.Content)
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case domain.PartImage:
			//nolint:exhaustruct // detail is left to the provider default
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: part.ImageURL,
			}))
		case domain.PartText:
			parts = append(parts, openai.TextContentPart(part.Text))
		default:
			parts = append(parts, openai.TextContentPart(part.Text))
		}
	}

	return openai.UserMessage(parts)
}

// toDomainResult converts an SDK response to a domain result. A response
// without usable content is still a success carrying NoContentReply.
func (p *Provider) toDomainResult(resp *openai.ChatCompletion) *domain.CompletionResult {
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	if strings.TrimSpace(content) == "" {
		content = NoContentReply
	}

	return &domain.CompletionResult{
		ID:       resp.ID,
		Model:    string(resp.Model),
		Provider: p.name,
		Reply:    content,
		Usage: domain.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Cost:             0,
		},
		FinishTime: time.Now(),
	}
}

// normalizeError maps any SDK failure to an upstream failure with a diagnostic.
func normalizeError(ctx context.Context, err error) *domain.Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		raw := apiErr.RawJSON()
		if raw == "" && apiErr.Response != nil {
			raw = string(apiErr.DumpResponse(true))
		}

		message := apiErr.Message
		if message == "" {
			message = fmt.Sprintf("completion provider returned status %d", apiErr.StatusCode)
		}

		return domain.UpstreamFailure(err, &domain.Diagnostic{
			StatusCode: apiErr.StatusCode,
			Type:       apiErr.Type,
			Code:       apiErr.Code,
			Raw:        raw,
		}, message)
	}

	diag := &domain.Diagnostic{StatusCode: 0, Type: "", Code: "", Raw: err.Error()}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.UpstreamFailure(err, diag, "completion provider timed out")
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return domain.UpstreamFailure(err, diag, "completion request was cancelled")
	default:
		return domain.UpstreamFailure(err, diag, "completion provider request failed")
	}
}
