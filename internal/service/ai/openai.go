package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// ChatCompleter is the subset of openai.Client the provider needs; easy to fake in tests.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient creates an OpenAI client for the configured endpoint.
func NewOpenAIClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// OpenAIProvider requests a JSON-object completion from an OpenAI-compatible API.
type OpenAIProvider struct {
	client  ChatCompleter
	model   string
	system  string
	timeout time.Duration
}

// NewOpenAIProvider wraps client with the triage system instruction.
func NewOpenAIProvider(client ChatCompleter, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:  client,
		model:   model,
		system:  DefaultPromptTemplate().BuildSystemPrompt(),
		timeout: timeout,
	}
}

// Name identifies the provider in logs.
func (p *OpenAIProvider) Name() string { return config.ProviderOpenAI }

// Analyze sends the system instruction followed by the full conversation.
func (p *OpenAIProvider) Analyze(ctx context.Context, messages []chat.Message) (triage.MedicalAnalysis, error) {
	if _, _, err := splitTurns(messages); err != nil {
		return triage.MedicalAnalysis{}, err
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: p.buildMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: chat completion failed: %w", p.Name(), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: %w: empty response", p.Name(), ErrInvalidAnalysis)
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: %w", p.Name(), err)
	}

	log.Debug().Str("provider", p.Name()).Str("model", p.model).Int("turns", len(messages)).Str("department", analysis.Department).Msg("analysis generated")
	return analysis, nil
}

func (p *OpenAIProvider) buildMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.system})
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
