package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// ArkProvider runs the triage prompt through an eino chain backed by an Ark chat model.
type ArkProvider struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	system  string
	timeout time.Duration
}

// NewArkProvider compiles the prompt chain around chatModel.
func NewArkProvider(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*ArkProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile triage chain: %w", err)
	}

	return &ArkProvider{
		chain:   runnable,
		system:  DefaultPromptTemplate().BuildSystemPrompt(),
		timeout: timeout,
	}, nil
}

// Name identifies the provider in logs.
func (p *ArkProvider) Name() string { return config.ProviderArk }

// Analyze submits the system instruction, prior turns and the latest user message.
func (p *ArkProvider) Analyze(ctx context.Context, messages []chat.Message) (triage.MedicalAnalysis, error) {
	history, latest, err := splitTurns(messages)
	if err != nil {
		return triage.MedicalAnalysis{}, err
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	input := map[string]any{
		"system":  p.system,
		"history": buildHistoryMessages(history),
		"query":   latest.Content,
	}

	response, err := p.chain.Invoke(ctx, input)
	if err != nil {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: failed to run triage chain: %w", p.Name(), err)
	}
	if response == nil {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: %w: empty response", p.Name(), ErrInvalidAnalysis)
	}

	analysis, err := ParseAnalysis(response.Content)
	if err != nil {
		return triage.MedicalAnalysis{}, fmt.Errorf("%s: %w", p.Name(), err)
	}

	log.Debug().Str("provider", p.Name()).Int("turns", len(messages)).Str("department", analysis.Department).Msg("analysis generated")
	return analysis, nil
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
