package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

var (
	// ErrInvalidAnalysis is returned when provider output breaks the JSON contract.
	ErrInvalidAnalysis = triage.ErrInvalidAnalysis
	// ErrNoUserMessage is returned when the conversation has nothing to analyze.
	ErrNoUserMessage = errors.New("conversation has no user message")
)

// Provider turns a conversation into one structured analysis.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, messages []chat.Message) (triage.MedicalAnalysis, error)
}

// New builds the provider selected by credential availability: Ark, then OpenAI, then Mock.
func New(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	name := cfg.ProviderName()

	var (
		provider Provider
		err      error
	)
	switch name {
	case config.ProviderArk:
		provider, err = newArkFromConfig(ctx, cfg)
	case config.ProviderOpenAI:
		provider = NewOpenAIProvider(NewOpenAIClient(cfg.OpenAI), cfg.OpenAI.Model, cfg.Timeout)
	default:
		provider = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", name, err)
	}

	log.Info().Str("provider", provider.Name()).Dur("timeout", cfg.Timeout).Msg("analysis provider selected")
	return provider, nil
}

func newArkFromConfig(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	chatModel, err := cfg.Ark.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	provider, err := NewArkProvider(ctx, chatModel, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// splitTurns separates the latest user message from the turns preceding it.
func splitTurns(messages []chat.Message) ([]chat.Message, chat.Message, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			return messages[:i], messages[i], nil
		}
	}
	return nil, chat.Message{}, ErrNoUserMessage
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
