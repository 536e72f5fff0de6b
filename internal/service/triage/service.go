package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	triagemodel "github.com/zhouzirui/medguide/backend/internal/model/triage"
	"github.com/zhouzirui/medguide/backend/internal/service/ai"
	chatstore "github.com/zhouzirui/medguide/backend/internal/service/chat"
)

var (
	// ErrMessageRequired rejects blank submissions before any state changes.
	ErrMessageRequired = errors.New("message is required")
	// ErrConversationNotFound is returned by Retrieve for unknown ids.
	ErrConversationNotFound = chatstore.ErrConversationNotFound
)

// Recommender produces the facility list for a department.
type Recommender interface {
	Recommend(ctx context.Context, department string, location *triagemodel.Location) []triagemodel.Facility
}

// SubmitRequest is one user turn.
type SubmitRequest struct {
	Message        string
	ConversationID string
	Location       *triagemodel.Location
}

// Result bundles a conversation with its latest analysis and fresh facilities.
type Result struct {
	Conversation chat.History                 `json:"conversation"`
	Analysis     *triagemodel.MedicalAnalysis `json:"analysis"`
	Facilities   []triagemodel.Facility       `json:"facilities"`
}

// Service orchestrates store, provider and directory for each turn.
type Service struct {
	store     chatstore.Store
	provider  ai.Provider
	directory Recommender
	locks     *keyedMutex
}

// NewService wires the orchestrator.
func NewService(store chatstore.Store, provider ai.Provider, directory Recommender) *Service {
	return &Service{
		store:     store,
		provider:  provider,
		directory: directory,
		locks:     newKeyedMutex(),
	}
}

// Submit processes one user message.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	return s.SubmitWithProgress(ctx, req, nil)
}

// SubmitWithProgress is Submit with stage notifications. Turns on the same
// conversation are serialized; the user message is kept even when analysis fails.
func (s *Service) SubmitWithProgress(ctx context.Context, req SubmitRequest, observe ProgressFunc) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrMessageRequired
	}

	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		id = uuid.NewString()
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	t := newTurn(id, observe)
	logger := log.With().Str("conversation_id", id).Str("provider", s.provider.Name()).Logger()
	ctx = logger.WithContext(ctx)

	history, err := s.appendUserMessage(ctx, id, message)
	if err != nil {
		t.fail(ctx)
		logger.Error().Err(err).Msg("failed to store user message")
		return nil, err
	}

	t.fire(ctx, triggerAnalyze)
	analysis, err := s.provider.Analyze(ctx, history.Messages)
	if err != nil {
		t.fail(ctx)
		logger.Error().Err(err).Int("messages", len(history.Messages)).Msg("symptom analysis failed")
		return nil, fmt.Errorf("analyze symptoms: %w", err)
	}

	content, err := analysis.Encode()
	if err != nil {
		t.fail(ctx)
		return nil, err
	}
	history.Department = analysis.Department
	history.Messages = append(history.Messages, chat.NewMessage(chat.RoleAssistant, content))
	history, err = s.store.Save(ctx, history)
	if err != nil {
		t.fail(ctx)
		logger.Error().Err(err).Str("department", analysis.Department).Msg("failed to store analysis")
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	t.fire(ctx, triggerAnalyzed)

	t.fire(ctx, triggerRecommend)
	facilities := s.directory.Recommend(ctx, analysis.Department, req.Location)
	t.fire(ctx, triggerComplete)

	logger.Info().Str("department", analysis.Department).Str("urgency", string(analysis.Urgency)).Int("facilities", len(facilities)).Msg("triage turn completed")

	return &Result{
		Conversation: history,
		Analysis:     &analysis,
		Facilities:   facilities,
	}, nil
}

func (s *Service) appendUserMessage(ctx context.Context, id, message string) (chat.History, error) {
	userMessage := chat.NewMessage(chat.RoleUser, message)

	history, err := s.store.AppendMessage(ctx, id, userMessage)
	if err == nil {
		return history, nil
	}
	if !errors.Is(err, chatstore.ErrConversationNotFound) {
		return chat.History{}, fmt.Errorf("append message: %w", err)
	}

	history = chat.NewHistory(id, message)
	history.Messages = append(history.Messages, userMessage)
	history, err = s.store.Save(ctx, history)
	if err != nil {
		return chat.History{}, fmt.Errorf("create conversation: %w", err)
	}
	return history, nil
}

// Retrieve returns a stored conversation with its latest analysis and a
// facility list recomputed for location.
func (s *Service) Retrieve(ctx context.Context, id string, location *triagemodel.Location) (*Result, error) {
	history, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	result := &Result{Conversation: history, Facilities: []triagemodel.Facility{}}

	latest, ok := history.LastAssistantMessage()
	if !ok {
		return result, nil
	}

	analysis, err := triagemodel.DecodeAnalysis(latest.Content)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", history.ID).Str("message_id", latest.ID).Msg("stored analysis unreadable")
		return result, nil
	}

	result.Analysis = &analysis
	ctx = log.With().Str("conversation_id", history.ID).Logger().WithContext(ctx)
	result.Facilities = s.directory.Recommend(ctx, analysis.Department, location)
	return result, nil
}

// List projects every conversation, most recently updated first.
func (s *Service) List(ctx context.Context) ([]chat.Summary, error) {
	histories, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]chat.Summary, 0, len(histories))
	for _, h := range histories {
		summaries = append(summaries, h.Summary())
	}
	return summaries, nil
}

// ProviderName reports the active analysis provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
