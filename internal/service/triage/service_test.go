package triage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	triagemodel "github.com/zhouzirui/medguide/backend/internal/model/triage"
	"github.com/zhouzirui/medguide/backend/internal/service/ai"
	chatstore "github.com/zhouzirui/medguide/backend/internal/service/chat"
	"github.com/zhouzirui/medguide/backend/internal/service/facility"
)

type stubProvider struct {
	mu       sync.Mutex
	analysis triagemodel.MedicalAnalysis
	err      error
	calls    int
	lastSeen []chat.Message
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Analyze(_ context.Context, messages []chat.Message) (triagemodel.MedicalAnalysis, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastSeen = append([]chat.Message(nil), messages...)
	if p.err != nil {
		return triagemodel.MedicalAnalysis{}, p.err
	}
	return p.analysis, nil
}

type recordingDirectory struct {
	mu          sync.Mutex
	departments []string
	locations   []*triagemodel.Location
}

func (d *recordingDirectory) Recommend(_ context.Context, department string, location *triagemodel.Location) []triagemodel.Facility {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.departments = append(d.departments, department)
	d.locations = append(d.locations, location)
	return facility.Fallback()
}

func neurology() triagemodel.MedicalAnalysis {
	return triagemodel.MedicalAnalysis{
		Department:       "신경과",
		DepartmentReason: "두통과 구역이 동반됩니다.",
		Urgency:          triagemodel.UrgencyModerate,
		Summary:          "이틀간 지속된 두통과 메스꺼움",
		Explanation:      "편두통 가능성이 있습니다. 의학적 진단이 아닙니다.",
		Cautions:         "갑작스러운 극심한 두통은 응급실로 가세요.",
		CopingMethods:    "어두운 곳에서 휴식하세요.",
	}
}

func newTestService(provider ai.Provider) (*Service, chatstore.Store, *recordingDirectory) {
	store := chatstore.NewMemoryStore()
	directory := &recordingDirectory{}
	return NewService(store, provider, directory), store, directory
}

func TestSubmitCreatesConversation(t *testing.T) {
	svc, store, directory := newTestService(&stubProvider{analysis: neurology()})
	loc := &triagemodel.Location{Latitude: 37.5, Longitude: 127.0}

	result, err := svc.Submit(context.Background(), SubmitRequest{Message: "persistent headache and nausea for two days", Location: loc})
	require.NoError(t, err)

	conv := result.Conversation
	assert.NotEmpty(t, conv.ID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, chat.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "신경과", conv.Department)
	assert.Equal(t, "persistent headache", conv.Title)

	require.NotNil(t, result.Analysis)
	assert.Contains(t, triagemodel.Urgencies(), result.Analysis.Urgency)
	assert.NotEmpty(t, result.Facilities)
	assert.Equal(t, []string{"신경과"}, directory.departments)
	assert.Same(t, loc, directory.locations[0])

	stored, err := store.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv, stored)

	decoded, err := triagemodel.DecodeAnalysis(stored.Messages[1].Content)
	require.NoError(t, err)
	assert.Equal(t, neurology(), decoded)
}

func TestSubmitUsesCallerConversationID(t *testing.T) {
	provider := &stubProvider{analysis: neurology()}
	svc, _, _ := newTestService(provider)

	result, err := svc.Submit(context.Background(), SubmitRequest{Message: "머리가 아파요", ConversationID: "chat-123"})
	require.NoError(t, err)
	assert.Equal(t, "chat-123", result.Conversation.ID)

	result, err = svc.Submit(context.Background(), SubmitRequest{Message: "열도 나요", ConversationID: "chat-123"})
	require.NoError(t, err)
	assert.Equal(t, "chat-123", result.Conversation.ID)
	assert.Len(t, result.Conversation.Messages, 4)
	assert.Equal(t, "머리가 아파요", result.Conversation.Title)
	assert.Len(t, provider.lastSeen, 3)
}

func TestSubmitRejectsBlankMessage(t *testing.T) {
	provider := &stubProvider{analysis: neurology()}
	svc, store, _ := newTestService(provider)

	_, err := svc.Submit(context.Background(), SubmitRequest{Message: "   ", ConversationID: "c1"})
	assert.ErrorIs(t, err, ErrMessageRequired)
	assert.Zero(t, provider.calls)

	_, err = store.GetByID(context.Background(), "c1")
	assert.ErrorIs(t, err, chatstore.ErrConversationNotFound)
}

func TestSubmitProviderFailureKeepsUserMessage(t *testing.T) {
	svc, store, directory := newTestService(&stubProvider{err: fmt.Errorf("stub: %w", ai.ErrInvalidAnalysis)})

	_, err := svc.Submit(context.Background(), SubmitRequest{Message: "배가 아파요", ConversationID: "c-fail"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInvalidAnalysis)
	assert.Empty(t, directory.departments)

	stored, err := store.GetByID(context.Background(), "c-fail")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, chat.RoleUser, stored.Messages[0].Role)
	assert.Empty(t, stored.Department)
}

func TestSubmitPassesUnclassifiableThrough(t *testing.T) {
	sentinel := triagemodel.MedicalAnalysis{
		Department:    triagemodel.Unclassifiable,
		Urgency:       triagemodel.UrgencyLow,
		Summary:       "증상 정보 부족",
		Explanation:   "어디가 아프신지, 언제부터인지 알려주세요.",
		Cautions:      "-",
		CopingMethods: "-",
	}
	svc, _, directory := newTestService(&stubProvider{analysis: sentinel})

	result, err := svc.Submit(context.Background(), SubmitRequest{Message: "what's the weather"})
	require.NoError(t, err)
	assert.Equal(t, sentinel, *result.Analysis)
	assert.Equal(t, triagemodel.Unclassifiable, result.Conversation.Department)
	assert.Equal(t, []string{triagemodel.Unclassifiable}, directory.departments)
}

func TestSubmitReportsProgress(t *testing.T) {
	svc, _, _ := newTestService(&stubProvider{analysis: neurology()})

	var stages []Stage
	_, err := svc.SubmitWithProgress(context.Background(), SubmitRequest{Message: "두통", ConversationID: "p1"}, func(p Progress) {
		assert.Equal(t, "p1", p.ConversationID)
		stages = append(stages, p.Stage)
	})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageReceived, StageAnalyzing, StageAnalyzed, StageRecommending, StageCompleted}, stages)

	failing, _, _ := newTestService(&stubProvider{err: errors.New("timeout")})
	stages = nil
	_, err = failing.SubmitWithProgress(context.Background(), SubmitRequest{Message: "두통", ConversationID: "p2"}, func(p Progress) {
		stages = append(stages, p.Stage)
	})
	require.Error(t, err)
	assert.Equal(t, []Stage{StageReceived, StageAnalyzing, StageFailed}, stages)
}

func TestSubmitSerializesSameConversation(t *testing.T) {
	svc, store, _ := newTestService(&stubProvider{analysis: neurology()})

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), SubmitRequest{Message: fmt.Sprintf("증상 %d", i), ConversationID: "shared"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := store.GetByID(context.Background(), "shared")
	require.NoError(t, err)
	require.Len(t, stored.Messages, workers*2)
	for i, msg := range stored.Messages {
		if i%2 == 0 {
			assert.Equal(t, chat.RoleUser, msg.Role)
		} else {
			assert.Equal(t, chat.RoleAssistant, msg.Role)
		}
	}
	assert.Zero(t, svc.locks.size())
}

func TestRetrieve(t *testing.T) {
	svc, store, directory := newTestService(&stubProvider{analysis: neurology()})
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequest{Message: "두통", ConversationID: "r1"})
	require.NoError(t, err)

	loc := &triagemodel.Location{Latitude: 35.1, Longitude: 129.0}
	result, err := svc.Retrieve(ctx, "r1", loc)
	require.NoError(t, err)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, neurology(), *result.Analysis)
	assert.NotEmpty(t, result.Facilities)
	assert.Same(t, loc, directory.locations[len(directory.locations)-1])

	_, err = svc.Retrieve(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	pending := chat.NewHistory("r2", "아직 답이 없어요")
	pending.Messages = append(pending.Messages, chat.NewMessage(chat.RoleUser, "아직 답이 없어요"))
	_, err = store.Save(ctx, pending)
	require.NoError(t, err)

	result, err = svc.Retrieve(ctx, "r2", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Analysis)
	assert.NotNil(t, result.Facilities)
	assert.Empty(t, result.Facilities)

	corrupt := chat.NewHistory("r3", "깨진 응답")
	corrupt.Messages = append(corrupt.Messages,
		chat.NewMessage(chat.RoleUser, "깨진 응답"),
		chat.NewMessage(chat.RoleAssistant, "not-json"),
	)
	_, err = store.Save(ctx, corrupt)
	require.NoError(t, err)

	result, err = svc.Retrieve(ctx, "r3", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Analysis)
	assert.Empty(t, result.Facilities)
}

func TestDirectoryFallbackLogCarriesConversationID(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = previous })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	directory := facility.NewClient(config.DirectoryConfig{
		APIKey:   "service-key",
		BaseURL:  srv.URL,
		PageSize: 10,
		Timeout:  2 * time.Second,
	})
	svc := NewService(chatstore.NewMemoryStore(), &stubProvider{analysis: neurology()}, directory)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequest{Message: "두통", ConversationID: "conv-log"})
	require.NoError(t, err)
	_, err = svc.Retrieve(ctx, "conv-log", nil)
	require.NoError(t, err)

	fallbackLines := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "using fallback") {
			continue
		}
		fallbackLines++
		assert.Contains(t, line, `"conversation_id":"conv-log"`)
	}
	assert.Equal(t, 2, fallbackLines)
}

func TestListProjectsSummaries(t *testing.T) {
	svc, _, _ := newTestService(&stubProvider{analysis: neurology()})
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequest{Message: "첫 번째 대화", ConversationID: "a"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SubmitRequest{Message: "두 번째 대화", ConversationID: "b"})
	require.NoError(t, err)

	summaries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	ids := []string{summaries[0].ID, summaries[1].ID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	for _, s := range summaries {
		assert.Equal(t, "신경과", s.Department)
		assert.NotZero(t, s.CreatedAt)
	}
}

func TestSubmitWithMockProviderHeadacheScenario(t *testing.T) {
	svc := NewService(chatstore.NewMemoryStore(), ai.NewMockProvider(), facility.NewClient(configWithoutKey()))

	result, err := svc.Submit(context.Background(), SubmitRequest{Message: "두통과 메스꺼움이 이틀째 계속돼요"})
	require.NoError(t, err)
	require.NotNil(t, result.Analysis)
	assert.NotEmpty(t, result.Analysis.Department)
	assert.Contains(t, triagemodel.Urgencies(), result.Analysis.Urgency)
	assert.NotEmpty(t, result.Facilities)
	assert.Len(t, result.Conversation.Messages, 2)
}
