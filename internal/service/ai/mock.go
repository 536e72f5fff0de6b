package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/medguide/backend/internal/analysis/symptom"
	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// MockProvider answers offline from keyword heuristics. It never fails.
type MockProvider struct{}

// NewMockProvider returns the offline provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

// Name identifies the provider in logs.
func (p *MockProvider) Name() string { return config.ProviderMock }

// Analyze classifies the latest user message with symptom.Analyze.
func (p *MockProvider) Analyze(_ context.Context, messages []chat.Message) (triage.MedicalAnalysis, error) {
	text := ""
	if _, latest, err := splitTurns(messages); err == nil {
		text = latest.Content
	}

	decision := symptom.Analyze(text)

	reason := "입력된 증상에서 특정 진료과를 가리키는 단서를 찾지 못해 일반 진료를 권합니다."
	if len(decision.Keywords) > 0 {
		reason = fmt.Sprintf("'%s' 증상은 %s에서 진료하는 경우가 많습니다.", strings.Join(decision.Keywords, "', '"), decision.Department)
	}

	return triage.MedicalAnalysis{
		Department:       decision.Department,
		DepartmentReason: reason,
		Urgency:          decision.Urgency,
		Summary:          "증상에 대한 모의 분석 결과입니다.",
		Explanation:      "AI 제공자가 설정되지 않아 모의 데이터를 반환합니다. 이 내용은 의학적 진단이 아닙니다.",
		Cautions:         "증상이 심해지면 즉시 병원을 방문하세요.",
		CopingMethods:    "충분한 휴식을 취하고 수분을 섭취하세요.",
	}, nil
}
