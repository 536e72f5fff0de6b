package symptom

import (
	"testing"

	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

func TestAnalyzeHeadacheGoesToNeurology(t *testing.T) {
	decision := Analyze("이틀째 두통이 있고 어지러워요")
	if decision.Department != "신경과" {
		t.Fatalf("expected 신경과, got %s", decision.Department)
	}
	if decision.Urgency != triage.UrgencyModerate {
		t.Fatalf("expected moderate urgency for two hits, got %s", decision.Urgency)
	}
	if len(decision.Keywords) != 2 {
		t.Fatalf("expected two keyword hits, got %v", decision.Keywords)
	}
}

func TestAnalyzeStrongestBucketWins(t *testing.T) {
	decision := Analyze("두통도 조금 있지만 복통과 설사, 구토가 심해요")
	if decision.Department != "소화기내과" {
		t.Fatalf("expected 소화기내과, got %s", decision.Department)
	}
	if decision.Urgency != triage.UrgencyHigh {
		t.Fatalf("expected high urgency from 심해, got %s", decision.Urgency)
	}
}

func TestAnalyzeChestPainIsEmergency(t *testing.T) {
	decision := Analyze("갑자기 가슴 통증이 있어요")
	if decision.Urgency != triage.UrgencyEmergency {
		t.Fatalf("expected emergency urgency, got %s", decision.Urgency)
	}
}

func TestAnalyzeFallsBackToDefault(t *testing.T) {
	decision := Analyze("오늘 날씨 어때?")
	if decision.Department != DefaultDepartment {
		t.Fatalf("expected default department, got %s", decision.Department)
	}
	if decision.Score != 0 || len(decision.Keywords) != 0 {
		t.Fatalf("expected no keyword hits, got %+v", decision)
	}
}
