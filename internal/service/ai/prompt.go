package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// PromptTemplate holds the pieces of the triage system instruction.
type PromptTemplate struct {
	Role           string
	Language       string
	Departments    []string
	ResponseRules  []string
	GuardrailRules []string
}

// DefaultPromptTemplate is the Korean-output triage instruction.
func DefaultPromptTemplate() *PromptTemplate {
	return &PromptTemplate{
		Role:     "You are a medical guidance assistant. Based on the user's symptoms, recommend which medical department to visit and explain the condition in plain language.",
		Language: "Korean",
		Departments: []string{
			"내과", "가정의학과", "소화기내과", "호흡기내과", "신경과", "정신건강의학과", "외과", "정형외과",
			"신경외과", "흉부외과", "성형외과", "산부인과", "소아청소년과", "안과", "이비인후과", "피부과",
			"비뇨의학과", "재활의학과", "마취통증의학과", "응급의학과", "치과",
		},
		ResponseRules: []string{
			"Respond with a single JSON object and nothing else: no markdown, no commentary.",
			"department must be one concise department name, preferably from the list above.",
			"urgency must be exactly one of: " + joinUrgencies() + ".",
			"explanation should be friendly and calming, and must state that this is not a medical diagnosis.",
			"Consider the whole conversation; the latest user message may add detail to earlier turns.",
		},
		GuardrailRules: []string{
			fmt.Sprintf("If the latest user message is unrelated to a health symptom, or too vague to classify, set department to %q.", triage.Unclassifiable),
			"In that case explanation must politely ask for more specific symptom details: which part hurts or feels wrong, and since when.",
			fmt.Sprintf("In that case fill every other field with a short, generic, non-alarming placeholder and set urgency to %q.", triage.UrgencyLow),
		},
	}
}

// BuildSystemPrompt renders the template into the system instruction.
func (t *PromptTemplate) BuildSystemPrompt() string {
	return fmt.Sprintf(`%s

Write every field value in %s.

Response format (JSON):
{
  "department": "진료과 이름 (예: 내과, 정형외과)",
  "departmentReason": "why this department fits the symptoms",
  "urgency": "%s",
  "summary": "short summary of the symptoms",
  "explanation": "possible causes, explained gently",
  "cautions": "things to watch out for, including when to seek emergency care",
  "copingMethods": "immediate self-care steps"
}

Known departments: %s

Requirements:
- %s

Guardrail:
- %s`,
		t.Role,
		t.Language,
		joinUrgencies(),
		strings.Join(t.Departments, ", "),
		strings.Join(t.ResponseRules, "\n- "),
		strings.Join(t.GuardrailRules, "\n- "),
	)
}

func joinUrgencies() string {
	values := triage.Urgencies()
	out := make([]string, len(values))
	for i, u := range values {
		out[i] = string(u)
	}
	return strings.Join(out, " | ")
}
