package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// ParseAnalysis strictly decodes provider output. Only surrounding whitespace
// and a single markdown code fence are tolerated around the JSON object.
func ParseAnalysis(raw string) (triage.MedicalAnalysis, error) {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	if trimmed == "" {
		return triage.MedicalAnalysis{}, fmt.Errorf("%w: empty response", ErrInvalidAnalysis)
	}
	return triage.DecodeAnalysis(trimmed)
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text, "```")
	newline := strings.IndexByte(body, '\n')
	if newline == -1 {
		return text
	}
	return strings.TrimSpace(body[newline+1:])
}
