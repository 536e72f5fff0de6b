package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Urgency is the coarse severity attached to an analysis.
type Urgency string

const (
	UrgencyLow       Urgency = "낮음"
	UrgencyModerate  Urgency = "보통"
	UrgencyHigh      Urgency = "높음"
	UrgencyEmergency Urgency = "응급"
)

// Unclassifiable is the department the guardrail returns for non-symptom input.
const Unclassifiable = "unclassifiable"

// ErrInvalidAnalysis marks payloads that do not satisfy the analysis contract.
var ErrInvalidAnalysis = errors.New("invalid analysis")

var urgencyAliases = map[string]Urgency{
	"낮음":        UrgencyLow,
	"low":       UrgencyLow,
	"보통":        UrgencyModerate,
	"moderate":  UrgencyModerate,
	"medium":    UrgencyModerate,
	"높음":        UrgencyHigh,
	"high":      UrgencyHigh,
	"응급":        UrgencyEmergency,
	"emergency": UrgencyEmergency,
}

// ParseUrgency normalizes Korean or English labels to the canonical value.
func ParseUrgency(raw string) (Urgency, bool) {
	u, ok := urgencyAliases[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// Urgencies lists the canonical values in ascending severity.
func Urgencies() []Urgency {
	return []Urgency{UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyEmergency}
}

// MedicalAnalysis is the structured recommendation produced for one user turn.
type MedicalAnalysis struct {
	Department       string  `json:"department"`
	DepartmentReason string  `json:"departmentReason"`
	Urgency          Urgency `json:"urgency"`
	Summary          string  `json:"summary"`
	Explanation      string  `json:"explanation"`
	Cautions         string  `json:"cautions"`
	CopingMethods    string  `json:"copingMethods"`
}

// Unclassified reports whether the guardrail sentinel was returned.
func (a MedicalAnalysis) Unclassified() bool {
	return strings.TrimSpace(a.Department) == Unclassifiable
}

// Validate checks required fields and normalizes the urgency label in place.
func (a *MedicalAnalysis) Validate() error {
	missing := make([]string, 0, 6)
	for name, value := range map[string]string{
		"department":    a.Department,
		"urgency":       string(a.Urgency),
		"summary":       a.Summary,
		"explanation":   a.Explanation,
		"cautions":      a.Cautions,
		"copingMethods": a.CopingMethods,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing fields %s", ErrInvalidAnalysis, strings.Join(missing, ", "))
	}

	urgency, ok := ParseUrgency(string(a.Urgency))
	if !ok {
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidAnalysis, a.Urgency)
	}
	a.Urgency = urgency
	return nil
}

// Encode serializes the analysis into assistant message content.
func (a MedicalAnalysis) Encode() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	return string(data), nil
}

// DecodeAnalysis parses JSON text into a validated analysis.
func DecodeAnalysis(content string) (MedicalAnalysis, error) {
	var analysis MedicalAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return MedicalAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}
	if err := analysis.Validate(); err != nil {
		return MedicalAnalysis{}, err
	}
	return analysis, nil
}
