package symptom

import (
	"sort"
	"strings"

	"github.com/zhouzirui/medguide/backend/internal/model/triage"
)

// DefaultDepartment is returned when no keyword bucket matches.
const DefaultDepartment = "내과 (가정의학과)"

// Decision is the heuristic department/urgency guess for a symptom description.
type Decision struct {
	Department string
	Urgency    triage.Urgency
	Keywords   []string
	Score      int
}

type bucket struct {
	department string
	keywords   []string
}

// Buckets are checked in order; ties keep the earlier bucket.
var buckets = []bucket{
	{department: "신경과", keywords: []string{"두통", "머리가 아", "어지러", "현기증", "저림", "마비", "headache", "dizzy"}},
	{department: "정형외과", keywords: []string{"허리", "무릎", "관절", "어깨", "발목", "골절", "삐었", "back pain", "knee"}},
	{department: "소화기내과", keywords: []string{"복통", "배가 아", "설사", "구토", "메스꺼", "속쓰림", "소화", "nausea", "stomach"}},
	{department: "이비인후과", keywords: []string{"목이 아", "인후", "코막힘", "콧물", "귀가", "이명", "편도", "sore throat"}},
	{department: "피부과", keywords: []string{"발진", "가려", "두드러기", "여드름", "피부", "rash", "itch"}},
	{department: "안과", keywords: []string{"눈이", "시야", "충혈", "눈물", "침침", "eye"}},
	{department: "호흡기내과", keywords: []string{"기침", "가래", "숨이 차", "천식", "cough"}},
	{department: "비뇨의학과", keywords: []string{"소변", "배뇨", "방광", "urine"}},
	{department: "정신건강의학과", keywords: []string{"불면", "우울", "불안", "공황", "insomnia", "anxiety"}},
	{department: "소아청소년과", keywords: []string{"아기", "아이가", "유아", "child"}},
	{department: "산부인과", keywords: []string{"생리", "임신", "질염", "pregnan"}},
}

// Emergency red flags escalate urgency regardless of department.
var emergencyKeywords = []string{
	"가슴 통증", "흉통", "숨을 못", "호흡곤란", "의식", "실신", "마비", "피를 토", "심한 출혈",
	"chest pain", "can't breathe", "unconscious",
}

var highKeywords = []string{"심한", "심해", "극심", "참을 수 없", "고열", "39도", "40도", "severe"}

// Analyze scores symptom text against the keyword buckets.
func Analyze(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))

	bestIdx, bestScore := -1, 0
	var matched []string
	for i, b := range buckets {
		score := 0
		var hits []string
		for _, word := range b.keywords {
			if strings.Contains(normalized, strings.ToLower(word)) {
				score += 3
				hits = append(hits, word)
			}
		}
		if score > bestScore {
			bestIdx, bestScore, matched = i, score, hits
		}
	}

	decision := Decision{
		Department: DefaultDepartment,
		Urgency:    urgencyFor(normalized, bestScore),
		Score:      bestScore,
	}
	if bestIdx >= 0 {
		decision.Department = buckets[bestIdx].department
		decision.Keywords = matched
		sort.Strings(decision.Keywords)
	}
	return decision
}

func urgencyFor(normalized string, score int) triage.Urgency {
	if containsAny(normalized, emergencyKeywords) {
		return triage.UrgencyEmergency
	}
	if containsAny(normalized, highKeywords) {
		return triage.UrgencyHigh
	}
	// a single mild hit is the only case rated low; unknown text stays moderate
	if score == 3 {
		return triage.UrgencyLow
	}
	return triage.UrgencyModerate
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, strings.ToLower(word)) {
			return true
		}
	}
	return false
}
