package facility

import "github.com/zhouzirui/medguide/backend/internal/model/triage"

// Fallback is returned whenever the directory cannot produce results.
func Fallback() []triage.Facility {
	return []triage.Facility{
		{
			ID:          "fallback-1",
			Name:        "서울아산병원",
			Address:     "서울특별시 송파구 올림픽로43길 88",
			Phone:       "1688-7575",
			Departments: []string{"내과", "외과", "소아청소년과"},
			Description: "국내 최대 규모의 종합병원으로 최첨단 의료 시설을 갖추고 있습니다.",
			Image:       "https://images.unsplash.com/photo-1587350859743-b15272ce100a?q=80&w=1000&auto=format&fit=crop",
		},
		{
			ID:          "fallback-2",
			Name:        "삼성서울병원",
			Address:     "서울특별시 강남구 일원로 81",
			Phone:       "1599-3114",
			Departments: []string{"내과", "정형외과", "이비인후과"},
			Description: "환자 중심의 의료 서비스를 제공하며 암 치료에 특화되어 있습니다.",
			Image:       "https://images.unsplash.com/photo-1519494026892-80bbd2d6fd0d?q=80&w=1000&auto=format&fit=crop",
		},
		{
			ID:          "fallback-3",
			Name:        "강남세브란스병원",
			Address:     "서울특별시 강남구 언주로 211",
			Phone:       "1599-6114",
			Departments: []string{"내과", "안과", "피부과"},
			Description: "강남 지역의 대표적인 대학병원으로 전문적인 진료를 제공합니다.",
			Image:       "https://images.unsplash.com/photo-1551076805-e1869033e561?q=80&w=1000&auto=format&fit=crop",
		},
	}
}
