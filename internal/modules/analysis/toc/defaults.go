package toc

import "github.com/yungbote/bizplan-backend/internal/domain/analysis"

const defaultConfidence = 0.3

// Default is the R&D skeleton used when every strategy fails.
func Default() *analysis.TOC {
	secs := []analysis.Section{
		{Number: "1", Title: "연구개발과제의 개요", Description: "과제의 배경, 필요성, 최종 목표를 요약합니다."},
		{Number: "2", Title: "연구개발과제의 현황", Description: "국내외 기술 및 시장 현황과 선행 연구 성과를 정리합니다."},
		{Number: "3", Title: "연구개발과제의 추진계획", Description: "연차별 목표, 연구 내용, 추진 체계와 일정을 제시합니다."},
		{Number: "4", Title: "연구개발성과의 활용방안 및 기대효과", Description: "사업화 계획과 기술적·경제적 파급 효과를 설명합니다."},
		{Number: "5", Title: "연구개발비 및 연구기간", Description: "총 연구기간과 비목별 소요 예산을 제시합니다."},
	}
	for i := range secs {
		secs[i].Level = analysis.LevelMain
	}
	return &analysis.TOC{
		Source:              analysis.SourceDefault,
		Method:              analysis.MethodFallback,
		InferenceConfidence: analysis.Float(defaultConfidence),
		Sections:            secs,
	}
}
