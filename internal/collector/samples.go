package collector

import "technewsag/internal/models"

const sampleSource = "샘플 뉴스"

// sampleRecords is the fixed fallback set appended when a collection run
// gathers too few real articles, so the dashboard never shows an empty state
// purely because of transient source failures. Order is fixed; ids come from
// the normalizer sequence like any other article.
var sampleRecords = []models.Record{
	{
		Title:       "삼성전자, 차세대 3나노 반도체 양산 본격화",
		Link:        "#sample-1",
		Description: "삼성전자가 3나노 공정 기반 시스템 반도체 양산을 확대한다. 파운드리 수주 경쟁이 한층 치열해질 전망이다.",
	},
	{
		Title:       "생성형 AI 열풍에 국내 스타트업 투자 급증",
		Link:        "#sample-2",
		Description: "생성형 AI 관련 국내 스타트업에 대한 벤처캐피탈 투자가 전년 대비 두 배 이상 늘었다.",
	},
	{
		Title:       "SK하이닉스, HBM 메모리 생산 능력 확대 발표",
		Link:        "#sample-3",
		Description: "AI 서버 수요 증가로 고대역폭 메모리(HBM) 공급 부족이 이어지면서 생산 라인을 증설한다.",
	},
	{
		Title:       "현대차, 자율주행 레벨3 기술 상용화 일정 공개",
		Link:        "#sample-4",
		Description: "현대차가 고속도로 자율주행을 지원하는 레벨3 기술의 양산 적용 일정을 공개했다.",
	},
	{
		Title:       "정부, 6G 통신 기술 개발에 5년간 집중 투자",
		Link:        "#sample-5",
		Description: "과기정통부가 6G 핵심 기술 확보를 위한 연구개발 로드맵을 발표했다.",
	},
	{
		Title:       "카카오, 클라우드 기반 기업용 AI 플랫폼 출시",
		Link:        "#sample-6",
		Description: "카카오가 기업 고객을 위한 클라우드 기반 생성형 AI 서비스를 선보였다.",
	},
	{
		Title:       "LG에너지솔루션, 북미 배터리 합작 공장 착공",
		Link:        "#sample-7",
		Description: "LG에너지솔루션이 북미 완성차 업체와 이차전지 합작 공장 건설을 시작했다.",
	},
	{
		Title:       "랜섬웨어 공격 급증, 중소기업 보안 비상",
		Link:        "#sample-8",
		Description: "올해 상반기 국내 랜섬웨어 피해 신고가 크게 늘며 사이버보안 투자 필요성이 커지고 있다.",
	},
	{
		Title:       "네이버, 초거대 AI 검색 서비스 전면 개편",
		Link:        "#sample-9",
		Description: "네이버가 초거대 언어모델을 적용한 검색 서비스 개편안을 공개했다.",
	},
	{
		Title:       "국내 연구진, 양자컴퓨팅 오류 보정 기술 개발",
		Link:        "#sample-10",
		Description: "국내 연구진이 양자컴퓨팅 상용화의 걸림돌인 오류 보정 문제를 개선하는 기술을 개발했다.",
	},
}
