package keywords

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 12

// Relevance weights. Heuristic tuning values, kept as named constants so they
// can be adjusted in one place.
const (
	headBonus    = 3 // candidate appears in the leading portion of the text
	lengthBonus  = 1 // candidate length between 3 and 10 characters
	acronymBonus = 2 // candidate is an acronym or a high-value domain term
	headWindow   = 100
)

// techDictionary is the curated bilingual whitelist of technology terms.
// Containment is tested case-insensitively against the input text.
var techDictionary = []string{
	// 첨단 제조·기술
	"반도체", "메모리", "파운드리", "웨이퍼", "노광", "EUV",
	"전기차", "자율주행", "모빌리티", "테슬라", "현대차",
	"이차전지", "배터리", "ESS", "양극재", "음극재", "전해질", "분리막",
	"디스플레이", "OLED", "마이크로 LED", "LCD",
	"로봇", "스마트팩토리", "협동로봇",

	// 에너지·환경
	"원자력", "태양광", "풍력", "수소", "신재생에너지",
	"탄소중립", "친환경", "CCUS", "재활용",

	// 디지털·ICT
	"AI", "인공지능", "머신러닝", "딥러닝", "생성형", "챗GPT", "로보틱스",
	"5G", "6G", "네트워크", "클라우드", "SaaS",
	"소프트웨어", "메타버스", "보안", "핀테크", "플랫폼", "빅데이터", "블록체인",
	"VR", "AR", "가상현실", "증강현실", "디지털전환", "DX",

	// 바이오·헬스케어
	"바이오", "제약", "신약", "바이오시밀러",
	"의료기기", "헬스케어", "웨어러블", "원격진료",

	// 소재·화학
	"나노소재", "고분자", "복합소재", "정밀화학", "석유화학",

	// 인프라·기반
	"철강", "조선", "스마트건설", "물류", "전자상거래", "공급망",
	"스마트팜", "푸드테크",

	// 기타
	"IoT", "사물인터넷", "양자컴퓨팅", "사이버보안", "해킹", "랜섬웨어",
	"스타트업", "유니콘", "벤처캐피탈", "IPO", "M&A",
}

// highValueTerms get the acronym bonus even when they do not look like
// acronyms themselves.
var highValueTerms = map[string]bool{
	"AI":    true,
	"인공지능":  true,
	"반도체":   true,
	"5G":    true,
	"6G":    true,
	"배터리":   true,
	"전기차":   true,
	"로봇":    true,
	"클라우드":  true,
	"블록체인":  true,
	"메타버스":  true,
	"양자컴퓨팅": true,
}

// stoplist rejects pattern matches that are common words rather than terms.
var stoplist = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "NEW": true, "NOT": true,
	"ARE": true, "WAS": true, "HAS": true, "ITS": true, "ALL": true,
	"ONE": true, "TWO": true, "OUT": true, "NOW": true, "HOW": true,
}

var (
	acronymPattern  = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	camelPattern    = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z][A-Za-z]*\b`)
	suffixPattern   = regexp.MustCompile(`[가-힣]+(기술|시스템|플랫폼|서비스|솔루션)`)
	unitPattern     = regexp.MustCompile(`\b[0-9]+[A-Za-z]{1,4}\b`)
	acronymComplete = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)
)

// Extract returns up to 12 keywords from the text, ordered by descending
// relevance score. Empty input yields nil.
func Extract(text string) []string {
	ranked := ExtractScored(text)
	if len(ranked) == 0 {
		return nil
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.Keyword
	}
	return out
}

// Scored is a keyword candidate with its relevance score.
type Scored struct {
	Keyword string
	Score   int
}

// ExtractScored runs the full pipeline: dictionary pass, pattern pass,
// dedup, scoring, ranking.
func ExtractScored(text string) []Scored {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var candidates []string
	seen := make(map[string]bool)
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		if len([]rune(kw)) < 2 {
			return
		}
		if stoplist[strings.ToUpper(kw)] {
			return
		}
		key := strings.ToLower(kw)
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, kw)
	}

	// Dictionary pass.
	for _, term := range techDictionary {
		if strings.Contains(lower, strings.ToLower(term)) {
			add(term)
		}
	}

	// Pattern pass.
	for _, pat := range []*regexp.Regexp{acronymPattern, camelPattern, suffixPattern, unitPattern} {
		for _, m := range pat.FindAllString(text, -1) {
			add(m)
		}
	}

	ranked := make([]Scored, 0, len(candidates))
	for _, kw := range candidates {
		ranked = append(ranked, Scored{Keyword: kw, Score: score(text, lower, kw)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > maxKeywords {
		ranked = ranked[:maxKeywords]
	}
	return ranked
}

func score(text, lower, kw string) int {
	kwLower := strings.ToLower(kw)
	s := 0

	// The window is measured in characters, not bytes; Korean text runs
	// several bytes per character.
	head := lower
	if runes := []rune(head); len(runes) > headWindow {
		head = string(runes[:headWindow])
	}
	if strings.Contains(head, kwLower) {
		s += headBonus
	}

	s += strings.Count(lower, kwLower)

	if n := len([]rune(kw)); n >= 3 && n <= 10 {
		s += lengthBonus
	}

	if acronymComplete.MatchString(kw) || highValueTerms[kw] {
		s += acronymBonus
	}

	return s
}
