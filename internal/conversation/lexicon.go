package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RefusalText is the fixed reply for utterances outside the food demand domain.
const RefusalText = "미안해요! 저는 식품/가공식품/음료 제품의 판매량·수요예측과 그것을 늘리는 방법" +
	"(예상 구매개수·월별 패턴·가격/프로모션/계절성/채널/번들/구독 등)에만 답해요. " +
	"제품명과 기간/조건을 알려주시면 바로 추정해볼게요."

// refusalPrefix identifies stored persona turns that were refusals.
const refusalPrefix = "미안해요! 저는 식품/가공식품/음료 제품의 판매량·수요예측"

var (
	greetingRE = regexp.MustCompile(`(?i)^(안녕하세요|안녕|하이|hello|hi)[!,.\s]*$`)

	likeRE    = regexp.MustCompile(`(좋아|선호)[^\n]{0,20}(음식|제품|식품|메뉴)|(음식|제품|식품|메뉴)[^\n]{0,20}(좋아|선호)`)
	dislikeRE = regexp.MustCompile(`(싫어|비선호|안\s*좋아)[^\n]{0,20}(음식|제품|식품|메뉴)|(음식|제품|식품|메뉴)[^\n]{0,20}(싫어|비선호|안\s*좋아)`)

	quantityMentionRE = regexp.MustCompile(`(몇\s*개|\d+\s*개|\d+\s*원)`)
	priceRE           = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)\s*원`)
	firstCountRE      = regexp.MustCompile(`(\d{1,3})\s*개`)
)

var foodHints = []string{
	"우유", "요거트", "라떼", "커피", "차", "주스", "음료", "생수",
	"라면", "과자", "쿠키", "스낵", "초콜릿", "시리얼", "빵",
	"햇반", "즉석밥", "밀키트", "hmr", "냉동", "통조림", "참치", "햄", "소시지", "반찬", "소스", "쌀",
}

var intentHints = []string{
	"살래", "사 말래", "사말래", "사야", "사요", "구매", "구입",
	"몇개", "몇 개", "수량", "빈도", "출시",
	"프로모션", "가격", "할인", "원", "예측", "판매", "수요",
	"재구매", "구독", "번들", "묶음", "채널", "유통", "행사",
}

var comparisonMarkers = []string{" vs ", "vs", "대비", "비교"}

var likeTriggers = []string{
	"좋아하는 음식", "좋아하는 제품", "좋아하는 식품", "좋아하는 메뉴",
	"선호하는 음식", "선호하는 제품", "선호하는 식품", "선호하는 메뉴",
	"뭐 좋아해", "무슨 음식 좋아", "최애",
}

var dislikeTriggers = []string{
	"싫어하는 음식", "싫어하는 제품", "싫어하는 식품", "싫어하는 메뉴",
	"비선호 음식", "비선호 제품", "비선호 식품",
	"안 좋아하는 음식", "무슨 음식 싫어", "별로 안 좋아해",
}

var selfIntroTriggers = []string{
	"너는 누구", "누구야", "어떤 페르소나", "자기소개", "이름이 뭐",
	"프로필 알려줘", "정체가 뭐", "자기 소개", "어떤 소비자", "소비자야",
}

// Verdict is the outcome of a forced-binary model answer.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictYes
	VerdictNo
)

func (v Verdict) String() string {
	switch v {
	case VerdictYes:
		return "yes"
	case VerdictNo:
		return "no"
	default:
		return "unknown"
	}
}

var (
	yesTokens = []string{"예", "네", "yes"}
	noTokens  = []string{"아니오", "아니요", "no"}
)

// ParseYesNo reads a one-word classifier answer. Anything that does not start
// with a yes/no token followed by a word boundary is VerdictUnknown.
func ParseYesNo(token string) Verdict {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.Trim(t, ".! \n\t")
	if hasWordPrefix(t, yesTokens) {
		return VerdictYes
	}
	if hasWordPrefix(t, noTokens) {
		return VerdictNo
	}
	return VerdictUnknown
}

// hasWordPrefix matches a prefix that is not immediately followed by another
// word rune. regexp's \b only understands ASCII, which breaks on Hangul.
func hasWordPrefix(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if !strings.HasPrefix(text, p) {
			continue
		}
		rest := text[len(p):]
		if rest == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !isWordRune(r) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether the utterance is nothing but a short greeting.
func IsGreeting(text string) bool {
	return greetingRE.MatchString(strings.TrimSpace(text))
}

// HasFoodHint reports whether the text mentions a known food or beverage word.
func HasFoodHint(text string) bool {
	return containsAny(normalize(text), foodHints)
}

// HasIntentHint reports whether the text mentions purchase or demand vocabulary.
func HasIntentHint(text string) bool {
	return containsAny(normalize(text), intentHints)
}

// IsFoodInScopeHeuristic is the keyword-only scope test: a food word plus
// either purchase intent or a comparison marker.
func IsFoodInScopeHeuristic(text string) bool {
	t := normalize(text)
	if !containsAny(t, foodHints) {
		return false
	}
	return containsAny(t, intentHints) || containsAny(t, comparisonMarkers)
}

// MatchesLikeTrigger covers both the fixed phrases and the proximity pattern.
func MatchesLikeTrigger(text string) bool {
	t := normalize(text)
	return containsAny(t, likeTriggers) || likeRE.MatchString(t)
}

// MatchesDislikeTrigger covers both the fixed phrases and the proximity pattern.
func MatchesDislikeTrigger(text string) bool {
	t := normalize(text)
	return containsAny(t, dislikeTriggers) || dislikeRE.MatchString(t)
}

// MatchesLikePattern reports a like word within 20 runes of a food noun.
func MatchesLikePattern(text string) bool {
	return likeRE.MatchString(normalize(text))
}

// MatchesDislikePattern reports a dislike word within 20 runes of a food noun.
func MatchesDislikePattern(text string) bool {
	return dislikeRE.MatchString(normalize(text))
}

// IsSelfIntroRequest reports whether the user asks who the persona is.
func IsSelfIntroRequest(text string) bool {
	return containsAny(normalize(text), selfIntroTriggers)
}

// HasPurchaseIntent reports intent vocabulary or an explicit count/price.
func HasPurchaseIntent(text string) bool {
	t := normalize(text)
	return containsAny(t, intentHints) || quantityMentionRE.MatchString(t)
}

// IsRefusal reports whether a stored persona turn is the fixed refusal.
func IsRefusal(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), refusalPrefix)
}

// ShouldIncludeUserTurn decides whether a past user turn belongs in the
// curated history.
func ShouldIncludeUserTurn(text string) bool {
	t := normalize(text)
	if t == "" {
		return false
	}
	if greetingRE.MatchString(t) {
		return true
	}
	if IsFoodInScopeHeuristic(t) {
		return true
	}
	return MatchesLikeTrigger(t) || MatchesDislikeTrigger(t)
}

// ExtractPrices returns every positive "<number>원" amount across texts, in order.
func ExtractPrices(texts ...string) []int {
	var prices []int
	for _, text := range texts {
		for _, m := range priceRE.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
			if err != nil || n <= 0 {
				continue
			}
			prices = append(prices, n)
		}
	}
	return prices
}

// ExtractFirstQuantity returns the first "<N>개" count in text.
func ExtractFirstQuantity(text string) (int, bool) {
	m := firstCountRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
