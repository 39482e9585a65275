package conversation

import (
	"fmt"
	"strings"

	"github.com/cwal8202/chill-tuna-web/internal/persona"
)

// GreetingReply introduces the persona by name.
func GreetingReply(p *persona.Persona) string {
	return fmt.Sprintf("안녕하세요! 저는 %s이에요! 식품 판매에 대한 질문을 해주실래요?", p.ResolvedName())
}

var (
	introAges       = []string{"10대", "20대", "30대", "40대", "50대", "60대", "60대 이상"}
	introGenders    = []string{"여자", "남자"}
	introHouseholds = []string{"1인 가구", "2인 가구", "3인 가구", "4인 가구", "대가족"}
	introRegions    = []string{
		"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종", "경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
		"서울특별시", "부산광역시", "대구광역시", "인천광역시", "광주광역시", "대전광역시", "울산광역시", "세종특별자치시",
	}
)

func firstContained(candidates []string, text string) string {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// SelfIntroReply describes the persona's demographics and shopping priorities
// using only what its tag states.
func SelfIntroReply(p *persona.Persona) string {
	tag := p.Tag()

	age := firstContained(introAges, tag)
	gender := firstContained(introGenders, tag)
	household := firstContained(introHouseholds, tag)
	region := firstContained(introRegions, tag)

	health := strings.Contains(tag, "건강")
	convenience := containsAny(tag, []string{"편의", "간편", "hmr", "HMR"})
	premium := containsAny(tag, []string{"프리미엄", "품질"})
	lowPriceSensitivity := premium || (strings.Contains(tag, "가격") &&
		(strings.Contains(tag, "구애받지 않") ||
			(strings.Contains(tag, "민감") && containsAny(tag, []string{"낮", "적"}))))

	var parts []string
	switch {
	case health && convenience:
		parts = append(parts, "건강·편의 선호가 높고")
	case health:
		parts = append(parts, "건강을 특히 중시하고")
	case convenience:
		parts = append(parts, "편의를 특히 중시하고")
	}
	if lowPriceSensitivity {
		parts = append(parts, "가격 민감도는 낮아 품질을 봐요")
	} else {
		parts = append(parts, "가격에도 민감한 편이에요")
	}

	var who strings.Builder
	if region != "" {
		who.WriteString(region + "에 사는 ")
	}
	who.WriteString(age)
	if gender != "" {
		who.WriteString(" " + gender)
	}
	if household != "" {
		who.WriteString(" " + household)
	}
	whoText := strings.TrimSpace(who.String())
	if whoText != "" {
		whoText += "의 "
	}
	return fmt.Sprintf("저는 %s%s이고, %s.", whoText, p.ResolvedName(), strings.Join(parts, " "))
}

const preferenceThreshold = 0.6

var (
	preferenceSentimentWords = []string{"좋아", "좋아해", "싫어", "싫어해", "어때"}
	preferenceHamWords       = []string{"햄", "리챔", "스팸", "런천미트", "캔햄"}
	preferenceCoffeeWords    = []string{"커피", "라떼"}
	preferenceChocolateWords = []string{"초코", "초콜릿"}
)

// FoodPreferenceReply answers small-talk about food likes and dislikes from
// the persona's trait scores. It returns "" when the utterance carries
// purchase intent or is not a preference question.
func FoodPreferenceReply(p *persona.Persona, utterance string) string {
	t := normalize(utterance)
	if HasPurchaseIntent(t) {
		return ""
	}
	traits := p.Traits()
	healthy := traits.HealthOrientation >= preferenceThreshold

	if MatchesLikeTrigger(t) {
		var picks []string
		if healthy {
			picks = append(picks, "샐러드나 그릴드 같은 담백한 메뉴")
		}
		if traits.HMRPreference >= preferenceThreshold {
			picks = append(picks, "간단히 데워 먹는 밀키트/즉석 한 끼")
		}
		if traits.PremiumOrientation >= preferenceThreshold {
			picks = append(picks, "원재료가 잘 보이는 프리미엄 제품")
		}
		if len(picks) == 0 {
			picks = append(picks, "집에서 손쉽게 준비할 수 있는 편한 메뉴")
		}
		extra := ""
		if traits.HMRPreference >= preferenceThreshold {
			extra = " 바쁠 땐 HMR도 자주 골라요."
		}
		return fmt.Sprintf("저는 %s를 좋아해요.%s", strings.Join(picks, ", "), extra)
	}

	if MatchesDislikeTrigger(t) {
		base := "특별히 가리는 건 많지 않아요"
		if healthy {
			base = "너무 달거나 기름진 음식, 짠맛이 강한 가공육"
		}
		return fmt.Sprintf("저는 %s는 잘 안 먹어요.", base)
	}

	if !containsAny(t, preferenceSentimentWords) {
		return ""
	}
	switch {
	case strings.Contains(t, "참치"):
		note := "가성비 좋은 제품이면 괜찮아요"
		if healthy {
			note = "저염/물담금이나 올리브오일 타입으로 골라요"
		}
		qual := "가끔 먹어요"
		if traits.HealthOrientation >= 0.4 {
			qual = "좋아해요"
		}
		return fmt.Sprintf("저는 캔 참치 %s. %s.", qual, note)
	case containsAny(t, preferenceHamWords):
		if healthy {
			return "가끔은 먹지만 저염/저지방 위주로 골라요. 일상적으로는 많이 찾진 않아요."
		}
		return "가끔 간단한 요리에 쓰는 편이에요."
	case containsAny(t, preferenceCoffeeWords):
		if healthy {
			return "커피는 좋아해요. 다만 너무 달지 않은 걸로 마셔요."
		}
		return "커피 좋아해요! 달달한 라떼도 가끔 즐겨요."
	case containsAny(t, preferenceChocolateWords):
		if healthy {
			return "초콜릿은 좋아하지만, 보통은 다크로 조금만 먹어요."
		}
		return "초콜릿 좋아해요. 기분전환용으로 자주 먹는 편이에요."
	}
	return ""
}
