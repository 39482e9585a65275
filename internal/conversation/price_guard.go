package conversation

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const defaultProductLabel = "해당 제품"

// Price ceiling categories.
const (
	PriceCategoryDairyBeverage = "dairy_beverage"
	PriceCategorySnack         = "snack"
	PriceCategoryShelfStable   = "shelf_stable"
	PriceCategoryOther         = "other"
)

type priceCeiling struct {
	category string
	keywords []string
	max      int
}

// priceCeilings are checked in order; the first keyword hit decides.
var priceCeilings = []priceCeiling{
	{PriceCategoryDairyBeverage, []string{"우유", "요거트", "유제품", "음료", "주스", "생수", "커피", "차", "라떼"}, 10000},
	{PriceCategorySnack, []string{"과자", "쿠키", "스낵", "초콜릿", "시리얼", "빵"}, 15000},
	{PriceCategoryShelfStable, []string{"햇반", "즉석밥", "hmr", "밀키트", "냉동", "통조림", "참치", "햄", "소시지", "반찬", "소스", "쌀"}, 50000},
}

const otherPriceCeiling = 100000

// GuardDecision is the price guard verdict. When Override is set, Text
// replaces the generated reply.
type GuardDecision struct {
	Override bool
	Reason   string
	Category string
	Price    int
	Text     string
}

// priceCeilingFor returns the ceiling category and maximum for a product text.
func priceCeilingFor(productText string) (string, int) {
	t := strings.ToLower(productText)
	for _, c := range priceCeilings {
		if containsAny(t, c.keywords) {
			return c.category, c.max
		}
	}
	return PriceCategoryOther, otherPriceCeiling
}

// ApplyPriceGuard short-circuits turns whose quoted price is implausible for
// a single retail unit of the product category.
func ApplyPriceGuard(snapshot, utterance string) GuardDecision {
	prices := ExtractPrices(snapshot, utterance)
	if len(prices) == 0 {
		return GuardDecision{}
	}
	worst := prices[0]
	for _, p := range prices[1:] {
		if p > worst {
			worst = p
		}
	}

	productHint := snapshot
	if productHint == "" {
		productHint = utterance
	}
	category, ceiling := priceCeilingFor(productHint)
	if worst <= ceiling {
		return GuardDecision{Category: category, Price: worst}
	}

	label := productHint
	if label == "" {
		label = defaultProductLabel
	}
	return GuardDecision{
		Override: true,
		Reason:   fmt.Sprintf("price %d exceeds %s ceiling %d", worst, category, ceiling),
		Category: category,
		Price:    worst,
		Text:     priceOverrideText(label, worst),
	}
}

func priceOverrideText(label string, price int) string {
	return "예상 구매수량은 0개, 기간은 1개월입니다.\n\n" +
		"이유:\n" +
		"1) 가격(" + humanize.Comma(int64(price)) + "원)이 B2C 소매 단품 기준으로 비현실적으로 높아 수요가 거의 발생하지 않습니다.\n" +
		"2) 대체재 대비 지불의사(WTP)를 크게 초과합니다.\n" +
		"3) 프로모션으로도 가격 장벽 해소가 어려워 재구매 가능성이 낮습니다.\n\n" +
		"권장: " + label + "의 상시가는 합리 구간으로 조정하고, 체험용 소용량/번들/구독 등 반복 구매 장치를 병행하세요."
}
