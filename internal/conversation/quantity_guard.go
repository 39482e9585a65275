package conversation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Product categories used by the quantity guard.
const (
	CategoryCannedHam  = "canned_ham"
	CategoryCannedTuna = "canned_tuna"
	CategorySauce      = "sauce"
	CategoryBeverage   = "beverage"
	CategoryHMR        = "hmr"
	CategoryDefault    = "default"
)

// Household buckets inferred from the persona tag.
const (
	HouseholdSingle = "single"
	HouseholdSmall  = "small"
	HouseholdLarge  = "large"
)

var quantityCategories = []struct {
	name  string
	hints []string
}{
	{CategoryCannedHam, []string{"햄", "스팸", "리챔", "런천미트", "캔햄", "오믈레", "오믈렛"}},
	{CategoryCannedTuna, []string{"참치", "참치캔", "동원참치", "가다랑어"}},
	{CategorySauce, []string{"소스", "양념", "드레싱"}},
	{CategoryBeverage, []string{"우유", "요거트", "라떼", "커피", "주스", "음료", "생수", "차"}},
	{CategoryHMR, []string{"햇반", "즉석밥", "hmr", "밀키트", "냉동", "간편식"}},
}

type monthlyRange struct {
	low, high int
}

// typicalMonthlyRange has single and small household rows; large households
// are derived from the small row.
var typicalMonthlyRange = map[string]map[string]monthlyRange{
	CategoryCannedHam:  {HouseholdSingle: {1, 4}, HouseholdSmall: {2, 8}},
	CategoryCannedTuna: {HouseholdSingle: {2, 8}, HouseholdSmall: {4, 12}},
	CategorySauce:      {HouseholdSingle: {1, 3}, HouseholdSmall: {1, 5}},
	CategoryBeverage:   {HouseholdSingle: {2, 12}, HouseholdSmall: {6, 24}},
	CategoryHMR:        {HouseholdSingle: {2, 12}, HouseholdSmall: {6, 24}},
	CategoryDefault:    {HouseholdSingle: {1, 10}, HouseholdSmall: {2, 12}},
}

const largeHouseholdFactor = 1.5

// Adjustment directions.
const (
	QuantityCapped    = "cap"
	QuantityRaisedMin = "minimum"
)

// QuantityAdjustment describes a clamp the guard applied.
type QuantityAdjustment struct {
	Category  string
	Household string
	From      int
	To        int
	Direction string
}

// ProductCategory classifies a product hint for the quantity guard.
func ProductCategory(text string) string {
	t := strings.ToLower(text)
	for _, c := range quantityCategories {
		if containsAny(t, c.hints) {
			return c.name
		}
	}
	return CategoryDefault
}

// HouseholdBucket reads the household size marker from a persona tag.
// 3-4 person households are checked before 5+ so "3인" wins over "대가족".
func HouseholdBucket(tag string) string {
	switch {
	case containsAny(tag, []string{"3인", "4인"}):
		return HouseholdSmall
	case containsAny(tag, []string{"5인", "6인", "대가족"}):
		return HouseholdLarge
	case strings.Contains(tag, "2인"):
		return HouseholdSmall
	default:
		return HouseholdSingle
	}
}

// MonthlyRange returns the plausible monthly (low, high) unit range.
func MonthlyRange(category, household string) (int, int) {
	rows, ok := typicalMonthlyRange[category]
	if !ok {
		rows = typicalMonthlyRange[CategoryDefault]
	}
	if household == HouseholdLarge {
		r := rows[HouseholdSmall]
		return r.low, int(math.RoundToEven(float64(r.high) * largeHouseholdFactor))
	}
	r, ok := rows[household]
	if !ok {
		r = rows[HouseholdSingle]
	}
	return r.low, r.high
}

// ApplyQuantityGuard clamps the first "<N>개" in a generated reply into the
// plausible range and appends a note to the first line.
func ApplyQuantityGuard(productHint, personaTag, text string) string {
	out, _, _ := AdjustQuantity(productHint, personaTag, text)
	return out
}

// AdjustQuantity is ApplyQuantityGuard that also reports what changed.
func AdjustQuantity(productHint, personaTag, text string) (string, QuantityAdjustment, bool) {
	if text == "" {
		return text, QuantityAdjustment{}, false
	}
	loc := firstCountRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, QuantityAdjustment{}, false
	}
	n, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return text, QuantityAdjustment{}, false
	}

	adj := QuantityAdjustment{
		Category:  ProductCategory(productHint),
		Household: HouseholdBucket(personaTag),
		From:      n,
		To:        n,
	}
	low, high := MonthlyRange(adj.Category, adj.Household)

	var note string
	switch {
	case n > high:
		adj.To, adj.Direction = high, QuantityCapped
		note = fmt.Sprintf(" (일반 가정 기준, %d개로 잡아 설명 드렸어요)", high)
	case n < low:
		adj.To, adj.Direction = low, QuantityRaisedMin
		note = fmt.Sprintf(" (최소 사용량을 고려해 %d개로 안내했어요)", low)
	default:
		return text, adj, false
	}

	rewritten := text[:loc[0]] + strconv.Itoa(adj.To) + "개" + text[loc[1]:]
	lines := strings.Split(rewritten, "\n")
	lines[0] = strings.TrimRightFunc(lines[0], unicode.IsSpace) + note
	return strings.Join(lines, "\n"), adj, true
}
