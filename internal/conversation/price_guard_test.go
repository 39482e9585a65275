package conversation

import (
	"strings"
	"testing"
)

func TestApplyPriceGuard_OverridesImplausiblePrice(t *testing.T) {
	got := ApplyPriceGuard("현재 대상: 초코우유 250ml, 가격 15,000원 가정.", "이 가격이면 몇 개 살래?")
	if !got.Override {
		t.Fatalf("expected override, got %#v", got)
	}
	if got.Category != PriceCategoryDairyBeverage || got.Price != 15000 {
		t.Fatalf("unexpected decision %#v", got)
	}
	if !strings.HasPrefix(got.Text, "예상 구매수량은 0개, 기간은 1개월입니다.") {
		t.Fatalf("unexpected override text %q", got.Text)
	}
	if !strings.Contains(got.Text, "가격(15,000원)") {
		t.Fatalf("override text should quote the price, got %q", got.Text)
	}
	if !strings.Contains(got.Text, "권장: 현재 대상: 초코우유 250ml") {
		t.Fatalf("override text should label the product, got %q", got.Text)
	}
}

func TestApplyPriceGuard_UsesUtteranceWithoutSnapshot(t *testing.T) {
	got := ApplyPriceGuard("", "과자 20000원이면 살래?")
	if !got.Override || got.Category != PriceCategorySnack {
		t.Fatalf("expected snack override, got %#v", got)
	}
	if !strings.Contains(got.Text, "권장: 과자 20000원이면 살래?의") {
		t.Fatalf("expected utterance label, got %q", got.Text)
	}
}

func TestApplyPriceGuard_TakesHighestPrice(t *testing.T) {
	got := ApplyPriceGuard("참치캔 3,000원", "묶음은 60,000원이면?")
	if !got.Override || got.Price != 60000 || got.Category != PriceCategoryShelfStable {
		t.Fatalf("expected shelf stable override at 60000, got %#v", got)
	}
}

func TestApplyPriceGuard_PassesPlausiblePrices(t *testing.T) {
	cases := []struct {
		snapshot  string
		utterance string
	}{
		{"", "참치캔 3,000원이면 몇 개 살래?"},
		{"", "우유 몇 개 살래?"},
		{"", "연필 90,000원이면 살래?"},
	}
	for _, tc := range cases {
		if got := ApplyPriceGuard(tc.snapshot, tc.utterance); got.Override {
			t.Errorf("ApplyPriceGuard(%q, %q) overrode unexpectedly: %#v", tc.snapshot, tc.utterance, got)
		}
	}
	if got := ApplyPriceGuard("", "연필 150,000원이면 살래?"); !got.Override || got.Category != PriceCategoryOther {
		t.Fatalf("expected other category override, got %#v", got)
	}
}

func TestApplyPriceGuard_CeilingBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		utterance string
		override  bool
		category  string
	}{
		{"dairy over ceiling", "우유 12,000원이면 살래?", true, PriceCategoryDairyBeverage},
		{"dairy under ceiling", "우유 9,000원이면 살래?", false, PriceCategoryDairyBeverage},
		{"dairy at ceiling", "우유 10,000원이면 살래?", false, PriceCategoryDairyBeverage},
		{"dairy one won over", "우유 10,001원이면 살래?", true, PriceCategoryDairyBeverage},
		{"snack at ceiling", "과자 15000원이면 살래?", false, PriceCategorySnack},
		{"snack one won over", "과자 15001원이면 살래?", true, PriceCategorySnack},
		{"shelf stable at ceiling", "참치 50000원이면 살래?", false, PriceCategoryShelfStable},
		{"shelf stable one won over", "참치 50001원이면 살래?", true, PriceCategoryShelfStable},
		{"other at ceiling", "연필 100000원이면 살래?", false, PriceCategoryOther},
		{"other one won over", "연필 100001원이면 살래?", true, PriceCategoryOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyPriceGuard("", tc.utterance)
			if got.Override != tc.override || got.Category != tc.category {
				t.Fatalf("ApplyPriceGuard(%q) = %#v, want override=%v category=%s", tc.utterance, got, tc.override, tc.category)
			}
		})
	}
}
