// Package persona holds the simulated consumer profiles the chat talks as.
package persona

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// fallbackName is used when neither a name field nor a short tag token exists.
const fallbackName = "마케팅 도우미"

// Persona is a simulated consumer profile.
type Persona struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name,omitempty"`
	DisplayName     string     `json:"display_name,omitempty"`
	Nickname        string     `json:"nickname,omitempty"`
	PersonaName     string     `json:"persona_name,omitempty"`
	Segment         string     `json:"segment,omitempty"`
	AgeGroup        string     `json:"age_group,omitempty"`
	Gender          string     `json:"gender,omitempty"`
	Job             string     `json:"job,omitempty"`
	FamilyStructure string     `json:"family_structure,omitempty"`
	CustomerValue   string     `json:"customer_value,omitempty"`
	PurchasePattern StringList `json:"purchase_pattern,omitempty"`
	Lifestyle       StringList `json:"lifestyle,omitempty"`
	SummaryTag      string     `json:"persona_summary_tag"`
}

// ResolvedName picks the name the persona introduces itself with.
func (p *Persona) ResolvedName() string {
	if p == nil {
		return fallbackName
	}
	for _, candidate := range []string{p.Name, p.DisplayName, p.Nickname, p.PersonaName} {
		if candidate != "" {
			return candidate
		}
	}
	fields := strings.Fields(p.SummaryTag)
	if len(fields) > 0 && utf8.RuneCountInString(fields[0]) <= 6 {
		return fields[0]
	}
	return fallbackName
}

// Tag returns the trimmed summary tag.
func (p *Persona) Tag() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.SummaryTag)
}

// Traits parses the numeric trait scores embedded in the summary tag.
func (p *Persona) Traits() Traits {
	if p == nil {
		return ParseTraits("")
	}
	return ParseTraits(p.SummaryTag)
}

// defaultTraitScore applies to any trait the tag does not carry.
const defaultTraitScore = 0.5

// Traits are 0..1 scores describing shopping behaviour.
type Traits struct {
	BrandLoyalty       float64
	CookingConvenience float64
	HealthOrientation  float64
	HMRPreference      float64
	PremiumOrientation float64
	PriceSensitivity   float64
	VarietySeeking     float64
}

// ParseTraits scans "key: 0.7" pairs out of free text. Missing or malformed
// values fall back to 0.5.
func ParseTraits(tag string) Traits {
	return Traits{
		BrandLoyalty:       traitValue(tag, "brand_loyalty"),
		CookingConvenience: traitValue(tag, "cooking_convenience"),
		HealthOrientation:  traitValue(tag, "health_orientation"),
		HMRPreference:      traitValue(tag, "hmr_preference"),
		PremiumOrientation: traitValue(tag, "premium_orientation"),
		PriceSensitivity:   traitValue(tag, "price_sensitivity"),
		VarietySeeking:     traitValue(tag, "variety_seeking"),
	}
}

func traitValue(src, key string) float64 {
	kpos := strings.Index(src, key)
	if kpos < 0 {
		return defaultTraitScore
	}
	rest := src[kpos+len(key):]
	cpos := strings.IndexByte(rest, ':')
	if cpos < 0 {
		return defaultTraitScore
	}
	rest = strings.TrimLeft(rest[cpos+1:], " \t\r\n\f\v")
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return defaultTraitScore
	}
	return v
}

// StringList accepts either a JSON array or a comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*l = splitList(joined)
	return nil
}

func splitList(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
