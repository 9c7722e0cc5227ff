// Package profile normalizes raw organizational context parameters into a
// canonical weighted context profile. Normalization is a pure function:
// unknown or missing values never block the pipeline, they fall into the
// unspecified bucket with weight 0.
package profile

import (
	"fmt"
	"strings"

	"github.com/strategraph/backend/pkg/common"
)

// Unspecified is the category a dimension receives when its raw value is
// missing or not part of the dimension's vocabulary. Unspecified dimensions
// carry weight 0 and have no influence on relevance scoring.
const Unspecified = "unspecified"

// categories is the enumerated vocabulary per context dimension. Raw values
// are matched case-insensitively after trimming.
var categories = map[string][]string{
	"company_size":       {"startup", "small", "medium", "large", "enterprise"},
	"company_maturity":   {"emerging", "growth", "mature", "declining"},
	"industry":           {"manufacturing", "services", "technology", "finance", "healthcare", "retail", "energy", "public"},
	"management_role":    {"executive", "middle", "operational"},
	"challenge_type":     {"growth", "efficiency", "innovation", "transformation", "risk", "restructuring"},
	"timeframe":          {"short_term", "medium_term", "long_term"},
	"complexity":         {"low", "medium", "high"},
	"market_volatility":  {"low", "medium", "high"},
	"tech_intensity":     {"low", "medium", "high"},
	"regulatory_density": {"low", "medium", "high"},
	"global_orientation": {"local", "regional", "global"},
}

// Normalize maps raw context parameters onto a complete ContextProfile.
// Every dimension is always populated: a recognized value gets its canonical
// category with weight 1, anything else becomes unspecified with weight 0.
func Normalize(raw map[string]string) common.ContextProfile {
	return common.ContextProfile{
		CompanySize:       normalizeDimension("company_size", raw),
		CompanyMaturity:   normalizeDimension("company_maturity", raw),
		Industry:          normalizeDimension("industry", raw),
		ManagementRole:    normalizeDimension("management_role", raw),
		ChallengeType:     normalizeDimension("challenge_type", raw),
		Timeframe:         normalizeDimension("timeframe", raw),
		Complexity:        normalizeDimension("complexity", raw),
		MarketVolatility:  normalizeDimension("market_volatility", raw),
		TechIntensity:     normalizeDimension("tech_intensity", raw),
		RegulatoryDensity: normalizeDimension("regulatory_density", raw),
		GlobalOrientation: normalizeDimension("global_orientation", raw),
	}
}

func normalizeDimension(name string, raw map[string]string) common.Dimension {
	value, ok := raw[name]
	if !ok {
		return common.Dimension{Category: Unspecified, Weight: 0}
	}

	canonical := canonicalize(value)
	for _, known := range categories[name] {
		if canonical == known {
			return common.Dimension{Category: known, Weight: 1}
		}
	}
	return common.Dimension{Category: Unspecified, Weight: 0}
}

func canonicalize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	return v
}

// PromptSummary renders the profile for inclusion in a generation request.
// Only dimensions with weight > 0 appear; an empty profile renders as a
// fixed placeholder so prompts stay well-formed.
func PromptSummary(p common.ContextProfile) string {
	var b strings.Builder
	for _, d := range p.Dimensions() {
		if d.Dimension.Weight <= 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Dimension.Category)
	}
	if b.Len() == 0 {
		return "- no organizational context provided\n"
	}
	return b.String()
}
