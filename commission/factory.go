/*
factory.go - JSON plan presets

These functions build JSON plan definitions for the commission domain. They
construct JSON strings directly to avoid import cycles with the factory
package, which turns them back into Plans.

USAGE:
  jsonStr := commission.Plan2025AffiliateJSON()
  plan, err := factory.NewPlanFactory().ParsePlan(jsonStr)
*/
package commission

import (
	"encoding/json"
)

// Plan2025AffiliateJSON returns the canonical plan as JSON.
func Plan2025AffiliateJSON() string {
	pj := plan2025JSON(PlanIDTiered2025Affiliate, "Tiered 2025 with affiliate override", 3)
	rules := pj["deal_rules"].(map[string]interface{})
	rules["type"] = RulesTiered2025Affiliate
	rules["affiliate_large_eq_base"] = 900
	return marshalPreset(pj)
}

// Plan2025JSON returns the previous plan revision as JSON.
func Plan2025JSON() string {
	return marshalPreset(plan2025JSON(PlanIDTiered2025, "Tiered 2025", 2))
}

// PresetJSON returns the JSON of a built-in plan by ID.
func PresetJSON(id string) (string, bool) {
	switch id {
	case PlanIDTiered2025Affiliate:
		return Plan2025AffiliateJSON(), true
	case PlanIDTiered2025:
		return Plan2025JSON(), true
	default:
		return "", false
	}
}

// PresetIDs lists the built-in plan IDs, canonical first.
func PresetIDs() []string {
	return []string{PlanIDTiered2025Affiliate, PlanIDTiered2025}
}

func plan2025JSON(id, name string, version int) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"name":     name,
		"version":  version,
		"currency": "ILS",
		"deal_rules": map[string]interface{}{
			"type":                    RulesTiered2025,
			"eq_minimum_deposit":      2950,
			"large_deposit_threshold": 10000,
			"large_deposit_base":      700,
			"source_base": map[string]interface{}{
				"RFF": 700,
				"PPC": 700,
				"ORG": 400,
				"AFF": 400,
			},
			"large_eq_bonus": 500,
		},
		"monthly": map[string]interface{}{
			"general": tiersJSON(100, 2000, 90, 1000),
			"cfd":     tiersJSON(100, 1000, 90, 500),
			"accelerator": map[string]interface{}{
				"min_percent": 70,
				"payout":      2000,
				"valid_until": "2025-09-30",
			},
		},
		"quarterly": map[string]interface{}{
			"general":   tiersJSON(100, 6000, 90, 3000),
			"cfd":       tiersJSON(100, 3000, 90, 1500),
			"starts_on": "2025-07-01",
		},
		"kpi": map[string]interface{}{
			"flag_bonus":     600,
			"excellence_max": 1600,
		},
		"rest_days": []string{"friday", "saturday"},
		"time_zone": "UTC",
	}
}

func tiersJSON(pairs ...int) []map[string]interface{} {
	var out []map[string]interface{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]interface{}{"min_percent": pairs[i], "payout": pairs[i+1]})
	}
	return out
}

func marshalPreset(pj map[string]interface{}) string {
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
