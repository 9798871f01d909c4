package datasetiq

import (
	"fmt"
	"strings"
)

// Premium feature names, used in upgrade prompts.
const (
	FeatureFormulaBuilder = "Formula Builder Wizard"
	FeatureRichMetadata   = "Full Metadata Panel"
	FeatureMultiInsert    = "Multi-Series Insert"
	FeatureTemplates      = "Templates Import/Export"
)

// paidPlans are the plan names that unlock premium features.
var paidPlans = []string{"premium", "pro", "enterprise"}

// IsPaidPlan reports whether the named plan unlocks premium features.
func IsPaidPlan(plan string) bool {
	for _, p := range paidPlans {
		if strings.EqualFold(plan, p) {
			return true
		}
	}
	return false
}

// UpgradeMessage is the prompt shown when a free-tier user reaches for a
// premium feature.
func UpgradeMessage(feature string) string {
	return fmt.Sprintf("%s is a Premium feature. Upgrade at datasetiq.com/pricing to unlock.", feature)
}
