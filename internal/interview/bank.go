// Package interview holds the guided question bank and the pure filters
// that pick which questions a caller sees.
package interview

import "github.com/CleanExpo/RestoreAssist-sub011/internal/domain"

// Report fields a question answer can populate.
const (
	FieldCauseOfLoss     = "causeOfLoss"
	FieldWaterCategory   = "waterCategory"
	FieldWaterClass      = "waterClass"
	FieldAffectedArea    = "affectedAreaM2"
	FieldPropertyAddress = "propertyAddress"
	FieldJobType         = "jobType"
)

// Dependency makes a question visible only after another question got a
// specific answer.
type Dependency struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// Question is one entry of the static bank. Tier 1 is the highest priority.
type Question struct {
	ID              string                  `json:"id"`
	Text            string                  `json:"text"`
	Tier            int                     `json:"tier"`
	MinSubscription domain.SubscriptionTier `json:"minSubscription"`
	JobTypes        []string                `json:"jobTypes,omitempty"`
	Field           string                  `json:"field,omitempty"`
	Options         []string                `json:"options,omitempty"`
	DependsOn       *Dependency             `json:"dependsOn,omitempty"`
}

// Bank is the built-in question library.
var Bank = []Question{
	{ID: "property_address", Text: "What is the property address?", Tier: 1, MinSubscription: domain.TierFree, Field: FieldPropertyAddress},
	{ID: "loss_cause", Text: "What caused the loss?", Tier: 1, MinSubscription: domain.TierFree, Field: FieldCauseOfLoss},
	{ID: "water_source", Text: "Where did the water come from?", Tier: 1, MinSubscription: domain.TierFree, JobTypes: []string{"water", "sewage"},
		Options: []string{"clean", "grey", "black"}},
	{ID: "water_category", Text: "Which IICRC S500 water category applies?", Tier: 2, MinSubscription: domain.TierBasic, JobTypes: []string{"water", "sewage"},
		Field: FieldWaterCategory, Options: []string{"1", "2", "3"}},
	{ID: "black_water_contents", Text: "Was sewage or other contaminated water present?", Tier: 2, MinSubscription: domain.TierBasic, JobTypes: []string{"water", "sewage"},
		Options: []string{"yes", "no"}, DependsOn: &Dependency{QuestionID: "water_source", Answer: "black"}},
	{ID: "affected_area", Text: "Approximately how many square metres are affected?", Tier: 2, MinSubscription: domain.TierBasic, Field: FieldAffectedArea},
	{ID: "water_class", Text: "Which evaporation class best describes the affected area?", Tier: 3, MinSubscription: domain.TierPro, JobTypes: []string{"water"},
		Field: FieldWaterClass, Options: []string{"1", "2", "3", "4"}},
	{ID: "standing_water_hours", Text: "How long was water standing before extraction began?", Tier: 3, MinSubscription: domain.TierPro, JobTypes: []string{"water", "sewage"}},
	{ID: "subfloor_access", Text: "Is there subfloor or cavity access for drying?", Tier: 4, MinSubscription: domain.TierEnterprise, JobTypes: []string{"water"}},
	{ID: "fire_origin", Text: "Where did the fire start?", Tier: 1, MinSubscription: domain.TierFree, JobTypes: []string{"fire"}},
	{ID: "smoke_type", Text: "What type of smoke residue is present?", Tier: 2, MinSubscription: domain.TierBasic, JobTypes: []string{"fire"},
		Options: []string{"dry", "wet", "protein", "fuel oil"}},
	{ID: "soot_hvac", Text: "Has soot entered the HVAC system?", Tier: 3, MinSubscription: domain.TierPro, JobTypes: []string{"fire"},
		Options: []string{"yes", "no"}},
	{ID: "hvac_cleaning_scope", Text: "Which HVAC components need cleaning?", Tier: 4, MinSubscription: domain.TierEnterprise, JobTypes: []string{"fire"},
		DependsOn: &Dependency{QuestionID: "soot_hvac", Answer: "yes"}},
	{ID: "mould_visible", Text: "Is mould growth visible?", Tier: 1, MinSubscription: domain.TierFree, JobTypes: []string{"mould"},
		Options: []string{"yes", "no"}},
	{ID: "mould_extent", Text: "How large is the visible growth?", Tier: 2, MinSubscription: domain.TierBasic, JobTypes: []string{"mould"},
		DependsOn: &Dependency{QuestionID: "mould_visible", Answer: "yes"}},
	{ID: "mould_condition", Text: "Which IICRC S520 condition applies?", Tier: 3, MinSubscription: domain.TierPro, JobTypes: []string{"mould"},
		Options: []string{"1", "2", "3"}},
	{ID: "air_sampling", Text: "Is post-remediation air sampling required?", Tier: 4, MinSubscription: domain.TierEnterprise, JobTypes: []string{"mould"},
		Options: []string{"yes", "no"}},
	{ID: "storm_roof", Text: "Is the roof membrane breached?", Tier: 1, MinSubscription: domain.TierFree, JobTypes: []string{"storm"},
		Options: []string{"yes", "no"}},
	{ID: "occupant_health", Text: "Are any occupants immunocompromised or vulnerable?", Tier: 3, MinSubscription: domain.TierPro},
}

// Lookup finds a question by id in bank.
func Lookup(bank []Question, id string) (Question, bool) {
	for _, q := range bank {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
