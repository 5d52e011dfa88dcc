package interview

import "strings"

// Job types recognised by ClassifyJobType.
const (
	JobWater   = "water"
	JobSewage  = "sewage"
	JobFire    = "fire"
	JobMould   = "mould"
	JobStorm   = "storm"
	JobGeneral = "general"
)

// Rules are checked in order; the first rule with a matching keyword wins,
// so more specific categories come first.
var jobTypeRules = []struct {
	jobType  string
	keywords []string
}{
	{JobSewage, []string{"sewage", "black water", "blackwater", "toilet overflow", "category 3"}},
	{JobMould, []string{"mould", "mold", "fungal", "mildew", "spores"}},
	{JobFire, []string{"fire", "smoke", "soot", "burn"}},
	{JobStorm, []string{"storm", "hail", "cyclone", "wind damage", "roof leak", "flood"}},
	{JobWater, []string{"water", "leak", "burst", "pipe", "moisture", "overflow", "flooding", "drying"}},
}

// ClassifyJobType infers a job type from free text such as a cause of loss
// or report title. It returns JobGeneral when nothing matches.
func ClassifyJobType(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range jobTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.jobType
			}
		}
	}
	return JobGeneral
}

// Default grades per job type, used when a session is started without one.
var defaultGrades = map[string]int{
	JobSewage:  3,
	JobMould:   2,
	JobFire:    2,
	JobStorm:   1,
	JobWater:   1,
	JobGeneral: 0,
}

// DefaultGrade returns the starting grade for a job type.
func DefaultGrade(jobType string) int {
	return defaultGrades[jobType]
}
