package interview

import (
	"sort"
	"strconv"
	"strings"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// Context is the input to GenerateQuestions.
type Context struct {
	JobType string            `json:"jobType"`
	Grade   int               `json:"grade"`
	Answers map[string]string `json:"answers,omitempty"`
}

// MaxTierForGrade returns the deepest tier shown for a grade: 1..min(4, grade+1).
func MaxTierForGrade(grade int) int {
	if grade < 0 {
		grade = 0
	}
	return min(4, grade+1)
}

// MaxTierForSubscription returns the deepest tier a subscription can see.
func MaxTierForSubscription(tier domain.SubscriptionTier) int {
	return tier.Rank()
}

func matchesJobType(q Question, jobType string) bool {
	if len(q.JobTypes) == 0 {
		return true
	}
	for _, jt := range q.JobTypes {
		if strings.EqualFold(jt, jobType) {
			return true
		}
	}
	return false
}

func dependencySatisfied(q Question, answers map[string]string) bool {
	if q.DependsOn == nil {
		return true
	}
	got, ok := answers[q.DependsOn.QuestionID]
	return ok && strings.EqualFold(strings.TrimSpace(got), q.DependsOn.Answer)
}

// GenerateQuestions selects questions for the job type whose dependencies
// are satisfied, keeping tiers up to the grade's limit. The result is ordered
// by tier, then bank order.
func GenerateQuestions(bank []Question, ctx Context) []Question {
	maxTier := MaxTierForGrade(ctx.Grade)
	out := []Question{}
	for _, q := range bank {
		if q.Tier < 1 || q.Tier > maxTier {
			continue
		}
		if !matchesJobType(q, ctx.JobType) || !dependencySatisfied(q, ctx.Answers) {
			continue
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// ByTier buckets questions by tier.
func ByTier(questions []Question) map[int][]Question {
	buckets := make(map[int][]Question)
	for _, q := range questions {
		buckets[q.Tier] = append(buckets[q.Tier], q)
	}
	return buckets
}

// FilterBySubscription keeps the questions the subscription tier may see.
func FilterBySubscription(questions []Question, tier domain.SubscriptionTier) []Question {
	maxTier := MaxTierForSubscription(tier)
	out := []Question{}
	for _, q := range questions {
		if q.Tier <= maxTier && q.MinSubscription.Rank() <= tier.Rank() {
			out = append(out, q)
		}
	}
	return out
}

// Visible combines GenerateQuestions and FilterBySubscription.
func Visible(bank []Question, ctx Context, tier domain.SubscriptionTier) []Question {
	return FilterBySubscription(GenerateQuestions(bank, ctx), tier)
}

// RecordAnswer stores answer on the session after checking that the question
// is currently visible to the caller. Answers to questions with a Field are
// also copied into AutoPopulated.
func RecordAnswer(bank []Question, s *domain.InterviewSession, tier domain.SubscriptionTier, questionID, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return domain.Invalid("answer", "is required")
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if s.AutoPopulated == nil {
		s.AutoPopulated = map[string]string{}
	}

	visible := Visible(bank, Context{JobType: s.JobType, Grade: s.Grade, Answers: s.Answers}, tier)
	var q *Question
	for i := range visible {
		if visible[i].ID == questionID {
			q = &visible[i]
			break
		}
	}
	if q == nil {
		return domain.Invalid("questionId", "is not available for this session")
	}
	if len(q.Options) > 0 && !containsFold(q.Options, answer) {
		return domain.Invalid("answer", "must be one of "+strings.Join(q.Options, ", "))
	}

	s.Answers[q.ID] = answer
	if q.Field != "" {
		s.AutoPopulated[q.Field] = answer
	}
	if q.Tier > s.TierReached {
		s.TierReached = q.Tier
	}
	return nil
}

func containsFold(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}

// ApplyToReport merges auto-populated values into r. Only non-empty values
// overwrite existing fields.
func ApplyToReport(r *domain.Report, values map[string]string) error {
	for field, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		switch field {
		case FieldCauseOfLoss:
			r.CauseOfLoss = raw
		case FieldPropertyAddress:
			r.PropertyAddress = raw
		case FieldJobType:
			r.JobType = strings.ToLower(raw)
		case FieldWaterCategory:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return domain.Invalid(field, "must be a whole number")
			}
			r.WaterCategory = n
		case FieldWaterClass:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return domain.Invalid(field, "must be a whole number")
			}
			r.WaterClass = n
		case FieldAffectedArea:
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(raw), "m2"), 64)
			if err != nil {
				return domain.Invalid(field, "must be a number")
			}
			r.AffectedAreaM2 = f
		}
	}
	return r.Validate()
}
