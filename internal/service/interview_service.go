package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/interview"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
)

// StartInterviewInput opens a session, optionally bound to a report.
type StartInterviewInput struct {
	ReportID *string `json:"reportId"`
	JobType  string  `json:"jobType"`
	Grade    *int    `json:"grade"`
}

// InterviewView is a session with the questions the caller can answer next.
type InterviewView struct {
	Session   *domain.InterviewSession `json:"session"`
	Questions []interview.Question     `json:"questions"`
}

// InterviewService runs guided question sessions and applies their answers
// to reports.
type InterviewService struct {
	sessions domain.InterviewSessionRepository
	reports  domain.ReportRepository
	users    domain.UserRepository
	billing  *BillingService
	audit    *audit.Logger
	bank     []interview.Question
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewInterviewService creates an interview service over the built-in bank.
func NewInterviewService(
	sessions domain.InterviewSessionRepository,
	reports domain.ReportRepository,
	users domain.UserRepository,
	billing *BillingService,
	auditLog *audit.Logger,
	ttl time.Duration,
	logger *slog.Logger,
) *InterviewService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InterviewService{
		sessions: sessions,
		reports:  reports,
		users:    users,
		billing:  billing,
		audit:    auditLog,
		bank:     interview.Bank,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Questions filters the bank for qc and the caller's subscription tier.
// It has no side effects.
func (s *InterviewService) Questions(ctx context.Context, userID string, qc interview.Context) ([]interview.Question, error) {
	tier, err := s.tier(ctx, userID)
	if err != nil {
		return nil, err
	}
	qc.JobType = strings.ToLower(strings.TrimSpace(qc.JobType))
	return interview.Visible(s.bank, qc, tier), nil
}

// Start opens a session. A missing job type is classified from the bound
// report; a missing grade defaults from the job type.
func (s *InterviewService) Start(ctx context.Context, ownerID string, in StartInterviewInput) (*InterviewView, error) {
	jobType := strings.ToLower(strings.TrimSpace(in.JobType))
	if in.ReportID != nil {
		r, err := s.reports.Get(ctx, ownerID, *in.ReportID)
		if err != nil {
			return nil, err
		}
		if jobType == "" {
			jobType = r.JobType
		}
		if jobType == "" {
			jobType = interview.ClassifyJobType(r.CauseOfLoss + " " + r.Title)
		}
	}
	if jobType == "" {
		jobType = interview.JobGeneral
	}
	grade := interview.DefaultGrade(jobType)
	if in.Grade != nil {
		if *in.Grade < 0 || *in.Grade > 3 {
			return nil, domain.Invalid("grade", "must be between 0 and 3")
		}
		grade = *in.Grade
	}

	now := s.now().UTC()
	sess := &domain.InterviewSession{
		ID:            uuid.NewString(),
		UserID:        ownerID,
		ReportID:      in.ReportID,
		JobType:       jobType,
		Grade:         grade,
		Answers:       map[string]string{},
		AutoPopulated: map[string]string{},
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("interview started",
		slog.String("session_id", sess.ID),
		slog.String("job_type", jobType),
		slog.Int("grade", grade),
	)
	return s.view(ctx, sess)
}

// Get returns a session and its currently visible questions.
func (s *InterviewService) Get(ctx context.Context, ownerID, id string) (*InterviewView, error) {
	sess, err := s.sessions.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Answer records one answer. The question must be visible to the caller.
func (s *InterviewService) Answer(ctx context.Context, ownerID, id, questionID, answer string) (*InterviewView, error) {
	sess, err := s.sessions.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if sess.Applied {
		return nil, domain.Invalid("session", "has already been applied")
	}
	tier, err := s.tier(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := interview.RecordAnswer(s.bank, sess, tier, questionID, answer); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Apply merges the session's auto-populated fields into its report. It
// spends one quick-fill credit unless the owner is unlimited.
func (s *InterviewService) Apply(ctx context.Context, ownerID, id string, reportID *string) (*domain.Report, error) {
	sess, err := s.sessions.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if sess.Applied {
		return nil, domain.Invalid("session", "has already been applied")
	}
	target := sess.ReportID
	if reportID != nil {
		target = reportID
	}
	if target == nil {
		return nil, domain.Invalid("reportId", "is required")
	}
	if len(sess.AutoPopulated) == 0 {
		return nil, domain.Invalid("answers", "no answers map to report fields")
	}

	user, err := s.billing.Check(ctx, ownerID, domain.FeatureQuickFill)
	if err != nil {
		return nil, err
	}
	before, err := s.reports.Get(ctx, ownerID, *target)
	if err != nil {
		return nil, err
	}
	after := *before
	if err := interview.ApplyToReport(&after, sess.AutoPopulated); err != nil {
		return nil, err
	}
	if err := s.reports.Update(ctx, &after); err != nil {
		return nil, err
	}
	if err := s.billing.Consume(ctx, user, domain.FeatureQuickFill); err != nil {
		s.logger.Error("failed to charge quick-fill credit",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}

	sess.Applied = true
	sess.ReportID = target
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Warn("failed to mark interview applied",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.audit.Record(ctx, ownerID, "interview_apply", "report", after.ID, before, &after)
	return &after, nil
}

func (s *InterviewService) view(ctx context.Context, sess *domain.InterviewSession) (*InterviewView, error) {
	tier, err := s.tier(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	qs := interview.Visible(s.bank, interview.Context{
		JobType: sess.JobType,
		Grade:   sess.Grade,
		Answers: sess.Answers,
	}, tier)
	pending := []interview.Question{}
	for _, q := range qs {
		if _, done := sess.Answers[q.ID]; !done {
			pending = append(pending, q)
		}
	}
	return &InterviewView{Session: sess, Questions: pending}, nil
}

func (s *InterviewService) tier(ctx context.Context, userID string) (domain.SubscriptionTier, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.SubscriptionTier, nil
}
