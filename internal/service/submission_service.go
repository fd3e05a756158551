package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

// minAnalysisResponses is the floor below which AI analysis is never
// scheduled; smaller samples produce summaries not worth storing.
const minAnalysisResponses = 10

type submissionSurveyStore interface {
	GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error)
}

type submissionResponseStore interface {
	CountBySurvey(ctx context.Context, surveyID string) (int, error)
	ExistsByEmail(ctx context.Context, surveyID string, email string) (bool, error)
	CreateSubmission(ctx context.Context, response *models.Response, answers []models.Answer, maxResponse *int) (int, bool, error)
}

type submissionUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type statisticsRefresher interface {
	Recompute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error)
	Invalidate(ctx context.Context, surveyID string)
}

type statisticsBroadcaster interface {
	PublishStatistics(surveyID string, stats *models.SurveyStatistics)
}

// Notifier announces lifecycle transitions. Implemented by the Slack
// notifier; nil-safe wrappers in the services keep it optional.
type Notifier interface {
	NotifyOpened(ctx context.Context, notice models.SurveyNotice, channels []string, customMessage string) error
	NotifyClosingSoon(ctx context.Context, notice models.SurveyNotice) error
	NotifyClosed(ctx context.Context, notice models.SurveyNotice) error
	NotifyClosedToOwner(ctx context.Context, notice models.SurveyNotice) error
}

// AnalysisScheduler queues a survey for AI analysis.
type AnalysisScheduler interface {
	Schedule(surveyID string)
}

type submissionMetrics interface {
	RecordSubmissionAdmitted(surveyID string)
	RecordSubmissionRejected(reason string)
}

// SubmitRequest is one inbound submission. UserID, IPAddress and
// UserAgent are filled by the handler, never from the payload.
type SubmitRequest struct {
	Email     *string                  `json:"email,omitempty"`
	Answers   []models.SubmittedAnswer `json:"answers" binding:"required"`
	UserID    *string                  `json:"-"`
	IPAddress *string                  `json:"-"`
	UserAgent *string                  `json:"-"`
}

// SubmitResult is returned to the respondent after admission.
type SubmitResult struct {
	ResponseID     string `json:"response_id"`
	ResponseLetter string `json:"response_letter,omitempty"`
	SurveyClosed   bool   `json:"survey_closed"`
}

// SubmissionService is the admission gate for responses. Checks run in a
// fixed order (open, capacity, email, duplicate, answer validation) and
// the first failure wins; side effects after commit are best effort and
// never fail an admitted submission.
type SubmissionService struct {
	surveys   submissionSurveyStore
	responses submissionResponseStore
	users     submissionUserStore
	stats     statisticsRefresher
	hub       statisticsBroadcaster
	notifier  Notifier
	analysis  AnalysisScheduler
	metrics   submissionMetrics
	logger    *zap.Logger
}

// NewSubmissionService wires the admission pipeline. hub, notifier,
// analysis and metrics may be nil.
func NewSubmissionService(
	surveys submissionSurveyStore,
	responses submissionResponseStore,
	users submissionUserStore,
	stats statisticsRefresher,
	hub statisticsBroadcaster,
	notifier Notifier,
	analysis AnalysisScheduler,
	metrics submissionMetrics,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		surveys:   surveys,
		responses: responses,
		users:     users,
		stats:     stats,
		hub:       hub,
		notifier:  notifier,
		analysis:  analysis,
		metrics:   metrics,
		logger:    logger,
	}
}

// PublicSurvey returns the respondent-facing view of a published
// survey. Anything not published reads as not found, which keeps
// pending and closed surveys unguessable.
func (s *SubmissionService) PublicSurvey(ctx context.Context, surveyID string) (*models.SurveyDetail, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, appErrors.ErrSurveyNotOpen
	}
	if detail.Status != models.SurveyStatusPublished {
		return nil, appErrors.ErrSurveyNotOpen
	}

	// Scrub owner-only fields before the payload leaves the API.
	detail.AIAnalysis = nil
	detail.UserID = nil
	if detail.Settings != nil {
		detail.Settings.ResponseLetter = ""
	}
	return detail, nil
}

// Submit runs the full admission pipeline for one response.
func (s *SubmissionService) Submit(ctx context.Context, surveyID string, req SubmitRequest) (*SubmitResult, error) {
	result, err := s.submit(ctx, surveyID, req)
	if s.metrics != nil {
		if err != nil {
			s.metrics.RecordSubmissionRejected(appErrors.FromError(err).Code)
		} else {
			s.metrics.RecordSubmissionAdmitted(surveyID)
		}
	}
	return result, err
}

func (s *SubmissionService) submit(ctx context.Context, surveyID string, req SubmitRequest) (*SubmitResult, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, appErrors.ErrSurveyNotOpen
	}
	if detail.Status != models.SurveyStatusPublished {
		return nil, appErrors.ErrSurveyNotOpen
	}

	settings := detail.Settings
	if settings == nil {
		settings = &models.SurveySettings{}
	}

	if settings.MaxResponse != nil {
		count, err := s.responses.CountBySurvey(ctx, surveyID)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		if count >= *settings.MaxResponse {
			return nil, appErrors.ErrResponseLimit
		}
	}

	email := ""
	if req.Email != nil {
		email = *req.Email
	}
	if settings.RequireEmail && email == "" {
		return nil, appErrors.ErrEmailRequired
	}

	if email != "" && !settings.AllowMultipleResponses {
		exists, err := s.responses.ExistsByEmail(ctx, surveyID, email)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		if exists {
			return nil, appErrors.ErrDuplicateResponse
		}
	}

	if rejections := ValidateAnswers(detail.Questions, req.Answers); len(rejections) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, rejections)
	}

	response := &models.Response{
		SurveyID:  surveyID,
		UserID:    req.UserID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}
	if email != "" {
		response.UserEmail = &email
	}
	answers := BuildAnswers(detail.Questions, req.Answers)

	count, closed, err := s.responses.CreateSubmission(ctx, response, answers, settings.MaxResponse)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.afterAdmission(detail, count, closed)

	return &SubmitResult{
		ResponseID:     response.ID,
		ResponseLetter: settings.ResponseLetter,
		SurveyClosed:   closed,
	}, nil
}

// afterAdmission runs post-commit side effects on a detached context:
// the submission is already durable, so a cancelled request must not
// abort the broadcast or the close notifications.
func (s *SubmissionService) afterAdmission(detail *models.SurveyDetail, count int, closed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if s.stats != nil {
		stats, err := s.stats.Recompute(ctx, detail.ID)
		if err != nil {
			s.logger.Warn("statistics refresh after submission failed",
				zap.String("survey_id", detail.ID), zap.Error(err))
		} else if s.hub != nil {
			s.hub.PublishStatistics(detail.ID, stats)
		}
	}

	if !closed {
		return
	}

	notice := s.buildNotice(ctx, detail, count)
	if s.notifier != nil {
		if err := s.notifier.NotifyClosed(ctx, notice); err != nil {
			s.logger.Warn("close notification failed", zap.String("survey_id", detail.ID), zap.Error(err))
		}
		if err := s.notifier.NotifyClosedToOwner(ctx, notice); err != nil {
			s.logger.Warn("owner close notification failed", zap.String("survey_id", detail.ID), zap.Error(err))
		}
	}

	if s.analysis != nil && count >= minAnalysisResponses {
		s.analysis.Schedule(detail.ID)
	}
}

func (s *SubmissionService) buildNotice(ctx context.Context, detail *models.SurveyDetail, count int) models.SurveyNotice {
	notice := models.SurveyNotice{
		SurveyID:      detail.ID,
		Title:         detail.Title,
		Description:   detail.Description,
		PublishedAt:   detail.PublishedAt,
		ResponseCount: count,
	}
	if detail.Settings != nil {
		notice.CloseAt = detail.Settings.CloseTime
		notice.MaxResponse = detail.Settings.MaxResponse
	}
	if detail.UserID != nil && s.users != nil {
		if owner, err := s.users.FindByID(ctx, *detail.UserID); err == nil {
			notice.CreatorEmail = owner.Email
		}
	}
	return notice
}
