package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

type submissionSurveyStub struct {
	detail *models.SurveyDetail
	err    error
}

func (s *submissionSurveyStub) GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

type submissionResponseStub struct {
	count     int
	countErr  error
	exists    bool
	existsErr error

	createCount  int
	createClosed bool
	createErr    error

	created        *models.Response
	createdAnswers []models.Answer
	emailChecked   string
}

func (s *submissionResponseStub) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	return s.count, s.countErr
}

func (s *submissionResponseStub) ExistsByEmail(ctx context.Context, surveyID string, email string) (bool, error) {
	s.emailChecked = email
	return s.exists, s.existsErr
}

func (s *submissionResponseStub) CreateSubmission(ctx context.Context, response *models.Response, answers []models.Answer, maxResponse *int) (int, bool, error) {
	if s.createErr != nil {
		return 0, false, s.createErr
	}
	response.ID = "resp-1"
	s.created = response
	s.createdAnswers = answers
	return s.createCount, s.createClosed, nil
}

type submissionUserStub struct {
	user *models.User
	err  error
}

func (s *submissionUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type statsRefresherStub struct {
	stats        *models.SurveyStatistics
	recomputeErr error
	recomputed   []string
	invalidated  []string
}

func (s *statsRefresherStub) Recompute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error) {
	s.recomputed = append(s.recomputed, surveyID)
	if s.recomputeErr != nil {
		return nil, s.recomputeErr
	}
	return s.stats, nil
}

func (s *statsRefresherStub) Invalidate(ctx context.Context, surveyID string) {
	s.invalidated = append(s.invalidated, surveyID)
}

type broadcasterStub struct {
	published []string
}

func (s *broadcasterStub) PublishStatistics(surveyID string, stats *models.SurveyStatistics) {
	s.published = append(s.published, surveyID)
}

type notifierStub struct {
	opened       int
	closingSoon  int
	closed       int
	ownerClosed  int
	lastNotice   models.SurveyNotice
	lastChannels []string
	lastCustom   string
	err          error
}

func (s *notifierStub) NotifyOpened(ctx context.Context, notice models.SurveyNotice, channels []string, customMessage string) error {
	s.opened++
	s.lastNotice = notice
	s.lastChannels = channels
	s.lastCustom = customMessage
	return s.err
}

func (s *notifierStub) NotifyClosingSoon(ctx context.Context, notice models.SurveyNotice) error {
	s.closingSoon++
	s.lastNotice = notice
	return s.err
}

func (s *notifierStub) NotifyClosed(ctx context.Context, notice models.SurveyNotice) error {
	s.closed++
	s.lastNotice = notice
	return s.err
}

func (s *notifierStub) NotifyClosedToOwner(ctx context.Context, notice models.SurveyNotice) error {
	s.ownerClosed++
	s.lastNotice = notice
	return s.err
}

type schedulerStub struct {
	scheduled []string
}

func (s *schedulerStub) Schedule(surveyID string) {
	s.scheduled = append(s.scheduled, surveyID)
}

type submissionMetricsStub struct {
	admitted []string
	rejected []string
}

func (s *submissionMetricsStub) RecordSubmissionAdmitted(surveyID string) {
	s.admitted = append(s.admitted, surveyID)
}

func (s *submissionMetricsStub) RecordSubmissionRejected(reason string) {
	s.rejected = append(s.rejected, reason)
}

func publishedDetail() *models.SurveyDetail {
	ownerID := "owner-1"
	return &models.SurveyDetail{
		Survey: models.Survey{
			ID:     "s1",
			Title:  "Coffee habits",
			Status: models.SurveyStatusPublished,
			UserID: &ownerID,
		},
		Settings: &models.SurveySettings{SurveyID: "s1"},
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionShortText, IsRequired: true},
		},
	}
}

func textAnswer(questionID, value string) []models.SubmittedAnswer {
	return []models.SubmittedAnswer{{QuestionID: questionID, Answer: value}}
}

func TestSubmitRejectsUnpublishedSurvey(t *testing.T) {
	detail := publishedDetail()
	detail.Status = models.SurveyStatusPending
	metrics := &submissionMetricsStub{}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, &submissionResponseStub{}, nil, nil, nil, nil, nil, metrics, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	require.ErrorIs(t, err, appErrors.ErrSurveyNotOpen)
	require.Len(t, metrics.rejected, 1)
	assert.Equal(t, appErrors.ErrSurveyNotOpen.Code, metrics.rejected[0])
}

func TestSubmitRejectsWhenCapReached(t *testing.T) {
	detail := publishedDetail()
	max := 5
	detail.Settings.MaxResponse = &max
	responses := &submissionResponseStub{count: 5}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	assert.ErrorIs(t, err, appErrors.ErrResponseLimit)
	assert.Nil(t, responses.created)
}

func TestSubmitRequiresEmail(t *testing.T) {
	detail := publishedDetail()
	detail.Settings.RequireEmail = true
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, &submissionResponseStub{}, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	assert.ErrorIs(t, err, appErrors.ErrEmailRequired)
}

func TestSubmitRejectsDuplicateEmail(t *testing.T) {
	detail := publishedDetail()
	responses := &submissionResponseStub{exists: true}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, nil, nil, nil, nil, nil, nil)

	email := "dup@example.com"
	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Email: &email, Answers: textAnswer("q1", "yes")})
	require.ErrorIs(t, err, appErrors.ErrDuplicateResponse)
	assert.Equal(t, email, responses.emailChecked)
}

func TestSubmitAllowsRepeatEmailWhenMultipleResponsesEnabled(t *testing.T) {
	detail := publishedDetail()
	detail.Settings.AllowMultipleResponses = true
	responses := &submissionResponseStub{exists: true, createCount: 2}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, nil, nil, nil, nil, nil, nil)

	email := "repeat@example.com"
	result, err := svc.Submit(context.Background(), "s1", SubmitRequest{Email: &email, Answers: textAnswer("q1", "yes")})
	require.NoError(t, err)
	assert.Equal(t, "resp-1", result.ResponseID)
	assert.Empty(t, responses.emailChecked)
}

func TestSubmitReturnsValidationDetails(t *testing.T) {
	detail := publishedDetail()
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, &submissionResponseStub{}, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: nil})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "q1", appErr.Details[0].Field)
}

func TestSubmitAdmitsAndBroadcastsStatistics(t *testing.T) {
	detail := publishedDetail()
	detail.Settings.ResponseLetter = "Thanks for taking part!"
	responses := &submissionResponseStub{createCount: 3}
	stats := &statsRefresherStub{stats: &models.SurveyStatistics{SurveyID: "s1", TotalResponses: 3}}
	hub := &broadcasterStub{}
	notifier := &notifierStub{}
	scheduler := &schedulerStub{}
	metrics := &submissionMetricsStub{}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, stats, hub, notifier, scheduler, metrics, nil)

	result, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for taking part!", result.ResponseLetter)
	assert.False(t, result.SurveyClosed)

	assert.Equal(t, []string{"s1"}, stats.recomputed)
	assert.Equal(t, []string{"s1"}, hub.published)
	assert.Zero(t, notifier.closed)
	assert.Empty(t, scheduler.scheduled)
	assert.Equal(t, []string{"s1"}, metrics.admitted)
}

func TestSubmitClosingSubmissionNotifiesAndSchedulesAnalysis(t *testing.T) {
	detail := publishedDetail()
	closeAt := time.Now().Add(time.Hour)
	max := 10
	detail.Settings.CloseTime = &closeAt
	detail.Settings.MaxResponse = &max
	responses := &submissionResponseStub{count: 9, createCount: 10, createClosed: true}
	users := &submissionUserStub{user: &models.User{ID: "owner-1", Email: "owner@example.com"}}
	notifier := &notifierStub{}
	scheduler := &schedulerStub{}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, users, nil, nil, notifier, scheduler, nil, nil)

	result, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	require.NoError(t, err)
	assert.True(t, result.SurveyClosed)

	assert.Equal(t, 1, notifier.closed)
	assert.Equal(t, 1, notifier.ownerClosed)
	assert.Equal(t, "owner@example.com", notifier.lastNotice.CreatorEmail)
	assert.Equal(t, 10, notifier.lastNotice.ResponseCount)
	assert.Equal(t, []string{"s1"}, scheduler.scheduled)
}

func TestSubmitClosingSmallSurveySkipsAnalysis(t *testing.T) {
	detail := publishedDetail()
	max := 3
	detail.Settings.MaxResponse = &max
	responses := &submissionResponseStub{count: 2, createCount: 3, createClosed: true}
	notifier := &notifierStub{}
	scheduler := &schedulerStub{}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, nil, nil, notifier, scheduler, nil, nil)

	result, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	require.NoError(t, err)
	assert.True(t, result.SurveyClosed)
	assert.Equal(t, 1, notifier.closed)
	assert.Empty(t, scheduler.scheduled)
}

func TestSubmitSurfacesStorageErrors(t *testing.T) {
	detail := publishedDetail()
	responses := &submissionResponseStub{createErr: errors.New("tx aborted")}
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, responses, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{Answers: textAnswer("q1", "yes")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestPublicSurveyScrubsOwnerFields(t *testing.T) {
	detail := publishedDetail()
	analysis := "private summary"
	detail.AIAnalysis = &analysis
	detail.Settings.ResponseLetter = "secret letter"
	svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, &submissionResponseStub{}, nil, nil, nil, nil, nil, nil, nil)

	public, err := svc.PublicSurvey(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, public.AIAnalysis)
	assert.Nil(t, public.UserID)
	assert.Empty(t, public.Settings.ResponseLetter)
}

func TestPublicSurveyHidesPendingAndClosed(t *testing.T) {
	for _, status := range []models.SurveyStatus{models.SurveyStatusPending, models.SurveyStatusClosed} {
		detail := publishedDetail()
		detail.Status = status
		svc := NewSubmissionService(&submissionSurveyStub{detail: detail}, &submissionResponseStub{}, nil, nil, nil, nil, nil, nil, nil)

		_, err := svc.PublicSurvey(context.Background(), "s1")
		assert.ErrorIs(t, err, appErrors.ErrSurveyNotOpen)
	}
}
