package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

type surveyStoreStub struct {
	detail    *models.SurveyDetail
	detailErr error
	survey    *models.Survey
	settings  *models.SurveySettings

	created         *models.SurveyDetail
	replaced        *models.SurveyDetail
	updatedSettings *models.SurveySettings
	deleted         []string

	publishOK   bool
	closeOK     bool
	openStamped []string

	summaries []models.SurveySummary
	total     int
}

func (s *surveyStoreStub) Create(ctx context.Context, detail *models.SurveyDetail) error {
	detail.ID = "new-1"
	s.created = detail
	return nil
}

func (s *surveyStoreStub) ReplaceContent(ctx context.Context, detail *models.SurveyDetail) error {
	s.replaced = detail
	return nil
}

func (s *surveyStoreStub) UpdateSettings(ctx context.Context, settings *models.SurveySettings) error {
	s.updatedSettings = settings
	return nil
}

func (s *surveyStoreStub) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	if s.survey != nil {
		return s.survey, nil
	}
	if s.detail != nil {
		survey := s.detail.Survey
		return &survey, nil
	}
	return nil, sql.ErrNoRows
}

func (s *surveyStoreStub) GetSettings(ctx context.Context, surveyID string) (*models.SurveySettings, error) {
	if s.settings == nil {
		return nil, sql.ErrNoRows
	}
	return s.settings, nil
}

func (s *surveyStoreStub) GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error) {
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *surveyStoreStub) List(ctx context.Context, filter models.SurveyFilter) ([]models.SurveySummary, int, error) {
	return s.summaries, s.total, nil
}

func (s *surveyStoreStub) ListTemplates(ctx context.Context, userID string) ([]models.SurveySummary, error) {
	return s.summaries, nil
}

func (s *surveyStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *surveyStoreStub) MarkPublished(ctx context.Context, id string, at time.Time) (bool, error) {
	return s.publishOK, nil
}

func (s *surveyStoreStub) MarkClosed(ctx context.Context, id string, at time.Time) (bool, error) {
	return s.closeOK, nil
}

func (s *surveyStoreStub) SetOpenTime(ctx context.Context, surveyID string, at time.Time) error {
	s.openStamped = append(s.openStamped, surveyID)
	return nil
}

type surveyResponseStoreStub struct {
	count     int
	responses []models.Response
	answers   []models.Answer
	response  *models.Response
	deleted   []string
}

func (s *surveyResponseStoreStub) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	return s.count, nil
}

func (s *surveyResponseStoreStub) ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error) {
	return s.responses, nil
}

func (s *surveyResponseStoreStub) GetByID(ctx context.Context, surveyID, responseID string) (*models.Response, error) {
	if s.response == nil {
		return nil, sql.ErrNoRows
	}
	return s.response, nil
}

func (s *surveyResponseStoreStub) AnswersForResponses(ctx context.Context, responseIDs []string) ([]models.Answer, error) {
	return s.answers, nil
}

func (s *surveyResponseStoreStub) Delete(ctx context.Context, surveyID, responseID string) error {
	s.deleted = append(s.deleted, responseID)
	return nil
}

type mediaStub struct {
	duplicated []string
	deleted    []string
	dupErr     error
}

func (m *mediaStub) Duplicate(ref string) (string, error) {
	if m.dupErr != nil {
		return "", m.dupErr
	}
	m.duplicated = append(m.duplicated, ref)
	return "copy-" + ref, nil
}

func (m *mediaStub) Delete(ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

func ownedDetail(userID string, status models.SurveyStatus) *models.SurveyDetail {
	return &models.SurveyDetail{
		Survey: models.Survey{
			ID:     "s1",
			Title:  "Coffee habits",
			Status: status,
			UserID: &userID,
		},
		Settings: &models.SurveySettings{SurveyID: "s1"},
	}
}

func TestCreateSurveyStartsPending(t *testing.T) {
	store := &surveyStoreStub{}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	detail, err := svc.Create(context.Background(), "u1", SurveyInput{
		Title: "Coffee habits",
		Questions: []QuestionInput{
			{Text: "How often?", Type: models.QuestionShortText},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusPending, detail.Status)
	require.NotNil(t, detail.UserID)
	assert.Equal(t, "u1", *detail.UserID)
	assert.Equal(t, 1, detail.Questions[0].Order)
	assert.Equal(t, models.AutoCloseManual, detail.Settings.AutoCloseCondition)
}

func TestCreateSurveyValidatesInput(t *testing.T) {
	svc := NewSurveyService(&surveyStoreStub{}, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "u1", SurveyInput{Title: ""})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.NotEmpty(t, appErr.Details)
	assert.Equal(t, "Title", appErr.Details[0].Field)
}

func TestGetSurveyEnforcesOwnership(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPending)}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "intruder", "s1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	detail, err := svc.Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", detail.ID)
}

func TestGetSurveyAllowsSystemTemplates(t *testing.T) {
	store := &surveyStoreStub{detail: &models.SurveyDetail{
		Survey: models.Survey{ID: "tpl-1", Title: "Template", IsTemplate: true},
	}}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	detail, err := svc.Get(context.Background(), "anyone", "tpl-1")
	require.NoError(t, err)
	assert.True(t, detail.IsTemplate)
}

func TestUpdateRejectsNonPendingSurvey(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished)}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Update(context.Background(), "u1", "s1", SurveyInput{Title: "New title"})
	assert.ErrorIs(t, err, appErrors.ErrSurveyNotPending)
	assert.Nil(t, store.replaced)
}

func TestUpdateSettingsRejectsClosedSurvey(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusClosed)}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.UpdateSettings(context.Background(), "u1", "s1", SettingsInput{})
	assert.ErrorIs(t, err, appErrors.ErrSurveyClosed)
}

func TestUpdateSettingsWhilePublished(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished)}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	max := 50
	settings, err := svc.UpdateSettings(context.Background(), "u1", "s1", SettingsInput{MaxResponse: &max})
	require.NoError(t, err)
	assert.Equal(t, "s1", settings.SurveyID)
	assert.Equal(t, 50, *store.updatedSettings.MaxResponse)
	assert.Equal(t, models.AutoCloseManual, settings.AutoCloseCondition)
}

func TestCloneResetsLifecycleState(t *testing.T) {
	sourceOwner := "u1"
	mediaRef := "img-1"
	publishedAt := time.Now()
	max := 20
	store := &surveyStoreStub{detail: &models.SurveyDetail{
		Survey: models.Survey{
			ID:          "s1",
			Title:       "Coffee habits",
			Status:      models.SurveyStatusClosed,
			UserID:      &sourceOwner,
			MediaRef:    &mediaRef,
			PublishedAt: &publishedAt,
		},
		Settings: &models.SurveySettings{SurveyID: "s1", MaxResponse: &max},
		Questions: []models.Question{
			{
				ID:      "q1",
				Text:    "How often?",
				Type:    models.QuestionMultipleChoice,
				Options: []models.Option{{ID: "o1", Text: "Daily"}},
			},
		},
	}}
	media := &mediaStub{}
	svc := NewSurveyService(store, nil, media, nil, nil, nil, nil, nil, nil)

	clone, err := svc.Clone(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "(Copy) Coffee habits", clone.Title)
	assert.Equal(t, models.SurveyStatusPending, clone.Status)
	assert.Nil(t, clone.PublishedAt)
	assert.Empty(t, clone.Questions[0].ID)
	assert.Empty(t, clone.Questions[0].Options[0].ID)
	assert.Empty(t, clone.Settings.SurveyID)
	assert.Equal(t, 20, *clone.Settings.MaxResponse)
	require.NotNil(t, clone.MediaRef)
	assert.Equal(t, "copy-img-1", *clone.MediaRef)
	assert.Equal(t, []string{"img-1"}, media.duplicated)
}

func TestCloneSurvivesMediaFailure(t *testing.T) {
	owner := "u1"
	mediaRef := "img-1"
	store := &surveyStoreStub{detail: &models.SurveyDetail{
		Survey: models.Survey{ID: "s1", Title: "Coffee habits", UserID: &owner, MediaRef: &mediaRef},
	}}
	media := &mediaStub{dupErr: assert.AnError}
	svc := NewSurveyService(store, nil, media, nil, nil, nil, nil, nil, nil)

	clone, err := svc.Clone(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Nil(t, clone.MediaRef)
}

func TestToggleStatusPublishesPendingSurvey(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPending), publishOK: true}
	notifier := &notifierStub{}
	metrics := &lifecycleMetricsStub{}
	svc := NewSurveyService(store, nil, nil, nil, notifier, nil, metrics, nil, nil)
	svc.now = func() time.Time { return sweepNow }

	result, err := svc.ToggleStatus(context.Background(), "u1", "s1", []string{"#general"}, "We are live")
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusPending, result.FromStatus)
	assert.Equal(t, models.SurveyStatusPublished, result.ToStatus)
	assert.Equal(t, []string{"s1"}, store.openStamped)
	assert.Equal(t, 1, notifier.opened)
	assert.Equal(t, []string{"#general"}, notifier.lastChannels)
	assert.Equal(t, "We are live", notifier.lastCustom)
	assert.Equal(t, []string{"PENDING>PUBLISHED"}, metrics.transitions)
}

func TestToggleStatusClosesPublishedSurvey(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished), closeOK: true}
	responses := &surveyResponseStoreStub{count: 12}
	notifier := &notifierStub{}
	scheduler := &schedulerStub{}
	svc := NewSurveyService(store, responses, nil, nil, notifier, scheduler, nil, nil, nil)

	result, err := svc.ToggleStatus(context.Background(), "u1", "s1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusClosed, result.ToStatus)
	assert.Equal(t, 1, notifier.closed)
	assert.Equal(t, 1, notifier.ownerClosed)
	assert.Equal(t, 12, notifier.lastNotice.ResponseCount)
	assert.Equal(t, []string{"s1"}, scheduler.scheduled)
}

func TestToggleStatusClosedSurveyRejects(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusClosed)}
	svc := NewSurveyService(store, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.ToggleStatus(context.Background(), "u1", "s1", nil, "")
	assert.ErrorIs(t, err, appErrors.ErrSurveyClosed)
}

func TestToggleStatusCloseRaceReadsAsClosed(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished), closeOK: false}
	notifier := &notifierStub{}
	svc := NewSurveyService(store, &surveyResponseStoreStub{}, nil, nil, notifier, nil, nil, nil, nil)

	_, err := svc.ToggleStatus(context.Background(), "u1", "s1", nil, "")
	assert.ErrorIs(t, err, appErrors.ErrSurveyClosed)
	assert.Zero(t, notifier.closed)
}

func TestDeleteSurveyCleansUpMediaAndCache(t *testing.T) {
	mediaRef := "img-1"
	detail := ownedDetail("u1", models.SurveyStatusClosed)
	detail.MediaRef = &mediaRef
	store := &surveyStoreStub{detail: detail}
	media := &mediaStub{}
	stats := &statsRefresherStub{}
	svc := NewSurveyService(store, nil, media, stats, nil, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "u1", "s1"))
	assert.Equal(t, []string{"s1"}, store.deleted)
	assert.Equal(t, []string{"img-1"}, media.deleted)
	assert.Equal(t, []string{"s1"}, stats.invalidated)
}

func TestDeleteResponseInvalidatesStatistics(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished)}
	responses := &surveyResponseStoreStub{response: &models.Response{ID: "r1", SurveyID: "s1"}}
	stats := &statsRefresherStub{}
	svc := NewSurveyService(store, responses, nil, stats, nil, nil, nil, nil, nil)

	require.NoError(t, svc.DeleteResponse(context.Background(), "u1", "s1", "r1"))
	assert.Equal(t, []string{"r1"}, responses.deleted)
	assert.Equal(t, []string{"s1"}, stats.invalidated)
}

func TestDeleteResponseMissingRow(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusPublished)}
	svc := NewSurveyService(store, &surveyResponseStoreStub{}, nil, nil, nil, nil, nil, nil, nil)

	err := svc.DeleteResponse(context.Background(), "u1", "s1", "gone")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListResponsesFormatsPerQuestionType(t *testing.T) {
	detail := ownedDetail("u1", models.SurveyStatusClosed)
	detail.Questions = []models.Question{
		{ID: "q1", Text: "How often?", Type: models.QuestionMultipleChoice, Options: []models.Option{{ID: "o1", Text: "Daily"}}},
		{ID: "q2", Text: "Anything else?", Type: models.QuestionLongText},
	}
	store := &surveyStoreStub{detail: detail}
	responses := &surveyResponseStoreStub{
		responses: []models.Response{{ID: "r1", SurveyID: "s1", SubmittedAt: time.Now()}},
		answers: []models.Answer{
			{ResponseID: "r1", QuestionID: "q1", Options: []models.AnswerOption{{OptionID: "o1"}}},
		},
	}
	svc := NewSurveyService(store, responses, nil, nil, nil, nil, nil, nil, nil)

	details, err := svc.ListResponses(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Len(t, details[0].Answers, 2)
	assert.Equal(t, "Daily", details[0].Answers[0].Answer)
	assert.Equal(t, noAnswerLabel, details[0].Answers[1].Answer)
}

func TestExportResponsesRejectsUnknownFormat(t *testing.T) {
	store := &surveyStoreStub{detail: ownedDetail("u1", models.SurveyStatusClosed)}
	svc := NewSurveyService(store, &surveyResponseStoreStub{}, nil, nil, nil, nil, nil, nil, nil)

	_, _, _, err := svc.ExportResponses(context.Background(), "u1", "s1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportResponsesCSV(t *testing.T) {
	detail := ownedDetail("u1", models.SurveyStatusClosed)
	detail.Questions = []models.Question{{ID: "q1", Text: "How often?", Type: models.QuestionShortText}}
	store := &surveyStoreStub{detail: detail}
	answer := "daily"
	responses := &surveyResponseStoreStub{
		responses: []models.Response{{ID: "r1", SurveyID: "s1", SubmittedAt: time.Now()}},
		answers:   []models.Answer{{ResponseID: "r1", QuestionID: "q1", AnswerText: &answer}},
	}
	svc := NewSurveyService(store, responses, nil, nil, nil, nil, nil, nil, nil)

	data, filename, contentType, err := svc.ExportResponses(context.Background(), "u1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "coffee-habits-responses.csv", filename)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(data), "How often?")
	assert.Contains(t, string(data), "daily")
}
