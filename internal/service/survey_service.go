package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/export"
)

// clonePrefix marks duplicated surveys so owners can tell them apart.
const clonePrefix = "(Copy) "

// noAnswerLabel renders questions the respondent skipped in owner views.
const noAnswerLabel = "[No answer]"

type surveyStore interface {
	Create(ctx context.Context, detail *models.SurveyDetail) error
	ReplaceContent(ctx context.Context, detail *models.SurveyDetail) error
	UpdateSettings(ctx context.Context, settings *models.SurveySettings) error
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	GetSettings(ctx context.Context, surveyID string) (*models.SurveySettings, error)
	GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error)
	List(ctx context.Context, filter models.SurveyFilter) ([]models.SurveySummary, int, error)
	ListTemplates(ctx context.Context, userID string) ([]models.SurveySummary, error)
	Delete(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id string, at time.Time) (bool, error)
	MarkClosed(ctx context.Context, id string, at time.Time) (bool, error)
	SetOpenTime(ctx context.Context, surveyID string, at time.Time) error
}

type surveyResponseStore interface {
	CountBySurvey(ctx context.Context, surveyID string) (int, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error)
	GetByID(ctx context.Context, surveyID, responseID string) (*models.Response, error)
	AnswersForResponses(ctx context.Context, responseIDs []string) ([]models.Answer, error)
	Delete(ctx context.Context, surveyID, responseID string) error
}

type mediaDuplicator interface {
	Duplicate(ref string) (string, error)
	Delete(ref string) error
}

// SurveyInput is the create/update payload for a survey with its full
// question graph.
type SurveyInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	MediaRef    *string         `json:"media_ref,omitempty"`
	IsTemplate  bool            `json:"is_template"`
	Settings    *SettingsInput  `json:"settings,omitempty"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

// SettingsInput carries the tunable admission and lifecycle knobs.
type SettingsInput struct {
	RequireEmail           bool                      `json:"require_email"`
	AllowMultipleResponses bool                      `json:"allow_multiple_responses"`
	OpenTime               *time.Time                `json:"open_time,omitempty"`
	CloseTime              *time.Time                `json:"close_time,omitempty"`
	MaxResponse            *int                      `json:"max_response,omitempty" validate:"omitempty,min=1"`
	AutoCloseCondition     models.AutoCloseCondition `json:"auto_close_condition" validate:"omitempty,oneof=manual by_time by_response"`
	ResponseLetter         string                    `json:"response_letter" validate:"max=2000"`
}

// QuestionInput is one question in a create/update payload.
type QuestionInput struct {
	Text          string              `json:"question_text" validate:"required,max=1000"`
	MediaRef      *string             `json:"media_ref,omitempty"`
	Type          models.QuestionType `json:"type" validate:"required,oneof=short_text long_text multiple_choice checkbox matrix_choice matrix_input"`
	IsRequired    bool                `json:"is_required"`
	Order         int                 `json:"order"`
	Options       []OptionInput       `json:"options,omitempty" validate:"dive"`
	MatrixRows    []AxisInput         `json:"matrix_rows,omitempty" validate:"dive"`
	MatrixColumns []AxisInput         `json:"matrix_columns,omitempty" validate:"dive"`
}

// OptionInput is one selectable choice.
type OptionInput struct {
	Text     string  `json:"option_text" validate:"required,max=500"`
	MediaRef *string `json:"media_ref,omitempty"`
	IsOther  bool    `json:"is_other"`
}

// AxisInput is one matrix row or column label.
type AxisInput struct {
	Label string `json:"label" validate:"required,max=500"`
	Order int    `json:"order"`
}

// ToggleResult reports the transition the status toggle performed.
type ToggleResult struct {
	Survey     *models.Survey      `json:"survey"`
	FromStatus models.SurveyStatus `json:"from_status"`
	ToStatus   models.SurveyStatus `json:"to_status"`
}

// SurveyService owns the survey lifecycle from the owner's side:
// authoring, cloning, settings, the manual status toggle and response
// administration. Every operation checks ownership before touching data.
type SurveyService struct {
	surveys   surveyStore
	responses surveyResponseStore
	media     mediaDuplicator
	stats     statisticsRefresher
	notifier  Notifier
	analysis  AnalysisScheduler
	metrics   lifecycleMetrics
	validate  *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewSurveyService wires the service. media, stats, notifier, analysis
// and metrics may be nil.
func NewSurveyService(
	surveys surveyStore,
	responses surveyResponseStore,
	media mediaDuplicator,
	stats statisticsRefresher,
	notifier Notifier,
	analysis AnalysisScheduler,
	metrics lifecycleMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *SurveyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurveyService{
		surveys:   surveys,
		responses: responses,
		media:     media,
		stats:     stats,
		notifier:  notifier,
		analysis:  analysis,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create persists a new pending survey owned by userID.
func (s *SurveyService) Create(ctx context.Context, userID string, input SurveyInput) (*models.SurveyDetail, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	detail := inputToDetail(input)
	detail.UserID = &userID
	detail.Status = models.SurveyStatusPending

	if err := s.surveys.Create(ctx, detail); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("survey created", zap.String("survey_id", detail.ID), zap.String("user_id", userID))
	return detail, nil
}

// Get loads a survey the user may see: their own or a template.
func (s *SurveyService) Get(ctx context.Context, userID, surveyID string) (*models.SurveyDetail, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canView(detail.Survey, userID) {
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

// List pages through the user's surveys.
func (s *SurveyService) List(ctx context.Context, filter models.SurveyFilter) ([]models.SurveySummary, *models.Pagination, error) {
	surveys, total, err := s.surveys.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 9
	}
	return surveys, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListTemplates returns system templates plus the user's own.
func (s *SurveyService) ListTemplates(ctx context.Context, userID string) ([]models.SurveySummary, error) {
	templates, err := s.surveys.ListTemplates(ctx, userID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return templates, nil
}

// Update replaces the survey content and settings. Only pending surveys
// may change; anything later already has answers or an audience.
func (s *SurveyService) Update(ctx context.Context, userID, surveyID string, input SurveyInput) (*models.SurveyDetail, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.ownedSurvey(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.SurveyStatusPending {
		return nil, appErrors.ErrSurveyNotPending
	}

	detail := inputToDetail(input)
	detail.ID = surveyID
	detail.UserID = existing.UserID
	detail.Status = existing.Status
	detail.IsTemplate = existing.IsTemplate
	detail.CreatedAt = existing.CreatedAt

	if err := s.surveys.ReplaceContent(ctx, detail); err != nil {
		return nil, appErrors.FromError(err)
	}
	return s.surveys.GetDetail(ctx, surveyID)
}

// UpdateSettings adjusts settings without touching content. Allowed
// while pending or published; closed surveys are immutable.
func (s *SurveyService) UpdateSettings(ctx context.Context, userID, surveyID string, input SettingsInput) (*models.SurveySettings, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	survey, err := s.ownedSurvey(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	if survey.Status == models.SurveyStatusClosed {
		return nil, appErrors.ErrSurveyClosed
	}

	settings := inputToSettings(&input)
	settings.SurveyID = surveyID
	if err := s.surveys.UpdateSettings(ctx, settings); err != nil {
		return nil, appErrors.FromError(err)
	}
	return settings, nil
}

// Delete removes a survey with all of its responses and cleans up its
// media. Media removal is best effort; orphaned files are a cleanup
// concern, not a request failure.
func (s *SurveyService) Delete(ctx context.Context, userID, surveyID string) error {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return notFound(err)
	}
	if !isOwner(detail.Survey, userID) {
		return appErrors.ErrForbidden
	}

	refs := collectMediaRefs(detail)
	if err := s.surveys.Delete(ctx, surveyID); err != nil {
		return appErrors.FromError(err)
	}

	if s.media != nil {
		for _, ref := range refs {
			if err := s.media.Delete(ref); err != nil {
				s.logger.Warn("media cleanup failed", zap.String("ref", ref), zap.Error(err))
			}
		}
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, surveyID)
	}
	s.logger.Info("survey deleted", zap.String("survey_id", surveyID), zap.String("user_id", userID))
	return nil
}

// Clone duplicates a survey (or template) into a fresh pending survey
// owned by userID. All lifecycle state is reset and media files are
// copied so the clone never shares storage with its source.
func (s *SurveyService) Clone(ctx context.Context, userID, sourceID string) (*models.SurveyDetail, error) {
	source, err := s.surveys.GetDetail(ctx, sourceID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canView(source.Survey, userID) {
		return nil, appErrors.ErrForbidden
	}

	clone := &models.SurveyDetail{
		Survey: models.Survey{
			Title:       clonePrefix + source.Title,
			Description: source.Description,
			Status:      models.SurveyStatusPending,
			UserID:      &userID,
		},
		Questions: make([]models.Question, 0, len(source.Questions)),
	}
	clone.MediaRef = s.duplicateRef(source.MediaRef)

	if source.Settings != nil {
		settings := *source.Settings
		settings.SurveyID = ""
		clone.Settings = &settings
	}

	for _, q := range source.Questions {
		question := models.Question{
			Text:       q.Text,
			Type:       q.Type,
			IsRequired: q.IsRequired,
			Order:      q.Order,
			MediaRef:   s.duplicateRef(q.MediaRef),
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, models.Option{
				Text:     opt.Text,
				IsOther:  opt.IsOther,
				MediaRef: s.duplicateRef(opt.MediaRef),
			})
		}
		for _, row := range q.MatrixRows {
			question.MatrixRows = append(question.MatrixRows, models.MatrixRow{Label: row.Label, Order: row.Order})
		}
		for _, col := range q.MatrixColumns {
			question.MatrixColumns = append(question.MatrixColumns, models.MatrixColumn{Label: col.Label, Order: col.Order})
		}
		clone.Questions = append(clone.Questions, question)
	}

	if err := s.surveys.Create(ctx, clone); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("survey cloned",
		zap.String("source_id", sourceID), zap.String("survey_id", clone.ID), zap.String("user_id", userID))
	return clone, nil
}

// ToggleStatus advances the survey one lifecycle step: pending surveys
// publish, published surveys close, closed surveys reject. Publishing
// stamps the open time so the sweep and the public endpoint agree on
// when the survey opened.
func (s *SurveyService) ToggleStatus(ctx context.Context, userID, surveyID string, channels []string, customMessage string) (*ToggleResult, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !isOwner(detail.Survey, userID) {
		return nil, appErrors.ErrForbidden
	}

	now := s.now().UTC()
	switch detail.Status {
	case models.SurveyStatusPending:
		return s.publish(ctx, detail, now, channels, customMessage)
	case models.SurveyStatusPublished:
		return s.close(ctx, detail, now)
	default:
		return nil, appErrors.ErrSurveyClosed
	}
}

func (s *SurveyService) publish(ctx context.Context, detail *models.SurveyDetail, now time.Time, channels []string, customMessage string) (*ToggleResult, error) {
	published, err := s.surveys.MarkPublished(ctx, detail.ID, now)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if !published {
		return nil, appErrors.ErrConflict
	}
	if err := s.surveys.SetOpenTime(ctx, detail.ID, now); err != nil {
		s.logger.Warn("stamp open time failed", zap.String("survey_id", detail.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordLifecycleTransition(models.SurveyStatusPending, models.SurveyStatusPublished)
	}

	if s.notifier != nil {
		notice := s.ownerNotice(detail, 0)
		notice.PublishedAt = &now
		if err := s.notifier.NotifyOpened(ctx, notice, channels, customMessage); err != nil {
			s.logger.Warn("open notification failed", zap.String("survey_id", detail.ID), zap.Error(err))
		}
	}

	survey, err := s.surveys.GetByID(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return &ToggleResult{
		Survey:     survey,
		FromStatus: models.SurveyStatusPending,
		ToStatus:   models.SurveyStatusPublished,
	}, nil
}

func (s *SurveyService) close(ctx context.Context, detail *models.SurveyDetail, now time.Time) (*ToggleResult, error) {
	closed, err := s.surveys.MarkClosed(ctx, detail.ID, now)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if !closed {
		return nil, appErrors.ErrSurveyClosed
	}
	if s.metrics != nil {
		s.metrics.RecordLifecycleTransition(models.SurveyStatusPublished, models.SurveyStatusClosed)
	}

	count := 0
	if s.responses != nil {
		if c, err := s.responses.CountBySurvey(ctx, detail.ID); err == nil {
			count = c
		}
	}

	if s.notifier != nil {
		notice := s.ownerNotice(detail, count)
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

	survey, err := s.surveys.GetByID(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return &ToggleResult{
		Survey:     survey,
		FromStatus: models.SurveyStatusPublished,
		ToStatus:   models.SurveyStatusClosed,
	}, nil
}

// ListResponses returns every response with answers rendered per
// question type, newest first.
func (s *SurveyService) ListResponses(ctx context.Context, userID, surveyID string) ([]models.ResponseDetail, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !isOwner(detail.Survey, userID) {
		return nil, appErrors.ErrForbidden
	}

	responses, err := s.responses.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if len(responses) == 0 {
		return []models.ResponseDetail{}, nil
	}

	ids := make([]string, len(responses))
	for i, r := range responses {
		ids[i] = r.ID
	}
	answers, err := s.responses.AnswersForResponses(ctx, ids)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	byResponse := make(map[string][]models.Answer)
	for _, a := range answers {
		byResponse[a.ResponseID] = append(byResponse[a.ResponseID], a)
	}

	details := make([]models.ResponseDetail, 0, len(responses))
	for _, r := range responses {
		details = append(details, models.ResponseDetail{
			ResponseID:  r.ID,
			UserEmail:   r.UserEmail,
			SubmittedAt: r.SubmittedAt,
			Answers:     formatAnswers(detail.Questions, byResponse[r.ID]),
		})
	}
	return details, nil
}

// GetResponse returns one formatted response.
func (s *SurveyService) GetResponse(ctx context.Context, userID, surveyID, responseID string) (*models.ResponseDetail, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !isOwner(detail.Survey, userID) {
		return nil, appErrors.ErrForbidden
	}

	response, err := s.responses.GetByID(ctx, surveyID, responseID)
	if err != nil {
		return nil, notFound(err)
	}
	answers, err := s.responses.AnswersForResponses(ctx, []string{responseID})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	return &models.ResponseDetail{
		ResponseID:  response.ID,
		UserEmail:   response.UserEmail,
		SubmittedAt: response.SubmittedAt,
		Answers:     formatAnswers(detail.Questions, answers),
	}, nil
}

// DeleteResponse removes one response and invalidates cached statistics.
func (s *SurveyService) DeleteResponse(ctx context.Context, userID, surveyID, responseID string) error {
	survey, err := s.ownedSurvey(ctx, userID, surveyID)
	if err != nil {
		return err
	}
	if _, err := s.responses.GetByID(ctx, surveyID, responseID); err != nil {
		return notFound(err)
	}
	if err := s.responses.Delete(ctx, surveyID, responseID); err != nil {
		return appErrors.FromError(err)
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, survey.ID)
	}
	return nil
}

// ExportResponses renders the survey's responses as CSV or PDF and
// returns the bytes with a suggested filename and content type.
func (s *SurveyService) ExportResponses(ctx context.Context, userID, surveyID, format string) ([]byte, string, string, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, "", "", notFound(err)
	}
	if !isOwner(detail.Survey, userID) {
		return nil, "", "", appErrors.ErrForbidden
	}

	responses, err := s.ListResponses(ctx, userID, surveyID)
	if err != nil {
		return nil, "", "", err
	}
	dataset := buildDataset(detail.Questions, responses)

	switch strings.ToLower(format) {
	case "", "csv":
		data, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.FromError(err)
		}
		return data, exportFilename(detail.Title, "csv"), "text/csv", nil
	case "pdf":
		data, err := export.NewPDFExporter().Render(dataset, detail.Title)
		if err != nil {
			return nil, "", "", appErrors.FromError(err)
		}
		return data, exportFilename(detail.Title, "pdf"), "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}

func (s *SurveyService) ownedSurvey(ctx context.Context, userID, surveyID string) (*models.Survey, error) {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !isOwner(*survey, userID) {
		return nil, appErrors.ErrForbidden
	}
	return survey, nil
}

func (s *SurveyService) ownerNotice(detail *models.SurveyDetail, count int) models.SurveyNotice {
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
	return notice
}

func (s *SurveyService) duplicateRef(ref *string) *string {
	if ref == nil || s.media == nil {
		return nil
	}
	copied, err := s.media.Duplicate(*ref)
	if err != nil {
		s.logger.Warn("media duplication failed", zap.String("ref", *ref), zap.Error(err))
		return nil
	}
	return &copied
}

func isOwner(survey models.Survey, userID string) bool {
	return survey.UserID != nil && *survey.UserID == userID
}

func canView(survey models.Survey, userID string) bool {
	if survey.IsTemplate && survey.UserID == nil {
		return true
	}
	return isOwner(survey, userID)
}

func notFound(err error) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return appErrors.FromError(err)
}

func validationError(err error) *appErrors.Error {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return appErrors.FromError(err)
	}
	details := make([]appErrors.FieldError, 0, len(invalid))
	for _, fe := range invalid {
		details = append(details, appErrors.FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
		})
	}
	return appErrors.WithDetails(appErrors.ErrValidation, details)
}

func inputToDetail(input SurveyInput) *models.SurveyDetail {
	detail := &models.SurveyDetail{
		Survey: models.Survey{
			Title:       input.Title,
			Description: input.Description,
			MediaRef:    input.MediaRef,
			IsTemplate:  input.IsTemplate,
		},
		Settings:  inputToSettings(input.Settings),
		Questions: make([]models.Question, 0, len(input.Questions)),
	}
	for i, q := range input.Questions {
		question := models.Question{
			Text:       q.Text,
			MediaRef:   q.MediaRef,
			Type:       q.Type,
			IsRequired: q.IsRequired,
			Order:      q.Order,
		}
		if question.Order == 0 {
			question.Order = i + 1
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, models.Option{
				Text:     opt.Text,
				MediaRef: opt.MediaRef,
				IsOther:  opt.IsOther,
			})
		}
		for j, row := range q.MatrixRows {
			order := row.Order
			if order == 0 {
				order = j + 1
			}
			question.MatrixRows = append(question.MatrixRows, models.MatrixRow{Label: row.Label, Order: order})
		}
		for j, col := range q.MatrixColumns {
			order := col.Order
			if order == 0 {
				order = j + 1
			}
			question.MatrixColumns = append(question.MatrixColumns, models.MatrixColumn{Label: col.Label, Order: order})
		}
		detail.Questions = append(detail.Questions, question)
	}
	return detail
}

func inputToSettings(input *SettingsInput) *models.SurveySettings {
	if input == nil {
		return &models.SurveySettings{AutoCloseCondition: models.AutoCloseManual}
	}
	condition := input.AutoCloseCondition
	if condition == "" {
		condition = models.AutoCloseManual
	}
	return &models.SurveySettings{
		RequireEmail:           input.RequireEmail,
		AllowMultipleResponses: input.AllowMultipleResponses,
		OpenTime:               input.OpenTime,
		CloseTime:              input.CloseTime,
		MaxResponse:            input.MaxResponse,
		AutoCloseCondition:     condition,
		ResponseLetter:         input.ResponseLetter,
	}
}

func collectMediaRefs(detail *models.SurveyDetail) []string {
	var refs []string
	if detail.MediaRef != nil {
		refs = append(refs, *detail.MediaRef)
	}
	for _, q := range detail.Questions {
		if q.MediaRef != nil {
			refs = append(refs, *q.MediaRef)
		}
		for _, opt := range q.Options {
			if opt.MediaRef != nil {
				refs = append(refs, *opt.MediaRef)
			}
		}
	}
	return refs
}

// formatAnswers renders stored answers against the question graph. Text
// and single choice render as strings, checkbox as a string list and
// matrix as cell views. Unanswered questions render a placeholder.
func formatAnswers(questions []models.Question, answers []models.Answer) []models.FormattedAnswer {
	byQuestion := make(map[string]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	optionText := func(q models.Question, sel models.AnswerOption) string {
		for _, opt := range q.Options {
			if opt.ID != sel.OptionID {
				continue
			}
			if opt.IsOther && sel.CustomText != nil {
				custom := *sel.CustomText
				if custom == "" {
					custom = EmptyAnswerLabel
				}
				return opt.Text + ": " + custom
			}
			return opt.Text
		}
		return sel.OptionID
	}

	formatted := make([]models.FormattedAnswer, 0, len(questions))
	for _, q := range questions {
		fa := models.FormattedAnswer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Type:         q.Type,
		}
		answer, ok := byQuestion[q.ID]
		switch {
		case !ok:
			fa.Answer = noAnswerLabel
		case q.Type == models.QuestionMultipleChoice:
			if len(answer.Options) > 0 {
				fa.Answer = optionText(q, answer.Options[0])
			} else {
				fa.Answer = noAnswerLabel
			}
		case q.Type == models.QuestionCheckbox:
			values := make([]string, 0, len(answer.Options))
			for _, sel := range answer.Options {
				values = append(values, optionText(q, sel))
			}
			fa.Answer = values
		case q.Type.IsMatrix():
			fa.Answer = formatMatrixCells(q, answer.MatrixCells)
		default:
			if answer.AnswerText != nil && *answer.AnswerText != "" {
				fa.Answer = *answer.AnswerText
			} else {
				fa.Answer = noAnswerLabel
			}
		}
		formatted = append(formatted, fa)
	}
	return formatted
}

func formatMatrixCells(q models.Question, cells []models.MatrixAnswer) []models.MatrixCellView {
	rowLabel := make(map[string]string, len(q.MatrixRows))
	for _, r := range q.MatrixRows {
		rowLabel[r.ID] = r.Label
	}
	columnLabel := make(map[string]string, len(q.MatrixColumns))
	for _, c := range q.MatrixColumns {
		columnLabel[c.ID] = c.Label
	}

	views := make([]models.MatrixCellView, 0, len(cells))
	for _, cell := range cells {
		view := models.MatrixCellView{Row: rowLabel[cell.RowID]}
		if cell.ColumnID != nil {
			view.Column = columnLabel[*cell.ColumnID]
		}
		if cell.InputValue != nil {
			view.Value = *cell.InputValue
		}
		views = append(views, view)
	}
	return views
}

func buildDataset(questions []models.Question, responses []models.ResponseDetail) export.Dataset {
	headers := []string{"Submitted At", "Email"}
	for _, q := range questions {
		headers = append(headers, q.Text)
	}

	rows := make([]map[string]string, 0, len(responses))
	for _, r := range responses {
		row := map[string]string{
			"Submitted At": r.SubmittedAt.Format(time.RFC3339),
		}
		if r.UserEmail != nil {
			row["Email"] = *r.UserEmail
		}
		for _, answer := range r.Answers {
			row[answer.QuestionText] = stringifyAnswer(answer.Answer)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func stringifyAnswer(answer interface{}) string {
	switch v := answer.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "; ")
	case []models.MatrixCellView:
		parts := make([]string, 0, len(v))
		for _, cell := range v {
			if cell.Value != "" {
				parts = append(parts, fmt.Sprintf("%s/%s=%s", cell.Row, cell.Column, cell.Value))
			} else {
				parts = append(parts, fmt.Sprintf("%s=%s", cell.Row, cell.Column))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func exportFilename(title, ext string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, title)
	if slug == "" {
		slug = "survey"
	}
	return fmt.Sprintf("%s-responses.%s", slug, ext)
}
