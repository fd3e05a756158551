package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/survey-pulse-api/internal/models"
)

// SurveyRepository persists the survey entity graph: survey, settings,
// questions, options and matrix axes.
type SurveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository creates the repository.
func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// Create inserts a survey with its settings and question graph in one
// transaction.
func (r *SurveyRepository) Create(ctx context.Context, detail *models.SurveyDetail) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create survey: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if detail.ID == "" {
		detail.ID = uuid.NewString()
	}
	detail.CreatedAt = now
	detail.UpdatedAt = now
	if detail.Status == "" {
		detail.Status = models.SurveyStatusPending
	}

	const surveyQuery = `INSERT INTO surveys (id, title, description, media_ref, status, is_template, ai_analysis, published_at, closed_at, user_id, created_at, updated_at)
VALUES (:id, :title, :description, :media_ref, :status, :is_template, :ai_analysis, :published_at, :closed_at, :user_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, surveyQuery, detail.Survey); err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}

	if detail.Settings == nil {
		detail.Settings = &models.SurveySettings{}
	}
	detail.Settings.SurveyID = detail.ID
	if detail.Settings.AutoCloseCondition == "" {
		detail.Settings.AutoCloseCondition = models.AutoCloseManual
	}
	const settingsQuery = `INSERT INTO survey_settings (survey_id, require_email, allow_multiple_responses, open_time, close_time, max_response, auto_close_condition, response_letter)
VALUES (:survey_id, :require_email, :allow_multiple_responses, :open_time, :close_time, :max_response, :auto_close_condition, :response_letter)`
	if _, err := tx.NamedExecContext(ctx, settingsQuery, detail.Settings); err != nil {
		return fmt.Errorf("insert survey settings: %w", err)
	}

	if err := insertQuestions(ctx, tx, detail.ID, detail.Questions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create survey: %w", err)
	}
	return nil
}

// ReplaceContent updates the survey row, its settings and rebuilds the
// question graph. Callers guarantee the survey is still pending, so no
// answers reference the questions being replaced.
func (r *SurveyRepository) ReplaceContent(ctx context.Context, detail *models.SurveyDetail) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update survey: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	detail.UpdatedAt = time.Now().UTC()
	const surveyQuery = `UPDATE surveys SET title = :title, description = :description, media_ref = :media_ref, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, surveyQuery, detail.Survey); err != nil {
		return fmt.Errorf("update survey: %w", err)
	}

	if detail.Settings != nil {
		detail.Settings.SurveyID = detail.ID
		if err := updateSettings(ctx, tx, detail.Settings); err != nil {
			return err
		}
	}

	for _, q := range []string{
		"DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)",
		"DELETE FROM matrix_rows WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)",
		"DELETE FROM matrix_columns WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)",
		"DELETE FROM questions WHERE survey_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, q, detail.ID); err != nil {
			return fmt.Errorf("clear survey questions: %w", err)
		}
	}

	if err := insertQuestions(ctx, tx, detail.ID, detail.Questions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update survey: %w", err)
	}
	return nil
}

// UpdateSettings persists settings changes outside a content update.
func (r *SurveyRepository) UpdateSettings(ctx context.Context, settings *models.SurveySettings) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update settings: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := updateSettings(ctx, tx, settings); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update settings: %w", err)
	}
	return nil
}

func updateSettings(ctx context.Context, tx *sqlx.Tx, settings *models.SurveySettings) error {
	const query = `UPDATE survey_settings SET require_email = :require_email, allow_multiple_responses = :allow_multiple_responses,
open_time = :open_time, close_time = :close_time, max_response = :max_response,
auto_close_condition = :auto_close_condition, response_letter = :response_letter
WHERE survey_id = :survey_id`
	if _, err := tx.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("update survey settings: %w", err)
	}
	return nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, surveyID string, questions []models.Question) error {
	const questionQuery = `INSERT INTO questions (id, survey_id, question_text, media_ref, type, is_required, ord)
VALUES (:id, :survey_id, :question_text, :media_ref, :type, :is_required, :ord)`
	const optionQuery = `INSERT INTO options (id, question_id, option_text, media_ref, is_other)
VALUES (:id, :question_id, :option_text, :media_ref, :is_other)`
	const rowQuery = `INSERT INTO matrix_rows (id, question_id, label, ord) VALUES (:id, :question_id, :label, :ord)`
	const columnQuery = `INSERT INTO matrix_columns (id, question_id, label, ord) VALUES (:id, :question_id, :label, :ord)`

	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.SurveyID = surveyID
		if q.Order == 0 {
			q.Order = i + 1
		}
		if _, err := tx.NamedExecContext(ctx, questionQuery, q); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for j := range q.Options {
			opt := &q.Options[j]
			if opt.ID == "" {
				opt.ID = uuid.NewString()
			}
			opt.QuestionID = q.ID
			if _, err := tx.NamedExecContext(ctx, optionQuery, opt); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
		for j := range q.MatrixRows {
			row := &q.MatrixRows[j]
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			row.QuestionID = q.ID
			if row.Order == 0 {
				row.Order = j + 1
			}
			if _, err := tx.NamedExecContext(ctx, rowQuery, row); err != nil {
				return fmt.Errorf("insert matrix row: %w", err)
			}
		}
		for j := range q.MatrixColumns {
			col := &q.MatrixColumns[j]
			if col.ID == "" {
				col.ID = uuid.NewString()
			}
			col.QuestionID = q.ID
			if col.Order == 0 {
				col.Order = j + 1
			}
			if _, err := tx.NamedExecContext(ctx, columnQuery, col); err != nil {
				return fmt.Errorf("insert matrix column: %w", err)
			}
		}
	}
	return nil
}

// GetByID returns the bare survey row.
func (r *SurveyRepository) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	const query = `SELECT id, title, description, media_ref, status, is_template, ai_analysis, published_at, closed_at, user_id, created_at, updated_at
FROM surveys WHERE id = $1`
	var survey models.Survey
	if err := r.db.GetContext(ctx, &survey, query, id); err != nil {
		return nil, err
	}
	return &survey, nil
}

// GetSettings returns the settings row for a survey.
func (r *SurveyRepository) GetSettings(ctx context.Context, surveyID string) (*models.SurveySettings, error) {
	const query = `SELECT survey_id, require_email, allow_multiple_responses, open_time, close_time, max_response, auto_close_condition, response_letter
FROM survey_settings WHERE survey_id = $1`
	var settings models.SurveySettings
	if err := r.db.GetContext(ctx, &settings, query, surveyID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetDetail loads the survey with settings and the full question graph.
func (r *SurveyRepository) GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error) {
	survey, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.SurveyDetail{Survey: *survey}

	settings, err := r.GetSettings(ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load survey settings: %w", err)
	}
	detail.Settings = settings

	questions, err := r.loadQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Questions = questions
	return detail, nil
}

func (r *SurveyRepository) loadQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	const questionQuery = `SELECT id, survey_id, question_text, media_ref, type, is_required, ord
FROM questions WHERE survey_id = $1 ORDER BY ord ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, questionQuery, surveyID); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]string, len(questions))
	index := make(map[string]*models.Question, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
		index[questions[i].ID] = &questions[i]
	}

	var options []models.Option
	if err := r.db.SelectContext(ctx, &options,
		`SELECT id, question_id, option_text, media_ref, is_other FROM options WHERE question_id = ANY($1) ORDER BY id`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	for _, opt := range options {
		if q, ok := index[opt.QuestionID]; ok {
			q.Options = append(q.Options, opt)
		}
	}

	var rows []models.MatrixRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, question_id, label, ord FROM matrix_rows WHERE question_id = ANY($1) ORDER BY ord ASC`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load matrix rows: %w", err)
	}
	for _, row := range rows {
		if q, ok := index[row.QuestionID]; ok {
			q.MatrixRows = append(q.MatrixRows, row)
		}
	}

	var columns []models.MatrixColumn
	if err := r.db.SelectContext(ctx, &columns,
		`SELECT id, question_id, label, ord FROM matrix_columns WHERE question_id = ANY($1) ORDER BY ord ASC`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load matrix columns: %w", err)
	}
	for _, col := range columns {
		if q, ok := index[col.QuestionID]; ok {
			q.MatrixColumns = append(q.MatrixColumns, col)
		}
	}

	return questions, nil
}

// List returns a page of the owner's surveys with live response counts.
func (r *SurveyRepository) List(ctx context.Context, filter models.SurveyFilter) ([]models.SurveySummary, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 9
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.title, s.description, s.media_ref, s.status, s.is_template, s.ai_analysis, s.published_at, s.closed_at, s.user_id, s.created_at, s.updated_at,
(SELECT COUNT(*) FROM responses r WHERE r.survey_id = s.id) AS response_count
FROM surveys s WHERE s.user_id = $1 AND s.is_template = $2
ORDER BY s.created_at DESC LIMIT %d OFFSET %d`, size, offset)
	var surveys []models.SurveySummary
	if err := r.db.SelectContext(ctx, &surveys, query, filter.UserID, filter.Template); err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM surveys WHERE user_id = $1 AND is_template = $2",
		filter.UserID, filter.Template); err != nil {
		return nil, 0, fmt.Errorf("count surveys: %w", err)
	}
	return surveys, total, nil
}

// ListTemplates returns system templates plus the user's own.
func (r *SurveyRepository) ListTemplates(ctx context.Context, userID string) ([]models.SurveySummary, error) {
	const query = `SELECT s.id, s.title, s.description, s.media_ref, s.status, s.is_template, s.ai_analysis, s.published_at, s.closed_at, s.user_id, s.created_at, s.updated_at,
(SELECT COUNT(*) FROM questions q WHERE q.survey_id = s.id) AS question_count
FROM surveys s WHERE s.is_template = TRUE AND (s.user_id IS NULL OR s.user_id = $1)
ORDER BY s.created_at DESC`
	var templates []models.SurveySummary
	if err := r.db.SelectContext(ctx, &templates, query, userID); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Delete removes the survey and every dependent row, innermost first.
func (r *SurveyRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete survey: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM answer_options WHERE answer_id IN (
			SELECT a.id FROM answers a JOIN responses r ON r.id = a.response_id WHERE r.survey_id = $1)`,
		`DELETE FROM matrix_answers WHERE answer_id IN (
			SELECT a.id FROM answers a JOIN responses r ON r.id = a.response_id WHERE r.survey_id = $1)`,
		`DELETE FROM answers WHERE response_id IN (SELECT id FROM responses WHERE survey_id = $1)`,
		`DELETE FROM responses WHERE survey_id = $1`,
		`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)`,
		`DELETE FROM matrix_rows WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)`,
		`DELETE FROM matrix_columns WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)`,
		`DELETE FROM questions WHERE survey_id = $1`,
		`DELETE FROM survey_settings WHERE survey_id = $1`,
		`DELETE FROM surveys WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete survey graph: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete survey: %w", err)
	}
	return nil
}

// MarkPublished moves a pending survey to published and stamps the time.
// Returns false when the survey was no longer pending.
func (r *SurveyRepository) MarkPublished(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET status = $1, published_at = $2, updated_at = $2 WHERE id = $3 AND status = $4`,
		models.SurveyStatusPublished, at, id, models.SurveyStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark survey published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark survey published: %w", err)
	}
	return affected == 1, nil
}

// MarkClosed moves a published survey to closed and stamps the time.
// Returns false when the survey was no longer published, which makes the
// close transition idempotent across concurrent sweeps and submissions.
func (r *SurveyRepository) MarkClosed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET status = $1, closed_at = $2, updated_at = $2 WHERE id = $3 AND status = $4`,
		models.SurveyStatusClosed, at, id, models.SurveyStatusPublished)
	if err != nil {
		return false, fmt.Errorf("mark survey closed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark survey closed: %w", err)
	}
	return affected == 1, nil
}

// SetOpenTime stamps the settings open time, used by the manual publish
// toggle.
func (r *SurveyRepository) SetOpenTime(ctx context.Context, surveyID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE survey_settings SET open_time = $1 WHERE survey_id = $2`, at, surveyID); err != nil {
		return fmt.Errorf("set open time: %w", err)
	}
	return nil
}

// SetAIAnalysis stores the generated analysis, only if none exists yet.
func (r *SurveyRepository) SetAIAnalysis(ctx context.Context, surveyID, analysis string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET ai_analysis = $1, updated_at = $2 WHERE id = $3 AND ai_analysis IS NULL`,
		analysis, time.Now().UTC(), surveyID); err != nil {
		return fmt.Errorf("set ai analysis: %w", err)
	}
	return nil
}

// ListSweepCandidates loads every non-terminal survey with the context
// the lifecycle sweep needs in one pass.
func (r *SurveyRepository) ListSweepCandidates(ctx context.Context) ([]models.SweepCandidate, error) {
	const query = `SELECT s.id, s.title, s.description, s.media_ref, s.status, s.is_template, s.ai_analysis, s.published_at, s.closed_at, s.user_id, s.created_at, s.updated_at,
st.survey_id AS st_survey_id, st.require_email, st.allow_multiple_responses, st.open_time, st.close_time, st.max_response, st.auto_close_condition, st.response_letter,
COALESCE(u.email, '') AS owner_email,
(SELECT COUNT(*) FROM responses r WHERE r.survey_id = s.id) AS response_count
FROM surveys s
JOIN survey_settings st ON st.survey_id = s.id
LEFT JOIN users u ON u.id = s.user_id
WHERE s.status IN ($1, $2) AND s.is_template = FALSE
ORDER BY s.created_at ASC`

	rows, err := r.db.QueryxContext(ctx, query, models.SurveyStatusPending, models.SurveyStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var candidates []models.SweepCandidate
	for rows.Next() {
		var row sweepRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan sweep candidate: %w", err)
		}
		candidates = append(candidates, row.toCandidate())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep candidates: %w", err)
	}
	return candidates, nil
}

// ListAnalysisBacklog returns closed, not-yet-analyzed surveys that have
// reached the minimum response count.
func (r *SurveyRepository) ListAnalysisBacklog(ctx context.Context, minResponses, limit int) ([]string, error) {
	const query = `SELECT s.id FROM surveys s
WHERE s.status = $1 AND s.ai_analysis IS NULL
AND (SELECT COUNT(*) FROM responses r WHERE r.survey_id = s.id) >= $2
ORDER BY s.closed_at ASC LIMIT $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.SurveyStatusClosed, minResponses, limit); err != nil {
		return nil, fmt.Errorf("list analysis backlog: %w", err)
	}
	return ids, nil
}

type sweepRow struct {
	models.Survey
	SettingsSurveyID       string                    `db:"st_survey_id"`
	RequireEmail           bool                      `db:"require_email"`
	AllowMultipleResponses bool                      `db:"allow_multiple_responses"`
	OpenTime               *time.Time                `db:"open_time"`
	CloseTime              *time.Time                `db:"close_time"`
	MaxResponse            *int                      `db:"max_response"`
	AutoCloseCondition     models.AutoCloseCondition `db:"auto_close_condition"`
	ResponseLetter         string                    `db:"response_letter"`
	OwnerEmail             string                    `db:"owner_email"`
	ResponseCount          int                       `db:"response_count"`
}

func (row sweepRow) toCandidate() models.SweepCandidate {
	return models.SweepCandidate{
		Survey: row.Survey,
		Settings: &models.SurveySettings{
			SurveyID:               row.SettingsSurveyID,
			RequireEmail:           row.RequireEmail,
			AllowMultipleResponses: row.AllowMultipleResponses,
			OpenTime:               row.OpenTime,
			CloseTime:              row.CloseTime,
			MaxResponse:            row.MaxResponse,
			AutoCloseCondition:     row.AutoCloseCondition,
			ResponseLetter:         row.ResponseLetter,
		},
		OwnerEmail:    row.OwnerEmail,
		ResponseCount: row.ResponseCount,
	}
}
