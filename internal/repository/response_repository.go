package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/survey-pulse-api/internal/models"
)

// ResponseRepository persists submissions and serves the aggregation
// reads the statistics engine runs.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates the repository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// CreateSubmission writes one response with all of its answers atomically
// and re-checks the response cap inside the same transaction: when the
// post-insert count reaches maxResponse and the survey is still
// published, the survey is closed before commit. Returns the post-insert
// count and whether this call performed the close.
func (r *ResponseRepository) CreateSubmission(ctx context.Context, response *models.Response, answers []models.Answer, maxResponse *int) (int, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin submission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now().UTC()
	}

	const responseQuery = `INSERT INTO responses (id, survey_id, user_id, user_email, ip_address, user_agent, submitted_at)
VALUES (:id, :survey_id, :user_id, :user_email, :ip_address, :user_agent, :submitted_at)`
	if _, err := tx.NamedExecContext(ctx, responseQuery, response); err != nil {
		return 0, false, fmt.Errorf("insert response: %w", err)
	}

	const answerQuery = `INSERT INTO answers (id, response_id, question_id, answer_text)
VALUES (:id, :response_id, :question_id, :answer_text)`
	const optionQuery = `INSERT INTO answer_options (id, answer_id, option_id, custom_text)
VALUES (:id, :answer_id, :option_id, :custom_text)`
	const cellQuery = `INSERT INTO matrix_answers (id, answer_id, row_id, column_id, input_value)
VALUES (:id, :answer_id, :row_id, :column_id, :input_value)`

	for i := range answers {
		answer := &answers[i]
		if answer.ID == "" {
			answer.ID = uuid.NewString()
		}
		answer.ResponseID = response.ID
		if _, err := tx.NamedExecContext(ctx, answerQuery, answer); err != nil {
			return 0, false, fmt.Errorf("insert answer: %w", err)
		}
		for j := range answer.Options {
			sel := &answer.Options[j]
			if sel.ID == "" {
				sel.ID = uuid.NewString()
			}
			sel.AnswerID = answer.ID
			if _, err := tx.NamedExecContext(ctx, optionQuery, sel); err != nil {
				return 0, false, fmt.Errorf("insert answer option: %w", err)
			}
		}
		for j := range answer.MatrixCells {
			cell := &answer.MatrixCells[j]
			if cell.ID == "" {
				cell.ID = uuid.NewString()
			}
			cell.AnswerID = answer.ID
			if _, err := tx.NamedExecContext(ctx, cellQuery, cell); err != nil {
				return 0, false, fmt.Errorf("insert matrix answer: %w", err)
			}
		}
	}

	var count int
	if err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM responses WHERE survey_id = $1", response.SurveyID); err != nil {
		return 0, false, fmt.Errorf("count responses: %w", err)
	}

	closed := false
	if maxResponse != nil && count >= *maxResponse {
		res, err := tx.ExecContext(ctx,
			`UPDATE surveys SET status = $1, closed_at = $2, updated_at = $2 WHERE id = $3 AND status = $4`,
			models.SurveyStatusClosed, time.Now().UTC(), response.SurveyID, models.SurveyStatusPublished)
		if err != nil {
			return 0, false, fmt.Errorf("close survey at cap: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, false, fmt.Errorf("close survey at cap: %w", err)
		}
		closed = affected == 1
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit submission: %w", err)
	}
	return count, closed, nil
}

// CountBySurvey returns the live response count.
func (r *ResponseRepository) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM responses WHERE survey_id = $1", surveyID); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return count, nil
}

// ExistsByEmail reports whether the email already submitted to a survey.
// This is a check-then-act guard, not a uniqueness constraint; see the
// submission service for the accepted race window.
func (r *ResponseRepository) ExistsByEmail(ctx context.Context, surveyID string, email string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM responses WHERE survey_id = $1 AND user_email = $2)",
		surveyID, email); err != nil {
		return false, fmt.Errorf("check duplicate response: %w", err)
	}
	return exists, nil
}

// GetByID returns one response row scoped to its survey.
func (r *ResponseRepository) GetByID(ctx context.Context, surveyID, responseID string) (*models.Response, error) {
	const query = `SELECT id, survey_id, user_id, user_email, ip_address, user_agent, submitted_at
FROM responses WHERE id = $1 AND survey_id = $2`
	var response models.Response
	if err := r.db.GetContext(ctx, &response, query, responseID, surveyID); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListBySurvey returns responses newest first.
func (r *ResponseRepository) ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error) {
	const query = `SELECT id, survey_id, user_id, user_email, ip_address, user_agent, submitted_at
FROM responses WHERE survey_id = $1 ORDER BY submitted_at DESC`
	var responses []models.Response
	if err := r.db.SelectContext(ctx, &responses, query, surveyID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// AnswersForResponses loads answers with their option selections and
// matrix cells for a set of responses.
func (r *ResponseRepository) AnswersForResponses(ctx context.Context, responseIDs []string) ([]models.Answer, error) {
	if len(responseIDs) == 0 {
		return nil, nil
	}

	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers,
		`SELECT id, response_id, question_id, answer_text FROM answers WHERE response_id = ANY($1)`,
		pq.Array(responseIDs)); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	if len(answers) == 0 {
		return answers, nil
	}

	answerIDs := make([]string, len(answers))
	index := make(map[string]*models.Answer, len(answers))
	for i := range answers {
		answerIDs[i] = answers[i].ID
		index[answers[i].ID] = &answers[i]
	}

	var selections []models.AnswerOption
	if err := r.db.SelectContext(ctx, &selections,
		`SELECT id, answer_id, option_id, custom_text FROM answer_options WHERE answer_id = ANY($1)`,
		pq.Array(answerIDs)); err != nil {
		return nil, fmt.Errorf("load answer options: %w", err)
	}
	for _, sel := range selections {
		if a, ok := index[sel.AnswerID]; ok {
			a.Options = append(a.Options, sel)
		}
	}

	var cells []models.MatrixAnswer
	if err := r.db.SelectContext(ctx, &cells,
		`SELECT id, answer_id, row_id, column_id, input_value FROM matrix_answers WHERE answer_id = ANY($1)`,
		pq.Array(answerIDs)); err != nil {
		return nil, fmt.Errorf("load matrix answers: %w", err)
	}
	for _, cell := range cells {
		if a, ok := index[cell.AnswerID]; ok {
			a.MatrixCells = append(a.MatrixCells, cell)
		}
	}

	return answers, nil
}

// Delete removes one response and its answer rows.
func (r *ResponseRepository) Delete(ctx context.Context, surveyID, responseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete response: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM answer_options WHERE answer_id IN (SELECT id FROM answers WHERE response_id = $1)`,
		`DELETE FROM matrix_answers WHERE answer_id IN (SELECT id FROM answers WHERE response_id = $1)`,
		`DELETE FROM answers WHERE response_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, responseID); err != nil {
			return fmt.Errorf("delete response answers: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM responses WHERE id = $1 AND survey_id = $2`, responseID, surveyID); err != nil {
		return fmt.Errorf("delete response: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete response: %w", err)
	}
	return nil
}

// OptionTallies groups option selections by (question, option, custom
// text) across a survey.
func (r *ResponseRepository) OptionTallies(ctx context.Context, surveyID string) ([]models.OptionTally, error) {
	const query = `SELECT a.question_id, ao.option_id, ao.custom_text, COUNT(*) AS count
FROM answer_options ao
JOIN answers a ON a.id = ao.answer_id
JOIN responses r ON r.id = a.response_id
WHERE r.survey_id = $1
GROUP BY a.question_id, ao.option_id, ao.custom_text`
	var tallies []models.OptionTally
	if err := r.db.SelectContext(ctx, &tallies, query, surveyID); err != nil {
		return nil, fmt.Errorf("aggregate option tallies: %w", err)
	}
	return tallies, nil
}

// MatrixTallies returns every matrix cell answered in a survey.
func (r *ResponseRepository) MatrixTallies(ctx context.Context, surveyID string) ([]models.MatrixTally, error) {
	const query = `SELECT a.question_id, ma.row_id, ma.column_id, ma.input_value
FROM matrix_answers ma
JOIN answers a ON a.id = ma.answer_id
JOIN responses r ON r.id = a.response_id
WHERE r.survey_id = $1`
	var tallies []models.MatrixTally
	if err := r.db.SelectContext(ctx, &tallies, query, surveyID); err != nil {
		return nil, fmt.Errorf("aggregate matrix tallies: %w", err)
	}
	return tallies, nil
}

// TextTallies groups text answers by exact value, most frequent first.
func (r *ResponseRepository) TextTallies(ctx context.Context, surveyID string) ([]models.TextTally, error) {
	const query = `SELECT a.question_id, a.answer_text, COUNT(*) AS count
FROM answers a
JOIN responses r ON r.id = a.response_id
WHERE r.survey_id = $1 AND a.answer_text IS NOT NULL AND a.answer_text <> ''
GROUP BY a.question_id, a.answer_text
ORDER BY count DESC`
	var tallies []models.TextTally
	if err := r.db.SelectContext(ctx, &tallies, query, surveyID); err != nil {
		return nil, fmt.Errorf("aggregate text tallies: %w", err)
	}
	return tallies, nil
}
