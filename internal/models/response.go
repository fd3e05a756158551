package models

import "time"

// Response is one respondent's complete submission to a survey. Rows are
// immutable once written; only the owning user may delete one.
type Response struct {
	ID          string    `db:"id" json:"id"`
	SurveyID    string    `db:"survey_id" json:"survey_id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	UserEmail   *string   `db:"user_email" json:"user_email,omitempty"`
	IPAddress   *string   `db:"ip_address" json:"-"`
	UserAgent   *string   `db:"user_agent" json:"-"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// Answer is one respondent's reply to one question. Text types carry
// AnswerText; choice types own AnswerOption rows; matrix types own
// MatrixAnswer cells.
type Answer struct {
	ID         string  `db:"id" json:"id"`
	ResponseID string  `db:"response_id" json:"response_id"`
	QuestionID string  `db:"question_id" json:"question_id"`
	AnswerText *string `db:"answer_text" json:"answer_text,omitempty"`

	Options     []AnswerOption `json:"options,omitempty"`
	MatrixCells []MatrixAnswer `json:"matrix_cells,omitempty"`
}

// AnswerOption records one chosen option, with free text for "other".
type AnswerOption struct {
	ID         string  `db:"id" json:"id"`
	AnswerID   string  `db:"answer_id" json:"answer_id"`
	OptionID   string  `db:"option_id" json:"option_id"`
	CustomText *string `db:"custom_text" json:"custom_text,omitempty"`
}

// MatrixAnswer records one grid cell. ColumnID is required for
// matrix_choice; InputValue only carries meaning for matrix_input.
type MatrixAnswer struct {
	ID         string  `db:"id" json:"id"`
	AnswerID   string  `db:"answer_id" json:"answer_id"`
	RowID      string  `db:"row_id" json:"row_id"`
	ColumnID   *string `db:"column_id" json:"column_id,omitempty"`
	InputValue *string `db:"input_value" json:"input_value,omitempty"`
}

// SubmittedAnswer is the inbound payload for one question. Choice answers
// arrive as an option id (comma-delimited list for checkbox); matrix
// answers arrive as cells.
type SubmittedAnswer struct {
	QuestionID string          `json:"questionId"`
	Answer     string          `json:"answer"`
	CustomText *string         `json:"customText,omitempty"`
	Matrix     []SubmittedCell `json:"matrix,omitempty"`
}

// SubmittedCell is one inbound matrix grid cell.
type SubmittedCell struct {
	RowID    string  `json:"rowId"`
	ColumnID *string `json:"columnId,omitempty"`
	Value    *string `json:"value,omitempty"`
}

// ResponseDetail is an owner-facing view of one response with answers
// rendered per question type.
type ResponseDetail struct {
	ResponseID  string            `json:"response_id"`
	UserEmail   *string           `json:"user_email,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Answers     []FormattedAnswer `json:"answers"`
}

// FormattedAnswer renders one answer for display: a string for text and
// multiple choice, a string list for checkbox, cell objects for matrix.
type FormattedAnswer struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	Type         QuestionType `json:"type"`
	Answer       interface{}  `json:"answer"`
}

// MatrixCellView is the display form of one matrix answer cell.
type MatrixCellView struct {
	Row    string `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value,omitempty"`
}
