package models

// QuestionType is the closed set of supported question variants. The
// validator and the statistics aggregator both dispatch on it.
type QuestionType string

const (
	QuestionShortText      QuestionType = "short_text"
	QuestionLongText       QuestionType = "long_text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionMatrixChoice   QuestionType = "matrix_choice"
	QuestionMatrixInput    QuestionType = "matrix_input"
)

// IsChoice reports whether the type stores answers as option selections.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionCheckbox
}

// IsMatrix reports whether the type stores answers as row/column cells.
func (t QuestionType) IsMatrix() bool {
	return t == QuestionMatrixChoice || t == QuestionMatrixInput
}

// Question belongs to exactly one survey. Order defines the display and
// validation sequence; it is unique per survey but not necessarily
// contiguous.
type Question struct {
	ID         string       `db:"id" json:"id"`
	SurveyID   string       `db:"survey_id" json:"survey_id"`
	Text       string       `db:"question_text" json:"question_text"`
	MediaRef   *string      `db:"media_ref" json:"media_ref,omitempty"`
	Type       QuestionType `db:"type" json:"type"`
	IsRequired bool         `db:"is_required" json:"is_required"`
	Order      int          `db:"ord" json:"order"`

	Options       []Option       `json:"options,omitempty"`
	MatrixRows    []MatrixRow    `json:"matrix_rows,omitempty"`
	MatrixColumns []MatrixColumn `json:"matrix_columns,omitempty"`
}

// Option is a selectable choice attached to a choice-type question. At
// most one option per question being marked IsOther is a convention, not
// an enforced constraint.
type Option struct {
	ID         string  `db:"id" json:"id"`
	QuestionID string  `db:"question_id" json:"question_id"`
	Text       string  `db:"option_text" json:"option_text"`
	MediaRef   *string `db:"media_ref" json:"media_ref,omitempty"`
	IsOther    bool    `db:"is_other" json:"is_other"`
}

// MatrixRow is one row of a matrix question grid.
type MatrixRow struct {
	ID         string `db:"id" json:"id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Label      string `db:"label" json:"label"`
	Order      int    `db:"ord" json:"order"`
}

// MatrixColumn is one column of a matrix question grid.
type MatrixColumn struct {
	ID         string `db:"id" json:"id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Label      string `db:"label" json:"label"`
	Order      int    `db:"ord" json:"order"`
}
