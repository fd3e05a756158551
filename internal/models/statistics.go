package models

// SurveyStatistics is the aggregate pushed to realtime subscribers and
// returned to the owner. Percentages always divide by TotalResponses,
// never by per-question answer counts.
type SurveyStatistics struct {
	SurveyID       string              `json:"survey_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         SurveyStatus        `json:"status"`
	AIAnalysis     *string             `json:"ai_analysis,omitempty"`
	TotalResponses int                 `json:"total_responses"`
	Questions      []QuestionStatistic `json:"questions"`
}

// QuestionStatistic carries the per-question summary; exactly one of the
// summary slices is populated depending on the question type.
type QuestionStatistic struct {
	QuestionID     string             `json:"question_id"`
	QuestionText   string             `json:"question_text"`
	Type           QuestionType       `json:"type"`
	TotalResponses int                `json:"total_responses"`
	Options        []OptionSummary    `json:"options,omitempty"`
	MatrixRows     []MatrixRowSummary `json:"matrix_rows,omitempty"`
	TextAnswers    []TextAnswerCount  `json:"text_answers,omitempty"`
}

// OptionSummary is the aggregate for one option of a choice question.
type OptionSummary struct {
	OptionText    string            `json:"option_text"`
	Count         int               `json:"count"`
	Percentage    int               `json:"percentage"`
	CustomAnswers []TextAnswerCount `json:"custom_answers,omitempty"`
}

// TextAnswerCount groups identical free-text values. Grouping is exact:
// case and whitespace sensitive.
type TextAnswerCount struct {
	Value      string `json:"value"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage,omitempty"`
}

// MatrixRowSummary aggregates one matrix row across all columns.
type MatrixRowSummary struct {
	RowLabel string              `json:"row_label"`
	Columns  []MatrixCellSummary `json:"columns"`
}

// MatrixCellSummary aggregates one (row, column) pair. For matrix_choice
// it is a count/percentage; for matrix_input it lists the entered values.
type MatrixCellSummary struct {
	ColumnLabel string   `json:"column_label"`
	Count       int      `json:"count"`
	Percentage  int      `json:"percentage,omitempty"`
	Answers     []string `json:"answers,omitempty"`
}

// OptionTally is a raw aggregation row: selections grouped by option and
// custom text.
type OptionTally struct {
	QuestionID string  `db:"question_id"`
	OptionID   string  `db:"option_id"`
	CustomText *string `db:"custom_text"`
	Count      int     `db:"count"`
}

// MatrixTally is a raw matrix-cell aggregation row.
type MatrixTally struct {
	QuestionID string  `db:"question_id"`
	RowID      string  `db:"row_id"`
	ColumnID   *string `db:"column_id"`
	InputValue *string `db:"input_value"`
}

// TextTally is a raw text-answer aggregation row.
type TextTally struct {
	QuestionID string `db:"question_id"`
	Value      string `db:"answer_text"`
	Count      int    `db:"count"`
}
