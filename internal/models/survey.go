package models

import "time"

// SurveyStatus is the survey lifecycle state. Transitions are monotonic:
// PENDING -> PUBLISHED -> CLOSED, never skipping and never reopening.
type SurveyStatus string

const (
	SurveyStatusPending   SurveyStatus = "PENDING"
	SurveyStatusPublished SurveyStatus = "PUBLISHED"
	SurveyStatusClosed    SurveyStatus = "CLOSED"
)

// AutoCloseCondition selects which trigger closes a published survey.
// Manual mode still honours closeTime and maxResponse as failsafes.
type AutoCloseCondition string

const (
	AutoCloseManual     AutoCloseCondition = "manual"
	AutoCloseByTime     AutoCloseCondition = "by_time"
	AutoCloseByResponse AutoCloseCondition = "by_response"
)

// Survey represents a persisted survey row.
type Survey struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	MediaRef    *string      `db:"media_ref" json:"media_ref,omitempty"`
	Status      SurveyStatus `db:"status" json:"status"`
	IsTemplate  bool         `db:"is_template" json:"is_template"`
	AIAnalysis  *string      `db:"ai_analysis" json:"ai_analysis,omitempty"`
	PublishedAt *time.Time   `db:"published_at" json:"published_at,omitempty"`
	ClosedAt    *time.Time   `db:"closed_at" json:"closed_at,omitempty"`
	UserID      *string      `db:"user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// SurveySettings is the one-to-one settings row created with every survey.
type SurveySettings struct {
	SurveyID               string             `db:"survey_id" json:"survey_id"`
	RequireEmail           bool               `db:"require_email" json:"require_email"`
	AllowMultipleResponses bool               `db:"allow_multiple_responses" json:"allow_multiple_responses"`
	OpenTime               *time.Time         `db:"open_time" json:"open_time,omitempty"`
	CloseTime              *time.Time         `db:"close_time" json:"close_time,omitempty"`
	MaxResponse            *int               `db:"max_response" json:"max_response,omitempty"`
	AutoCloseCondition     AutoCloseCondition `db:"auto_close_condition" json:"auto_close_condition"`
	ResponseLetter         string             `db:"response_letter" json:"response_letter"`
}

// SurveyDetail bundles a survey with its settings and question graph.
type SurveyDetail struct {
	Survey
	Settings  *SurveySettings `json:"settings,omitempty"`
	Questions []Question      `json:"questions,omitempty"`
}

// SurveySummary is a list-view row. Survey listings carry the live
// response count; template listings carry the question count instead.
type SurveySummary struct {
	Survey
	Settings      *SurveySettings `json:"settings,omitempty"`
	ResponseCount int             `db:"response_count" json:"response_count"`
	QuestionCount int             `db:"question_count" json:"question_count,omitempty"`
}

// SweepCandidate is what the lifecycle sweep loads for each non-terminal
// survey: the survey, its settings, owner contact and live count.
type SweepCandidate struct {
	Survey        Survey
	Settings      *SurveySettings
	OwnerEmail    string
	ResponseCount int
}

// SurveyFilter narrows owner survey listings.
type SurveyFilter struct {
	UserID   string
	Template bool
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
