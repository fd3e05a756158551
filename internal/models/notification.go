package models

import "time"

// SurveyNotice is the denormalized snapshot handed to the notification
// collaborator. It is assembled once per transition so channel and owner
// messages reflect the same state.
type SurveyNotice struct {
	SurveyID      string
	Title         string
	Description   string
	CreatorEmail  string
	PublishedAt   *time.Time
	CloseAt       *time.Time
	ResponseCount int
	MaxResponse   *int
}
