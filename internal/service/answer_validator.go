package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

// ValidateAnswers checks one submitted answer set against the survey's
// question graph. It has no side effects and collects the full rejection
// list so the caller can report every problem at once; within a single
// question the first failing check wins.
func ValidateAnswers(questions []models.Question, answers []models.SubmittedAnswer) []appErrors.FieldError {
	submitted := make(map[string]models.SubmittedAnswer, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = a
	}

	var rejections []appErrors.FieldError
	for _, question := range questions {
		answer, ok := submitted[question.ID]
		if !ok {
			if question.IsRequired {
				rejections = append(rejections, appErrors.FieldError{
					Field:   question.ID,
					Message: fmt.Sprintf("question %s is required", question.ID),
				})
			}
			continue
		}

		switch question.Type {
		case models.QuestionMultipleChoice:
			if reject := validateMultipleChoice(question, answer); reject != nil {
				rejections = append(rejections, *reject)
			}
		case models.QuestionCheckbox:
			if reject := validateCheckbox(question, answer); reject != nil {
				rejections = append(rejections, *reject)
			}
		case models.QuestionMatrixChoice, models.QuestionMatrixInput:
			if reject := validateMatrix(question, answer); reject != nil {
				rejections = append(rejections, *reject)
			}
		case models.QuestionShortText, models.QuestionLongText:
			// Any non-empty string is accepted; length limits are not
			// enforced.
		}
	}
	return rejections
}

func validateMultipleChoice(question models.Question, answer models.SubmittedAnswer) *appErrors.FieldError {
	if strings.Contains(answer.Answer, ",") {
		return &appErrors.FieldError{
			Field:   question.ID,
			Message: fmt.Sprintf("question %s accepts a single option", question.ID),
		}
	}
	if findOption(question.Options, answer.Answer) == nil {
		return &appErrors.FieldError{
			Field:   question.ID,
			Message: fmt.Sprintf("invalid option for question %s", question.ID),
		}
	}
	return nil
}

func validateCheckbox(question models.Question, answer models.SubmittedAnswer) *appErrors.FieldError {
	for _, optionID := range strings.Split(answer.Answer, ",") {
		if findOption(question.Options, optionID) == nil {
			return &appErrors.FieldError{
				Field:   question.ID,
				Message: fmt.Sprintf("invalid checkbox options for question %s", question.ID),
			}
		}
	}
	return nil
}

func validateMatrix(question models.Question, answer models.SubmittedAnswer) *appErrors.FieldError {
	rows := make(map[string]struct{}, len(question.MatrixRows))
	for _, row := range question.MatrixRows {
		rows[row.ID] = struct{}{}
	}
	columns := make(map[string]struct{}, len(question.MatrixColumns))
	for _, col := range question.MatrixColumns {
		columns[col.ID] = struct{}{}
	}

	for _, cell := range answer.Matrix {
		if _, ok := rows[cell.RowID]; !ok {
			return &appErrors.FieldError{
				Field:   question.ID,
				Message: fmt.Sprintf("invalid matrix row for question %s", question.ID),
			}
		}
		if question.Type == models.QuestionMatrixChoice {
			if cell.ColumnID == nil {
				return &appErrors.FieldError{
					Field:   question.ID,
					Message: fmt.Sprintf("matrix column is required for question %s", question.ID),
				}
			}
		}
		if cell.ColumnID != nil {
			if _, ok := columns[*cell.ColumnID]; !ok {
				return &appErrors.FieldError{
					Field:   question.ID,
					Message: fmt.Sprintf("invalid matrix column for question %s", question.ID),
				}
			}
		}
	}
	return nil
}

// BuildAnswers converts a validated submission into persistable answer
// rows. Choice answers become option selections (with custom text
// defaulting to empty for "other" options), matrix answers become cells,
// everything else stores the raw text.
func BuildAnswers(questions []models.Question, answers []models.SubmittedAnswer) []models.Answer {
	index := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	built := make([]models.Answer, 0, len(answers))
	for _, submitted := range answers {
		question, ok := index[submitted.QuestionID]
		if !ok {
			continue
		}

		answer := models.Answer{QuestionID: question.ID}
		switch {
		case question.Type == models.QuestionMultipleChoice:
			custom := customTextFor(question, []string{submitted.Answer}, submitted.CustomText)
			answer.Options = []models.AnswerOption{{OptionID: submitted.Answer, CustomText: custom}}
		case question.Type == models.QuestionCheckbox:
			optionIDs := strings.Split(submitted.Answer, ",")
			custom := customTextFor(question, optionIDs, submitted.CustomText)
			for _, optionID := range optionIDs {
				answer.Options = append(answer.Options, models.AnswerOption{OptionID: optionID, CustomText: custom})
			}
		case question.Type.IsMatrix():
			for _, cell := range submitted.Matrix {
				value := cell.Value
				if question.Type == models.QuestionMatrixChoice {
					value = nil
				}
				answer.MatrixCells = append(answer.MatrixCells, models.MatrixAnswer{
					RowID:      cell.RowID,
					ColumnID:   cell.ColumnID,
					InputValue: value,
				})
			}
		default:
			text := submitted.Answer
			answer.AnswerText = &text
		}
		built = append(built, answer)
	}
	return built
}

// customTextFor coerces an absent custom text to the empty string when
// any selected option is flagged "other"; otherwise it passes through.
func customTextFor(question models.Question, selectedIDs []string, custom *string) *string {
	if custom != nil {
		return custom
	}
	for _, id := range selectedIDs {
		if opt := findOption(question.Options, id); opt != nil && opt.IsOther {
			empty := ""
			return &empty
		}
	}
	return nil
}

func findOption(options []models.Option, id string) *models.Option {
	for i := range options {
		if options[i].ID == id {
			return &options[i]
		}
	}
	return nil
}
