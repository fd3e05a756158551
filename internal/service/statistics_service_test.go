package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/internal/repository"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

type statsResponseStub struct {
	total   int
	options []models.OptionTally
	matrix  []models.MatrixTally
	texts   []models.TextTally
	calls   int
}

func (s *statsResponseStub) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	s.calls++
	return s.total, nil
}

func (s *statsResponseStub) OptionTallies(ctx context.Context, surveyID string) ([]models.OptionTally, error) {
	return s.options, nil
}

func (s *statsResponseStub) MatrixTallies(ctx context.Context, surveyID string) ([]models.MatrixTally, error) {
	return s.matrix, nil
}

func (s *statsResponseStub) TextTallies(ctx context.Context, surveyID string) ([]models.TextTally, error) {
	return s.texts, nil
}

type cacheStub struct {
	hit     *models.SurveyStatistics
	getErr  error
	setKeys []string
	setTTL  time.Duration
	deleted []string
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.hit != nil {
		*dest.(*models.SurveyStatistics) = *c.hit
		return nil
	}
	if c.getErr != nil {
		return c.getErr
	}
	return appErrors.ErrCacheMiss
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.setKeys = append(c.setKeys, key)
	c.setTTL = ttl
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

type cacheMetricsStub struct {
	outcomes []string
}

func (m *cacheMetricsStub) RecordCacheOutcome(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func statsDetail(questions ...models.Question) *models.SurveyDetail {
	return &models.SurveyDetail{
		Survey: models.Survey{
			ID:     "s1",
			Title:  "Coffee habits",
			Status: models.SurveyStatusPublished,
		},
		Questions: questions,
	}
}

func TestGetStatisticsServesCacheHit(t *testing.T) {
	cache := &cacheStub{hit: &models.SurveyStatistics{SurveyID: "s1", TotalResponses: 7}}
	responses := &statsResponseStub{}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, responses, cache, 0, nil, nil)

	stats, err := svc.GetStatistics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalResponses)
	assert.Zero(t, responses.calls)
}

func TestGetStatisticsComputesAndCachesOnMiss(t *testing.T) {
	cache := &cacheStub{}
	responses := &statsResponseStub{total: 2}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, responses, cache, time.Minute, nil, nil)

	stats, err := svc.GetStatistics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalResponses)
	assert.Equal(t, []string{repository.StatisticsKey("s1")}, cache.setKeys)
	assert.Equal(t, time.Minute, cache.setTTL)
}

func TestComputeUnknownSurvey(t *testing.T) {
	svc := NewStatisticsService(&submissionSurveyStub{err: errors.New("no rows")}, &statsResponseStub{}, &cacheStub{}, 0, nil, nil)

	_, err := svc.Compute(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComputeChoicePercentagesDivideByTotalResponses(t *testing.T) {
	question := models.Question{
		ID:   "q1",
		Type: models.QuestionMultipleChoice,
		Options: []models.Option{
			{ID: "a", Text: "Espresso"},
			{ID: "b", Text: "Filter"},
			{ID: "c", Text: "None"},
		},
	}
	responses := &statsResponseStub{
		total: 3,
		options: []models.OptionTally{
			{QuestionID: "q1", OptionID: "a", Count: 1},
			{QuestionID: "q1", OptionID: "b", Count: 2},
		},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(question)}, responses, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stats.Questions, 1)
	options := stats.Questions[0].Options
	require.Len(t, options, 3)
	assert.Equal(t, 33, options[0].Percentage)
	assert.Equal(t, 67, options[1].Percentage)
	assert.Equal(t, 0, options[2].Count)
	assert.Equal(t, 0, options[2].Percentage)
	assert.Equal(t, 3, stats.Questions[0].TotalResponses)
}

func TestComputeZeroResponsesYieldsZeroPercentages(t *testing.T) {
	question := models.Question{
		ID:      "q1",
		Type:    models.QuestionMultipleChoice,
		Options: []models.Option{{ID: "a", Text: "Espresso"}},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(question)}, &statsResponseStub{}, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalResponses)
	assert.Equal(t, 0, stats.Questions[0].Options[0].Percentage)
}

func TestComputeGroupsCustomAnswersWithEmptyLabel(t *testing.T) {
	question := models.Question{
		ID:   "q1",
		Type: models.QuestionCheckbox,
		Options: []models.Option{
			{ID: "a", Text: "Espresso"},
			{ID: "other", Text: "Other", IsOther: true},
		},
	}
	empty := ""
	latte := "latte"
	responses := &statsResponseStub{
		total: 4,
		options: []models.OptionTally{
			{QuestionID: "q1", OptionID: "other", CustomText: &latte, Count: 3},
			{QuestionID: "q1", OptionID: "other", CustomText: &empty, Count: 1},
		},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(question)}, responses, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)
	custom := stats.Questions[0].Options[1].CustomAnswers
	require.Len(t, custom, 2)
	assert.Equal(t, "latte", custom[0].Value)
	assert.Equal(t, 3, custom[0].Count)
	assert.Equal(t, EmptyAnswerLabel, custom[1].Value)
	assert.Equal(t, 1, custom[1].Count)
}

func TestComputeMatrixChoiceCountsAndInputValues(t *testing.T) {
	col1 := "c1"
	col2 := "c2"
	fast := "fast"
	choice := models.Question{
		ID:            "q1",
		Type:          models.QuestionMatrixChoice,
		MatrixRows:    []models.MatrixRow{{ID: "r1", Label: "Morning"}},
		MatrixColumns: []models.MatrixColumn{{ID: "c1", Label: "Often"}, {ID: "c2", Label: "Never"}},
	}
	input := models.Question{
		ID:            "q2",
		Type:          models.QuestionMatrixInput,
		MatrixRows:    []models.MatrixRow{{ID: "r1", Label: "Delivery"}},
		MatrixColumns: []models.MatrixColumn{{ID: "c1", Label: "Comment"}},
	}
	responses := &statsResponseStub{
		total: 2,
		matrix: []models.MatrixTally{
			{QuestionID: "q1", RowID: "r1", ColumnID: &col1},
			{QuestionID: "q1", RowID: "r1", ColumnID: &col1},
			{QuestionID: "q1", RowID: "r1", ColumnID: &col2},
			{QuestionID: "q2", RowID: "r1", ColumnID: &col1, InputValue: &fast},
		},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(choice, input)}, responses, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)

	choiceRow := stats.Questions[0].MatrixRows[0]
	assert.Equal(t, 2, choiceRow.Columns[0].Count)
	assert.Equal(t, 100, choiceRow.Columns[0].Percentage)
	assert.Equal(t, 1, choiceRow.Columns[1].Count)
	assert.Equal(t, 50, choiceRow.Columns[1].Percentage)

	inputRow := stats.Questions[1].MatrixRows[0]
	assert.Equal(t, []string{"fast"}, inputRow.Columns[0].Answers)
	assert.Equal(t, 1, inputRow.Columns[0].Count)
}

func TestComputeMatrixInputBlankValuesGetEmptyLabel(t *testing.T) {
	col := "c1"
	blank := ""
	question := models.Question{
		ID:            "q1",
		Type:          models.QuestionMatrixInput,
		MatrixRows:    []models.MatrixRow{{ID: "r1", Label: "Delivery"}},
		MatrixColumns: []models.MatrixColumn{{ID: "c1", Label: "Comment"}},
	}
	responses := &statsResponseStub{
		total: 2,
		matrix: []models.MatrixTally{
			{QuestionID: "q1", RowID: "r1", ColumnID: &col, InputValue: &blank},
			{QuestionID: "q1", RowID: "r1", ColumnID: &col, InputValue: nil},
		},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(question)}, responses, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)
	cell := stats.Questions[0].MatrixRows[0].Columns[0]
	assert.Equal(t, 2, cell.Count)
	assert.Equal(t, []string{EmptyAnswerLabel, EmptyAnswerLabel}, cell.Answers)
}

func TestGetStatisticsRecordsCacheOutcomes(t *testing.T) {
	metrics := &cacheMetricsStub{}
	hit := &cacheStub{hit: &models.SurveyStatistics{SurveyID: "s1"}}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, &statsResponseStub{}, hit, 0, metrics, nil)

	_, err := svc.GetStatistics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hit"}, metrics.outcomes)

	metrics.outcomes = nil
	svc = NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, &statsResponseStub{}, &cacheStub{}, 0, metrics, nil)

	_, err = svc.GetStatistics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"miss"}, metrics.outcomes)
}

func TestComputeTextAnswers(t *testing.T) {
	question := models.Question{ID: "q1", Type: models.QuestionLongText}
	responses := &statsResponseStub{
		total: 4,
		texts: []models.TextTally{
			{QuestionID: "q1", Value: "good", Count: 3},
			{QuestionID: "q1", Value: "Good", Count: 1},
		},
	}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail(question)}, responses, &cacheStub{}, 0, nil, nil)

	stats, err := svc.Compute(context.Background(), "s1")
	require.NoError(t, err)
	answers := stats.Questions[0].TextAnswers
	require.Len(t, answers, 2)
	assert.Equal(t, 75, answers[0].Percentage)
	assert.Equal(t, 25, answers[1].Percentage)
	assert.Equal(t, 4, stats.Questions[0].TotalResponses)
}

func TestRecomputeRefreshesCache(t *testing.T) {
	cache := &cacheStub{hit: &models.SurveyStatistics{SurveyID: "s1", TotalResponses: 1}}
	responses := &statsResponseStub{total: 5}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, responses, cache, 0, nil, nil)

	stats, err := svc.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalResponses)
	assert.Equal(t, []string{repository.StatisticsKey("s1")}, cache.setKeys)
}

func TestInvalidateDropsCachedAggregate(t *testing.T) {
	cache := &cacheStub{}
	svc := NewStatisticsService(&submissionSurveyStub{detail: statsDetail()}, &statsResponseStub{}, cache, 0, nil, nil)

	svc.Invalidate(context.Background(), "s1")
	assert.Equal(t, []string{repository.StatisticsKey("s1")}, cache.deleted)
}
