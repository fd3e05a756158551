package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/internal/repository"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

// EmptyAnswerLabel stands in for values submitted as the empty string,
// which happens when an "other" option is picked without text or a
// matrix input cell is answered blank.
const EmptyAnswerLabel = "[Empty]"

type statisticsSurveyStore interface {
	GetDetail(ctx context.Context, id string) (*models.SurveyDetail, error)
}

type statisticsResponseStore interface {
	CountBySurvey(ctx context.Context, surveyID string) (int, error)
	OptionTallies(ctx context.Context, surveyID string) ([]models.OptionTally, error)
	MatrixTallies(ctx context.Context, surveyID string) ([]models.MatrixTally, error)
	TextTallies(ctx context.Context, surveyID string) ([]models.TextTally, error)
}

type statisticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type statisticsMetrics interface {
	RecordCacheOutcome(outcome string)
}

// StatisticsService aggregates responses into per-question summaries.
// Reads go through a short-TTL cache; writes to the cache never fail a
// request, a failed Set just means the next read recomputes.
type StatisticsService struct {
	surveys   statisticsSurveyStore
	responses statisticsResponseStore
	cache     statisticsCache
	cacheTTL  time.Duration
	metrics   statisticsMetrics
	logger    *zap.Logger
}

// NewStatisticsService wires the aggregator. metrics may be nil.
func NewStatisticsService(surveys statisticsSurveyStore, responses statisticsResponseStore, cache statisticsCache, cacheTTL time.Duration, metrics statisticsMetrics, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &StatisticsService{
		surveys:   surveys,
		responses: responses,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// GetStatistics returns the survey's aggregate, from cache when fresh.
func (s *StatisticsService) GetStatistics(ctx context.Context, surveyID string) (*models.SurveyStatistics, error) {
	key := repository.StatisticsKey(surveyID)

	var cached models.SurveyStatistics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.recordCacheOutcome("hit")
		return &cached, nil
	} else if appErrors.FromError(err).Code != appErrors.ErrCacheMiss.Code {
		s.logger.Warn("statistics cache read failed", zap.String("survey_id", surveyID), zap.Error(err))
	}
	s.recordCacheOutcome("miss")

	stats, err := s.Compute(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("survey_id", surveyID), zap.Error(err))
	}
	return stats, nil
}

// Recompute rebuilds the aggregate bypassing the cache and refreshes the
// cached copy. Used after each admitted submission so realtime pushes
// carry current numbers.
func (s *StatisticsService) Recompute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error) {
	stats, err := s.Compute(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	key := repository.StatisticsKey(surveyID)
	if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("survey_id", surveyID), zap.Error(err))
	}
	return stats, nil
}

func (s *StatisticsService) recordCacheOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOutcome(outcome)
	}
}

// Invalidate drops the cached aggregate for a survey.
func (s *StatisticsService) Invalidate(ctx context.Context, surveyID string) {
	if err := s.cache.Delete(ctx, repository.StatisticsKey(surveyID)); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.String("survey_id", surveyID), zap.Error(err))
	}
}

// Compute aggregates straight from the database.
func (s *StatisticsService) Compute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error) {
	detail, err := s.surveys.GetDetail(ctx, surveyID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}

	total, err := s.responses.CountBySurvey(ctx, surveyID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	optionTallies, err := s.responses.OptionTallies(ctx, surveyID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	matrixTallies, err := s.responses.MatrixTallies(ctx, surveyID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	textTallies, err := s.responses.TextTallies(ctx, surveyID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	stats := &models.SurveyStatistics{
		SurveyID:       detail.ID,
		Title:          detail.Title,
		Description:    detail.Description,
		Status:         detail.Status,
		AIAnalysis:     detail.AIAnalysis,
		TotalResponses: total,
		Questions:      make([]models.QuestionStatistic, 0, len(detail.Questions)),
	}

	for _, question := range detail.Questions {
		qs := models.QuestionStatistic{
			QuestionID:   question.ID,
			QuestionText: question.Text,
			Type:         question.Type,
		}
		switch {
		case question.Type.IsChoice():
			qs.Options, qs.TotalResponses = summarizeOptions(question, optionTallies, total)
		case question.Type.IsMatrix():
			qs.MatrixRows, qs.TotalResponses = summarizeMatrix(question, matrixTallies, total)
		default:
			qs.TextAnswers, qs.TotalResponses = summarizeText(question, textTallies, total)
		}
		stats.Questions = append(stats.Questions, qs)
	}

	return stats, nil
}

func summarizeOptions(question models.Question, tallies []models.OptionTally, total int) ([]models.OptionSummary, int) {
	counts := make(map[string]int, len(question.Options))
	custom := make(map[string]map[string]int)
	answered := 0

	for _, tally := range tallies {
		if tally.QuestionID != question.ID {
			continue
		}
		counts[tally.OptionID] += tally.Count
		answered += tally.Count
		if tally.CustomText != nil {
			value := *tally.CustomText
			if value == "" {
				value = EmptyAnswerLabel
			}
			if custom[tally.OptionID] == nil {
				custom[tally.OptionID] = make(map[string]int)
			}
			custom[tally.OptionID][value] += tally.Count
		}
	}

	summaries := make([]models.OptionSummary, 0, len(question.Options))
	for _, option := range question.Options {
		summary := models.OptionSummary{
			OptionText: option.Text,
			Count:      counts[option.ID],
			Percentage: percentage(counts[option.ID], total),
		}
		if option.IsOther {
			summary.CustomAnswers = sortedTextCounts(custom[option.ID], 0)
		}
		summaries = append(summaries, summary)
	}
	return summaries, answered
}

func summarizeMatrix(question models.Question, tallies []models.MatrixTally, total int) ([]models.MatrixRowSummary, int) {
	type cellKey struct{ rowID, columnID string }
	counts := make(map[cellKey]int)
	inputs := make(map[cellKey][]string)
	answered := 0

	for _, tally := range tallies {
		if tally.QuestionID != question.ID || tally.ColumnID == nil {
			continue
		}
		key := cellKey{rowID: tally.RowID, columnID: *tally.ColumnID}
		answered++
		if question.Type == models.QuestionMatrixInput {
			value := EmptyAnswerLabel
			if tally.InputValue != nil && *tally.InputValue != "" {
				value = *tally.InputValue
			}
			inputs[key] = append(inputs[key], value)
			continue
		}
		counts[key]++
	}

	rows := make([]models.MatrixRowSummary, 0, len(question.MatrixRows))
	for _, row := range question.MatrixRows {
		summary := models.MatrixRowSummary{
			RowLabel: row.Label,
			Columns:  make([]models.MatrixCellSummary, 0, len(question.MatrixColumns)),
		}
		for _, column := range question.MatrixColumns {
			key := cellKey{rowID: row.ID, columnID: column.ID}
			cell := models.MatrixCellSummary{ColumnLabel: column.Label}
			if question.Type == models.QuestionMatrixInput {
				cell.Answers = inputs[key]
				cell.Count = len(inputs[key])
			} else {
				cell.Count = counts[key]
				cell.Percentage = percentage(counts[key], total)
			}
			summary.Columns = append(summary.Columns, cell)
		}
		rows = append(rows, summary)
	}
	return rows, answered
}

func summarizeText(question models.Question, tallies []models.TextTally, total int) ([]models.TextAnswerCount, int) {
	answered := 0
	var answers []models.TextAnswerCount
	for _, tally := range tallies {
		if tally.QuestionID != question.ID {
			continue
		}
		answered += tally.Count
		answers = append(answers, models.TextAnswerCount{
			Value:      tally.Value,
			Count:      tally.Count,
			Percentage: percentage(tally.Count, total),
		})
	}
	return answers, answered
}

func sortedTextCounts(values map[string]int, total int) []models.TextAnswerCount {
	if len(values) == 0 {
		return nil
	}
	result := make([]models.TextAnswerCount, 0, len(values))
	for value, count := range values {
		entry := models.TextAnswerCount{Value: value, Count: count}
		if total > 0 {
			entry.Percentage = percentage(count, total)
		}
		result = append(result, entry)
	}
	// Most frequent first, ties by value for deterministic output.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	return result
}

// percentage is the rounded share of total, 0 when nothing was counted.
func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
