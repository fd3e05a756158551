package service

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
)

type analysisStoreStub struct {
	survey  *models.Survey
	stored  map[string]string
	backlog []string
}

func (s *analysisStoreStub) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	return s.survey, nil
}

func (s *analysisStoreStub) SetAIAnalysis(ctx context.Context, surveyID, analysis string) error {
	if s.stored == nil {
		s.stored = make(map[string]string)
	}
	s.stored[surveyID] = analysis
	return nil
}

func (s *analysisStoreStub) ListAnalysisBacklog(ctx context.Context, minResponses, limit int) ([]string, error) {
	return s.backlog, nil
}

type computeStub struct {
	stats *models.SurveyStatistics
	calls int
}

func (s *computeStub) Compute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error) {
	s.calls++
	return s.stats, nil
}

type chatStub struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (s *chatStub) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func newAnalysisFixture(survey *models.Survey, total int, chat *chatStub) (*AnalysisService, *analysisStoreStub, *computeStub) {
	store := &analysisStoreStub{survey: survey}
	stats := &computeStub{stats: &models.SurveyStatistics{
		SurveyID:       survey.ID,
		Title:          survey.Title,
		TotalResponses: total,
	}}
	svc := NewAnalysisService(config.AIConfig{Enabled: true, Model: "gpt-4o-mini", MaxTokens: 800}, store, stats, nil)
	svc.client = chat
	return svc, store, stats
}

func TestAnalyzeStoresGeneratedSummary(t *testing.T) {
	survey := &models.Survey{ID: "s1", Title: "Coffee habits", Status: models.SurveyStatusClosed}
	chat := &chatStub{content: "  Most respondents drink daily.  "}
	svc, store, _ := newAnalysisFixture(survey, 25, chat)

	require.NoError(t, svc.Analyze(context.Background(), "s1"))
	assert.Equal(t, "Most respondents drink daily.", store.stored["s1"])
	assert.Equal(t, "gpt-4o-mini", chat.lastReq.Model)
	require.Len(t, chat.lastReq.Messages, 2)
	assert.Contains(t, chat.lastReq.Messages[1].Content, "Coffee habits")
}

func TestAnalyzeSkipsOpenSurvey(t *testing.T) {
	survey := &models.Survey{ID: "s1", Status: models.SurveyStatusPublished}
	svc, store, stats := newAnalysisFixture(survey, 25, &chatStub{content: "summary"})

	require.NoError(t, svc.Analyze(context.Background(), "s1"))
	assert.Empty(t, store.stored)
	assert.Zero(t, stats.calls)
}

func TestAnalyzeSkipsAlreadyAnalyzedSurvey(t *testing.T) {
	existing := "old summary"
	survey := &models.Survey{ID: "s1", Status: models.SurveyStatusClosed, AIAnalysis: &existing}
	svc, store, _ := newAnalysisFixture(survey, 25, &chatStub{content: "new summary"})

	require.NoError(t, svc.Analyze(context.Background(), "s1"))
	assert.Empty(t, store.stored)
}

func TestAnalyzeSkipsSmallSamples(t *testing.T) {
	survey := &models.Survey{ID: "s1", Status: models.SurveyStatusClosed}
	svc, store, _ := newAnalysisFixture(survey, minAnalysisResponses-1, &chatStub{content: "summary"})

	require.NoError(t, svc.Analyze(context.Background(), "s1"))
	assert.Empty(t, store.stored)
}

func TestAnalyzeRejectsEmptyCompletion(t *testing.T) {
	survey := &models.Survey{ID: "s1", Status: models.SurveyStatusClosed}
	svc, store, _ := newAnalysisFixture(survey, 25, &chatStub{content: "   "})

	err := svc.Analyze(context.Background(), "s1")
	require.Error(t, err)
	assert.Empty(t, store.stored)
}

func TestBuildAnalysisPromptCapsFreeText(t *testing.T) {
	stats := &models.SurveyStatistics{
		Title:          "Coffee habits",
		TotalResponses: 40,
		Questions: []models.QuestionStatistic{
			{QuestionText: "Anything else?", Type: models.QuestionLongText},
		},
	}
	for i := 0; i < 25; i++ {
		stats.Questions[0].TextAnswers = append(stats.Questions[0].TextAnswers,
			models.TextAnswerCount{Value: strings.Repeat("a", i+1), Count: 1})
	}

	prompt := BuildAnalysisPrompt(stats)
	assert.Contains(t, prompt, "Survey: Coffee habits")
	assert.Contains(t, prompt, "Total responses: 40")
	assert.Contains(t, prompt, "and 5 more distinct answers")
}

func TestBuildAnalysisPromptRendersOptionBreakdown(t *testing.T) {
	stats := &models.SurveyStatistics{
		Title:          "Coffee habits",
		TotalResponses: 10,
		Questions: []models.QuestionStatistic{
			{
				QuestionText: "How often?",
				Type:         models.QuestionMultipleChoice,
				Options: []models.OptionSummary{
					{OptionText: "Daily", Count: 7, Percentage: 70},
					{OptionText: "Other", Count: 3, Percentage: 30, CustomAnswers: []models.TextAnswerCount{{Value: "twice a day", Count: 2}}},
				},
			},
		},
	}

	prompt := BuildAnalysisPrompt(stats)
	assert.Contains(t, prompt, "Daily: 7 (70%)")
	assert.Contains(t, prompt, `"twice a day" x2`)
}
