package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
	"github.com/noah-isme/survey-pulse-api/pkg/jobs"
)

const analysisJobType = "survey.analysis"

type analysisSurveyStore interface {
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	SetAIAnalysis(ctx context.Context, surveyID, analysis string) error
	ListAnalysisBacklog(ctx context.Context, minResponses, limit int) ([]string, error)
}

type statisticsComputer interface {
	Compute(ctx context.Context, surveyID string) (*models.SurveyStatistics, error)
}

// chatCompleter is the slice of the OpenAI client the service uses,
// kept narrow so tests can stub the provider.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AnalysisService generates a one-shot AI summary for closed surveys
// with enough responses. Work runs through an in-memory queue so the
// request path never waits on the model; a periodic backfill catches
// surveys that closed while the process was down.
type AnalysisService struct {
	cfg     config.AIConfig
	surveys analysisSurveyStore
	stats   statisticsComputer
	client  chatCompleter
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewAnalysisService wires the analyzer. With cfg.Enabled false the
// service still constructs but Schedule and Backfill are no-ops.
func NewAnalysisService(cfg config.AIConfig, surveys analysisSurveyStore, stats statisticsComputer, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client chatCompleter
	if cfg.Enabled {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}

	s := &AnalysisService{
		cfg:     cfg,
		surveys: surveys,
		stats:   stats,
		client:  client,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("survey-analysis", s.handleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AnalysisService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AnalysisService) Stop() {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Stop()
}

// Schedule queues one survey for analysis. Eligibility is re-checked by
// the worker, so duplicate or premature schedules are harmless.
func (s *AnalysisService) Schedule(surveyID string) {
	if !s.cfg.Enabled {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    analysisJobType,
		Payload: surveyID,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue analysis", zap.String("survey_id", surveyID), zap.Error(err))
	}
}

// Backfill scans for closed, unanalyzed surveys and schedules a batch.
func (s *AnalysisService) Backfill(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	ids, err := s.surveys.ListAnalysisBacklog(ctx, minAnalysisResponses, 10)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.Schedule(id)
	}
	if len(ids) > 0 {
		s.logger.Info("analysis backfill scheduled", zap.Int("surveys", len(ids)))
	}
	return nil
}

// RunBackfillLoop runs Backfill on a fixed interval until cancelled.
func (s *AnalysisService) RunBackfillLoop(ctx context.Context, interval time.Duration) {
	if !s.cfg.Enabled {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Backfill(ctx); err != nil {
				s.logger.Error("analysis backfill failed", zap.Error(err))
			}
		}
	}
}

func (s *AnalysisService) handleJob(ctx context.Context, job jobs.Job) error {
	surveyID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("analysis job with bad payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.Analyze(ctx, surveyID)
}

// Analyze runs the full eligibility check and, when it passes, stores
// the generated summary. Already-analyzed surveys are skipped, the
// write is guarded so a racing worker cannot overwrite a result.
func (s *AnalysisService) Analyze(ctx context.Context, surveyID string) error {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("load survey for analysis: %w", err)
	}
	if survey.Status != models.SurveyStatusClosed || survey.AIAnalysis != nil {
		return nil
	}

	stats, err := s.stats.Compute(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("compute statistics for analysis: %w", err)
	}
	if stats.TotalResponses < minAnalysisResponses {
		return nil
	}

	analysis, err := s.generate(ctx, stats)
	if err != nil {
		return fmt.Errorf("generate analysis: %w", err)
	}
	if analysis == "" {
		return fmt.Errorf("empty analysis for survey %s", surveyID)
	}

	if err := s.surveys.SetAIAnalysis(ctx, surveyID, analysis); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	s.logger.Info("survey analysis stored",
		zap.String("survey_id", surveyID), zap.Int("responses", stats.TotalResponses))
	return nil
}

func (s *AnalysisService) generate(ctx context.Context, stats *models.SurveyStatistics) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("analysis provider not configured")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.cfg.Model,
		MaxTokens: s.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a survey analyst. Summarize the survey results below in a few short paragraphs: " +
					"overall participation, the strongest signals per question, and any notable free-text themes. " +
					"Be concrete and neutral. Do not invent data.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildAnalysisPrompt(stats),
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildAnalysisPrompt renders the aggregate as plain text for the model.
func BuildAnalysisPrompt(stats *models.SurveyStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Survey: %s\n", stats.Title)
	if stats.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", stats.Description)
	}
	fmt.Fprintf(&b, "Total responses: %d\n\n", stats.TotalResponses)

	for i, q := range stats.Questions {
		fmt.Fprintf(&b, "Q%d (%s): %s\n", i+1, q.Type, q.QuestionText)
		for _, opt := range q.Options {
			fmt.Fprintf(&b, "  - %s: %d (%d%%)\n", opt.OptionText, opt.Count, opt.Percentage)
			for _, custom := range opt.CustomAnswers {
				fmt.Fprintf(&b, "    * %q x%d\n", custom.Value, custom.Count)
			}
		}
		for _, row := range q.MatrixRows {
			fmt.Fprintf(&b, "  row %s:", row.RowLabel)
			for _, cell := range row.Columns {
				fmt.Fprintf(&b, " [%s: %d]", cell.ColumnLabel, cell.Count)
			}
			b.WriteString("\n")
		}
		// Cap free text so huge surveys stay inside the context window.
		for j, text := range q.TextAnswers {
			if j >= 20 {
				fmt.Fprintf(&b, "  ... and %d more distinct answers\n", len(q.TextAnswers)-j)
				break
			}
			fmt.Fprintf(&b, "  - %q x%d\n", text.Value, text.Count)
		}
		b.WriteString("\n")
	}
	return b.String()
}
