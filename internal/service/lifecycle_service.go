package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

// closingSoonLead is how far before closeTime the warning fires. The
// sweep emits it once per survey in practice because the window matches
// a single one-minute tick.
const (
	closingSoonLead   = 5 * time.Minute
	closingSoonWindow = time.Minute
)

type lifecycleSurveyStore interface {
	ListSweepCandidates(ctx context.Context) ([]models.SweepCandidate, error)
	MarkPublished(ctx context.Context, id string, at time.Time) (bool, error)
	MarkClosed(ctx context.Context, id string, at time.Time) (bool, error)
}

type lifecycleMetrics interface {
	RecordLifecycleTransition(from, to models.SurveyStatus)
}

// LifecycleService drives time-based survey transitions. One sweep pass
// walks every non-terminal survey: pending surveys whose open time has
// passed are published, published surveys are warned and closed per
// their auto-close condition. A survey opened in a pass is never closed
// in the same pass.
type LifecycleService struct {
	surveys  lifecycleSurveyStore
	notifier Notifier
	analysis AnalysisScheduler
	metrics  lifecycleMetrics
	logger   *zap.Logger

	now func() time.Time
}

// NewLifecycleService wires the sweep. notifier, analysis and metrics
// may be nil.
func NewLifecycleService(surveys lifecycleSurveyStore, notifier Notifier, analysis AnalysisScheduler, metrics lifecycleMetrics, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		surveys:  surveys,
		notifier: notifier,
		analysis: analysis,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// RunLoop sweeps on a fixed interval until the context is cancelled.
// Passes run sequentially on one goroutine, so a slow pass delays the
// next tick instead of overlapping it.
func (s *LifecycleService) RunLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("lifecycle sweep started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lifecycle sweep stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("lifecycle sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass. Per-survey failures are logged and skipped so a
// broken survey cannot wedge the whole sweep.
func (s *LifecycleService) Sweep(ctx context.Context) error {
	candidates, err := s.surveys.ListSweepCandidates(ctx)
	if err != nil {
		return appErrors.FromError(err)
	}

	now := s.now().UTC()
	for _, candidate := range candidates {
		if err := s.sweepOne(ctx, candidate, now); err != nil {
			s.logger.Error("sweep survey failed",
				zap.String("survey_id", candidate.Survey.ID),
				zap.String("status", string(candidate.Survey.Status)),
				zap.Error(err))
		}
	}
	return nil
}

func (s *LifecycleService) sweepOne(ctx context.Context, candidate models.SweepCandidate, now time.Time) error {
	settings := candidate.Settings
	if settings == nil {
		return nil
	}

	switch candidate.Survey.Status {
	case models.SurveyStatusPending:
		return s.maybeOpen(ctx, candidate, now)
	case models.SurveyStatusPublished:
		s.maybeWarnClosingSoon(ctx, candidate, now)
		return s.maybeClose(ctx, candidate, now)
	}
	return nil
}

func (s *LifecycleService) maybeOpen(ctx context.Context, candidate models.SweepCandidate, now time.Time) error {
	settings := candidate.Settings
	if settings.OpenTime == nil || now.Before(*settings.OpenTime) {
		return nil
	}

	published, err := s.surveys.MarkPublished(ctx, candidate.Survey.ID, now)
	if err != nil {
		return err
	}
	if !published {
		// Someone published it between the load and the update.
		return nil
	}

	s.logger.Info("survey opened by sweep",
		zap.String("survey_id", candidate.Survey.ID), zap.String("title", candidate.Survey.Title))
	if s.metrics != nil {
		s.metrics.RecordLifecycleTransition(models.SurveyStatusPending, models.SurveyStatusPublished)
	}
	if s.notifier != nil {
		notice := s.notice(candidate)
		notice.PublishedAt = &now
		if err := s.notifier.NotifyOpened(ctx, notice, nil, ""); err != nil {
			s.logger.Warn("open notification failed",
				zap.String("survey_id", candidate.Survey.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *LifecycleService) maybeWarnClosingSoon(ctx context.Context, candidate models.SweepCandidate, now time.Time) {
	settings := candidate.Settings
	if settings.CloseTime == nil || s.notifier == nil {
		return
	}
	remaining := settings.CloseTime.Sub(now)
	if remaining < closingSoonLead || remaining >= closingSoonLead+closingSoonWindow {
		return
	}
	if err := s.notifier.NotifyClosingSoon(ctx, s.notice(candidate)); err != nil {
		s.logger.Warn("closing-soon notification failed",
			zap.String("survey_id", candidate.Survey.ID), zap.Error(err))
	}
}

func (s *LifecycleService) maybeClose(ctx context.Context, candidate models.SweepCandidate, now time.Time) error {
	if !shouldClose(candidate, now) {
		return nil
	}

	closed, err := s.surveys.MarkClosed(ctx, candidate.Survey.ID, now)
	if err != nil {
		return err
	}
	if !closed {
		// Already closed by a concurrent submission hitting the cap.
		return nil
	}

	s.logger.Info("survey closed by sweep",
		zap.String("survey_id", candidate.Survey.ID),
		zap.String("title", candidate.Survey.Title),
		zap.Int("responses", candidate.ResponseCount))
	if s.metrics != nil {
		s.metrics.RecordLifecycleTransition(models.SurveyStatusPublished, models.SurveyStatusClosed)
	}

	if s.notifier != nil {
		notice := s.notice(candidate)
		if err := s.notifier.NotifyClosed(ctx, notice); err != nil {
			s.logger.Warn("close notification failed",
				zap.String("survey_id", candidate.Survey.ID), zap.Error(err))
		}
		if err := s.notifier.NotifyClosedToOwner(ctx, notice); err != nil {
			s.logger.Warn("owner close notification failed",
				zap.String("survey_id", candidate.Survey.ID), zap.Error(err))
		}
	}
	if s.analysis != nil && candidate.ResponseCount >= minAnalysisResponses {
		s.analysis.Schedule(candidate.Survey.ID)
	}
	return nil
}

// shouldClose evaluates the auto-close condition. Manual mode still
// honours closeTime and maxResponse as failsafes, so a forgotten manual
// survey cannot outlive its own limits.
func shouldClose(candidate models.SweepCandidate, now time.Time) bool {
	settings := candidate.Settings
	timeUp := settings.CloseTime != nil && !now.Before(*settings.CloseTime)
	capReached := settings.MaxResponse != nil && candidate.ResponseCount >= *settings.MaxResponse

	switch settings.AutoCloseCondition {
	case models.AutoCloseByTime:
		return timeUp
	case models.AutoCloseByResponse:
		return capReached
	default:
		return timeUp || capReached
	}
}

func (s *LifecycleService) notice(candidate models.SweepCandidate) models.SurveyNotice {
	notice := models.SurveyNotice{
		SurveyID:      candidate.Survey.ID,
		Title:         candidate.Survey.Title,
		Description:   candidate.Survey.Description,
		CreatorEmail:  candidate.OwnerEmail,
		PublishedAt:   candidate.Survey.PublishedAt,
		ResponseCount: candidate.ResponseCount,
	}
	if candidate.Settings != nil {
		notice.CloseAt = candidate.Settings.CloseTime
		notice.MaxResponse = candidate.Settings.MaxResponse
	}
	return notice
}
