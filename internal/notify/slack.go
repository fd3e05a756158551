package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
)

// SlackNotifier announces survey lifecycle transitions to Slack. All
// sends are best effort; callers log and move on when one fails, a
// transition never rolls back because a message did not land.
type SlackNotifier struct {
	cfg    config.SlackConfig
	client *http.Client
	logger *zap.Logger
}

// NewSlackNotifier builds a notifier. With Enabled false every method is
// a no-op, which keeps local development quiet.
func NewSlackNotifier(cfg config.SlackConfig, logger *zap.Logger) *SlackNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// NotifyOpened announces a survey opening. The message goes to the main
// webhook channel and to each extra channel id; customMessage, when
// present, replaces the default headline.
func (n *SlackNotifier) NotifyOpened(ctx context.Context, notice models.SurveyNotice, channels []string, customMessage string) error {
	if !n.cfg.Enabled {
		return nil
	}

	headline := fmt.Sprintf(":mega: Survey *%s* is now open!", notice.Title)
	if customMessage != "" {
		headline = customMessage
	}

	var b strings.Builder
	b.WriteString(headline)
	b.WriteString("\n")
	if notice.Description != "" {
		b.WriteString(notice.Description)
		b.WriteString("\n")
	}
	if notice.CloseAt != nil {
		fmt.Fprintf(&b, "Closes at %s\n", notice.CloseAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "%s", n.surveyLink(notice.SurveyID))

	return n.broadcast(ctx, b.String(), channels)
}

// NotifyClosingSoon warns that a survey closes within minutes.
func (n *SlackNotifier) NotifyClosingSoon(ctx context.Context, notice models.SurveyNotice) error {
	if !n.cfg.Enabled {
		return nil
	}
	text := fmt.Sprintf(":hourglass_flowing_sand: Survey *%s* closes in about 5 minutes. Last chance to respond!\n%s",
		notice.Title, n.surveyLink(notice.SurveyID))
	return n.broadcast(ctx, text, nil)
}

// NotifyClosed announces a survey closing with its final response count.
func (n *SlackNotifier) NotifyClosed(ctx context.Context, notice models.SurveyNotice) error {
	if !n.cfg.Enabled {
		return nil
	}
	text := fmt.Sprintf(":lock: Survey *%s* is now closed with %d responses. Thanks to everyone who participated!",
		notice.Title, notice.ResponseCount)
	return n.broadcast(ctx, text, nil)
}

// NotifyClosedToOwner sends the owner a private summary via the bot.
// Without a bot token it degrades to the webhook channel mentioning the
// owner's email.
func (n *SlackNotifier) NotifyClosedToOwner(ctx context.Context, notice models.SurveyNotice) error {
	if !n.cfg.Enabled {
		return nil
	}
	text := fmt.Sprintf("Your survey *%s* closed with %d responses. Results: %s/surveys/%s/statistics",
		notice.Title, notice.ResponseCount, strings.TrimRight(n.cfg.FrontendURL, "/"), notice.SurveyID)
	if n.cfg.BotToken != "" && n.cfg.MainChannelID != "" {
		return n.postMessage(ctx, n.cfg.MainChannelID, fmt.Sprintf("<%s> %s", notice.CreatorEmail, text))
	}
	return n.postWebhook(ctx, fmt.Sprintf("(owner: %s) %s", notice.CreatorEmail, text))
}

func (n *SlackNotifier) broadcast(ctx context.Context, text string, channels []string) error {
	var firstErr error
	if n.cfg.WebhookURL != "" {
		if err := n.postWebhook(ctx, text); err != nil {
			firstErr = err
		}
	}
	if n.cfg.BotToken != "" {
		for _, channel := range channels {
			if channel == "" || channel == n.cfg.MainChannelID {
				continue
			}
			if err := n.postMessage(ctx, channel, text); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *SlackNotifier) postWebhook(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (n *SlackNotifier) postMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(map[string]string{"channel": channel, "text": text})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://slack.com/api/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.BotToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack chat.postMessage failed: %s", result.Error)
	}
	return nil
}

func (n *SlackNotifier) surveyLink(surveyID string) string {
	return fmt.Sprintf("%s/s/%s", strings.TrimRight(n.cfg.FrontendURL, "/"), surveyID)
}
