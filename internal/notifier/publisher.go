// Package notifier delivers cost reports to a Slack incoming webhook.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// DefaultConsoleURL opens Cost Explorer in the AWS console
const DefaultConsoleURL = "https://console.aws.amazon.com/cost-management/home#/cost-explorer"

// ErrNoWebhook means delivery was skipped
var ErrNoWebhook = errors.New("slack webhook url not configured")

// Config configures webhook delivery
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Links      Links
}

// Publisher posts report messages to a webhook
type Publisher struct {
	webhookURL string
	client     *http.Client
	links      Links
	logger     *zap.Logger
}

// NewPublisher creates a webhook publisher
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if cfg.Links.ConsoleURL == "" {
		cfg.Links.ConsoleURL = DefaultConsoleURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: timeout},
		links:      cfg.Links,
		logger:     logger,
	}
}

// Publish sends the rich report. If that is rejected it retries once with
// the bare summary text. The returned error is for logging only.
func (p *Publisher) Publish(ctx context.Context, r Report) error {
	if p.webhookURL == "" {
		return ErrNoWebhook
	}

	err := p.post(ctx, BuildMessage(r, p.links))
	if err == nil {
		p.logger.Info("Sent report to Slack")
		return nil
	}

	p.logger.Warn("Rich Slack message failed, retrying as plain text", zap.Error(err))

	if fbErr := p.post(ctx, &slack.WebhookMessage{Text: r.Text}); fbErr != nil {
		p.logger.Error("Plain text Slack message failed", zap.Error(fbErr))
		return fmt.Errorf("slack delivery failed: %w", errors.Join(err, fbErr))
	}

	p.logger.Info("Sent plain text report to Slack")
	return nil
}

// NotifyError reports a failed run. Delivery problems are logged and dropped.
func (p *Publisher) NotifyError(ctx context.Context, cause error) {
	if p.webhookURL == "" || cause == nil {
		return
	}
	if err := p.post(ctx, ErrorMessage(cause)); err != nil {
		p.logger.Warn("Failed to send error notification", zap.Error(err))
	}
}

// SendText posts a plain message, used to verify the webhook
func (p *Publisher) SendText(ctx context.Context, text string) error {
	if p.webhookURL == "" {
		return ErrNoWebhook
	}
	return p.post(ctx, &slack.WebhookMessage{Text: text})
}

func (p *Publisher) post(ctx context.Context, msg *slack.WebhookMessage) error {
	return slack.PostWebhookCustomHTTPContext(ctx, p.webhookURL, p.client, msg)
}
