// Package insights writes the natural-language part of a cost report.
package insights

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured means no text generator is available
var ErrNotConfigured = errors.New("text generation not configured")

// Config bounds a generation request
type Config struct {
	Timeout      time.Duration
	PromptBudget int
}

// Generator asks a model for a summary and falls back to a local template
type Generator struct {
	client TextGenerator
	config Config
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil client always uses the template.
func NewGenerator(client TextGenerator, cfg Config, logger *zap.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = 15000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, config: cfg, logger: logger}
}

// Generate produces the report summary. It never fails: timeouts, errors and
// empty completions all yield the deterministic fallback.
func (g *Generator) Generate(ctx context.Context, in Input) Result {
	if g.client == nil {
		return Result{Text: Fallback(in), Source: SourceFallback, Err: ErrNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	prompt := BuildPrompt(in, g.config.PromptBudget)
	start := time.Now()

	text, err := g.client.GenerateText(ctx, prompt)
	if err == nil && text == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		g.logger.Warn("AI summary failed, using fallback",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return Result{Text: Fallback(in), Source: SourceFallback, Err: err}
	}

	g.logger.Info("AI summary generated",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("summary_chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{Text: text, Source: SourceAI}
}
