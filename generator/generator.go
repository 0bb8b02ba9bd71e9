// Package generator asks the generative text service for itinerary content.
// It returns raw text and interprets none of it.
package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/logging"
	"luxe/models"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// Completer sends one prompt and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	// Retries is the number of extra attempts after the first one fails.
	Retries int
	Backoff time.Duration
	// Timeout bounds each attempt.
	Timeout time.Duration
}

type Generator struct {
	llm    Completer
	opts   Options
	logger *zap.Logger
}

func New(llm Completer, opts Options, logger *zap.Logger) *Generator {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Generator{llm: llm, opts: opts, logger: logging.OrNop(logger)}
}

// Generate returns the model's raw itinerary text. Every failure is a
// *apperr.GenerationError carrying the last underlying cause.
func (g *Generator) Generate(ctx context.Context, req models.TripRequest) (string, error) {
	prompt := BuildPrompt(req)
	attempts := g.opts.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			g.logger.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", g.opts.Backoff),
				zap.Error(lastErr))
			if err := sleepCtx(ctx, g.opts.Backoff); err != nil {
				return "", &apperr.GenerationError{Attempts: attempt - 1, Err: err}
			}
		}

		start := time.Now()
		text, err := g.attempt(ctx, prompt)
		if err == nil {
			g.logger.Info("itinerary text generated",
				zap.String("destination", req.Destination),
				zap.Int("attempt", attempt),
				zap.Int("chars", len(text)),
				zap.Duration("took", time.Since(start)))
			return text, nil
		}
		lastErr = err

		// the caller gave up; retrying would only delay the abort
		if ctx.Err() != nil {
			return "", &apperr.GenerationError{Attempts: attempt, Err: ctx.Err()}
		}
	}
	return "", &apperr.GenerationError{Attempts: attempts, Err: lastErr}
}

func (g *Generator) attempt(ctx context.Context, prompt string) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	text, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = StripCodeFence(text)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// StripCodeFence removes a ``` or ```text wrapper some models put around plain answers.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
