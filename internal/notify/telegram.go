// Package notify sends run summaries to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"staycheck/internal/suite"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// TelegramError represents an error from the Telegram API.
type TelegramError struct {
	Code       int
	Message    string
	RetryAfter int // seconds to wait before retrying (for 429 errors)
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
}

// IsTelegramError checks if the error is a TelegramError.
func IsTelegramError(err error) (*TelegramError, bool) {
	var tgErr *TelegramError
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

// Config selects the chat and when to post.
type Config struct {
	ChatID        int64
	OnlyOnFailure bool
	Retry         RetryConfig
}

// Notifier posts run summaries.
type Notifier struct {
	sender Sender
	cfg    Config
	logger *zerolog.Logger
	wait   func(ctx context.Context, d time.Duration) error
}

// New creates a notifier. A zero Retry uses DefaultRetryConfig.
func New(sender Sender, cfg Config, logger *zerolog.Logger) *Notifier {
	if cfg.Retry.MaxRetries == 0 && len(cfg.Retry.RetryDelays) == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Notifier{sender: sender, cfg: cfg, logger: logger, wait: sleep}
}

// NewBot connects to the Bot API with token.
func NewBot(token string, cfg Config, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return New(bot, cfg, logger), nil
}

// NotifyRun posts the summary of run and, when reportPath is set, the report
// workbook. Passing runs are skipped when OnlyOnFailure is set.
func (n *Notifier) NotifyRun(ctx context.Context, run suite.Run, reportPath string) error {
	if n.cfg.OnlyOnFailure && !run.Failed() {
		n.logger.Debug().Str("run_id", run.ID).Msg("run passed, notification skipped")
		return nil
	}

	msg := tgbotapi.NewMessage(n.cfg.ChatID, Summary(run))
	if err := n.sendWithRetry(ctx, msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	if reportPath == "" {
		return nil
	}
	doc := tgbotapi.NewDocument(n.cfg.ChatID, tgbotapi.FilePath(reportPath))
	doc.Caption = filepath.Base(reportPath)
	if err := n.sendWithRetry(ctx, doc); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func (n *Notifier) sendWithRetry(ctx context.Context, c tgbotapi.Chattable) error {
	var lastErr error
	delays := n.cfg.Retry.RetryDelays

	for attempt := 0; attempt <= n.cfg.Retry.MaxRetries; attempt++ {
		_, err := n.sender.Send(c)
		if err == nil {
			return nil
		}
		err = classify(err)
		lastErr = err

		delay := time.Duration(0)
		if attempt < len(delays) {
			delay = delays[attempt]
		}

		if tgErr, ok := IsTelegramError(err); ok {
			switch tgErr.Code {
			case 429:
				if tgErr.RetryAfter > 0 {
					delay = time.Duration(tgErr.RetryAfter) * time.Second
				}
				n.logger.Info().Dur("retry_after", delay).Int("attempt", attempt).Msg("rate limited by Telegram, waiting")
			case 400, 403:
				return err
			}
		}

		if attempt == n.cfg.Retry.MaxRetries {
			break
		}
		n.logger.Info().Int("attempt", attempt+1).Int("max_retries", n.cfg.Retry.MaxRetries).Dur("delay", delay).Err(err).Msg("retrying telegram send")
		if err := n.wait(ctx, delay); err != nil {
			return err
		}
	}

	n.logger.Error().Err(lastErr).Msg("max retries exceeded for telegram send")
	return lastErr
}

// classify turns a Bot API error into a TelegramError.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &TelegramError{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	return err
}

// Summary renders run as a plain-text chat message.
func Summary(run suite.Run) string {
	status := "PASSED"
	if run.Failed() {
		status = "FAILED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "staycheck run %s: %s\n", shortID(run.ID), status)
	fmt.Fprintf(&b, "passed %d, recovered %d, failed %d in %.1fs\n",
		run.Count(suite.Passed), run.Count(suite.Recovered), run.Count(suite.Failed),
		run.Finished.Sub(run.Started).Seconds())

	for _, res := range run.Results {
		switch res.Outcome {
		case suite.Failed:
			fmt.Fprintf(&b, "\n[failed] %s: %v", res.Name, res.Err)
		case suite.Recovered:
			fmt.Fprintf(&b, "\n[recovered] %s", res.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
