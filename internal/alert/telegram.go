// Package alert delivers keyword alerts to a Telegram chat via the Bot API.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/profile-watcher/internal/metrics"
)

// DefaultAPIBase is the public Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// ErrDelivery is matched by every DeliveryError.
var ErrDelivery = errors.New("alert delivery failed")

// DeliveryError reports an unreachable channel or a rejected message.
type DeliveryError struct {
	Status      int
	Description string
	Err         error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("telegram delivery: %v", e.Err)
	case e.Description != "":
		return fmt.Sprintf("telegram delivery: status %d: %s", e.Status, e.Description)
	default:
		return fmt.Sprintf("telegram delivery: status %d", e.Status)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDelivery) match any DeliveryError.
func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// Config holds the channel credentials and delivery knobs.
type Config struct {
	BotToken string
	ChatID   string
	APIBase  string
	Timeout  time.Duration
	// RatePerSecond caps outbound sends; <= 0 disables limiting.
	RatePerSecond float64
	ParseMode     string
}

// Telegram implements monitor.Dispatcher.
type Telegram struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Telegram dispatcher. Missing credentials are allowed and
// turn every send into a logged no-op.
func New(cfg Config, logger *zap.Logger) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Telegram{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Configured reports whether both the bot token and chat ID are present.
func (t *Telegram) Configured() bool {
	return t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

// Dispatch sends one alert for an item. Delivery failures are returned as
// *DeliveryError; an unconfigured channel logs a warning and returns nil.
func (t *Telegram) Dispatch(ctx context.Context, text, permalink string) error {
	err := t.send(ctx, FormatMessage(t.escape(text), permalink))
	switch {
	case errors.Is(err, errUnconfigured):
		metrics.ObserveAlert(metrics.AlertUnconfigured)
		return nil
	case err != nil:
		metrics.ObserveAlert(metrics.AlertFailed)
		return err
	}
	metrics.ObserveAlert(metrics.AlertSent)
	t.logger.Info("alert delivered", zap.String("permalink", permalink))
	return nil
}

// Notify sends a free-form message such as the startup notice.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	err := t.send(ctx, t.escape(text))
	if errors.Is(err, errUnconfigured) {
		return nil
	}
	return err
}

var errUnconfigured = errors.New("telegram not configured")

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if !t.Configured() {
		t.logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set; alert not pushed")
		return errUnconfigured
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.cfg.ChatID,
		Text:      text,
		ParseMode: t.cfg.ParseMode,
	})
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("encode message: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("new request: %w", redact(err))}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: redact(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !decoded.OK || resp.StatusCode >= http.StatusMultipleChoices {
		return &DeliveryError{Status: resp.StatusCode, Description: decoded.Description}
	}
	return nil
}

func (t *Telegram) escape(text string) string {
	if strings.EqualFold(t.cfg.ParseMode, "HTML") {
		return html.EscapeString(text)
	}
	return text
}

// redact strips the request URL, which embeds the bot token, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
