package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shiftrota/internal/platform/config"
	"shiftrota/internal/platform/notify"
)

// New returns the sender for cfg.SMSProvider. The subject argument of
// Deliver is ignored; SMS carries only the body.
func New(cfg config.Config, client *http.Client) notify.Deliverer {
	if cfg.SMSProvider == config.SMSProviderTextLocal {
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		return &TextLocal{
			Client: client,
			URL:    cfg.TextLocalURL,
			APIKey: cfg.TextLocalAPIKey,
			Sender: cfg.TextLocalSender,
		}
	}
	return &Mock{}
}

// Mock logs messages instead of sending them and remembers them for
// inspection.
type Mock struct {
	notify.Recorder
}

func (m *Mock) Deliver(ctx context.Context, recipients []string, subject, body string) error {
	slog.Info("mock sms", "to", strings.Join(recipients, ","), "body", body)
	return m.Recorder.Deliver(ctx, recipients, subject, body)
}

type TextLocal struct {
	Client *http.Client
	URL    string
	APIKey string
	Sender string
}

type textLocalResponse struct {
	Status string `json:"status"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (t *TextLocal) Deliver(ctx context.Context, recipients []string, _ string, body string) error {
	if len(recipients) == 0 {
		return nil
	}
	form := url.Values{
		"apikey":  {t.APIKey},
		"numbers": {strings.Join(recipients, ",")},
		"message": {body},
		"sender":  {t.Sender},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("textlocal request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("textlocal status %d", resp.StatusCode)
	}
	var out textLocalResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("textlocal response: %w", err)
	}
	if out.Status != "success" {
		if len(out.Errors) > 0 {
			return fmt.Errorf("textlocal failed: %s", out.Errors[0].Message)
		}
		return fmt.Errorf("textlocal failed: status %q", out.Status)
	}
	return nil
}
