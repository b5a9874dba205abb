package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// EmailConfig configures reminder delivery through Postmark.
type EmailConfig struct {
	ServerToken string
	From        string
	To          []string
	// Endpoint overrides the Postmark API URL.
	Endpoint string
}

// Email sends reminders as Postmark emails.
type Email struct {
	cfg        EmailConfig
	httpClient *http.Client
}

type EmailOption func(*Email)

func WithHTTPClient(c *http.Client) EmailOption {
	return func(e *Email) { e.httpClient = c }
}

func NewEmail(cfg EmailConfig, opts ...EmailOption) (*Email, error) {
	if cfg.ServerToken == "" {
		return nil, errors.New("postmark server token is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("email sender and recipients are required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = postmarkURL
	}
	e := &Email{cfg: cfg, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// Send emails payload to every recipient.
func (e *Email) Send(ctx context.Context, payload Payload) error {
	var errs []error
	for _, to := range e.cfg.To {
		if err := e.sendOne(ctx, to, payload); err != nil {
			errs = append(errs, fmt.Errorf("email %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Email) sendOne(ctx context.Context, to string, payload Payload) error {
	body, err := json.Marshal(postmarkEmail{
		From:     e.cfg.From,
		To:       to,
		Subject:  payload.Title,
		TextBody: payload.Body,
		HtmlBody: "<p>" + html.EscapeString(payload.Body) + "</p>",
		Tag:      payload.Tag,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", e.cfg.ServerToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}

// Senders delivers through every sender in turn.
type Senders []Sender

func (s Senders) Send(ctx context.Context, payload Payload) error {
	var errs []error
	for _, sender := range s {
		if err := sender.Send(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
