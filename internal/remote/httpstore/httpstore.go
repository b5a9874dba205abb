// Package httpstore is a remote.Store that talks to a freezer hub over HTTP.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/freezer/internal/remote"
)

// Config holds hub connection settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Store is a hub client.
type Store struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("hub url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type recordBody struct {
	Name          string    `json:"name,omitempty"`
	Payload       []byte    `json:"payload"`
	UpdatedAt     time.Time `json:"updated_at"`
	HouseholdID   string    `json:"household_id,omitempty"`
	HouseholdName string    `json:"household_name"`
}

type shareBody struct {
	Permission remote.Permission `json:"permission"`
	Title      string            `json:"title"`
}

type shareRequest struct {
	Root  recordBody `json:"root"`
	Share shareBody  `json:"share"`
}

// do sends a request and decodes a JSON response into out when out is non-nil.
// 404 maps to remote.ErrNotFound and 409 to remote.ErrAlreadyExists.
func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return remote.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return remote.ErrAlreadyExists
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func recordPath(scope remote.Scope, name string) string {
	return "/v1/records/" + url.PathEscape(string(scope)) + "/" + url.PathEscape(name)
}

func subscriptionPath(scope remote.Scope, id string) string {
	return "/v1/subscriptions/" + url.PathEscape(string(scope)) + "/" + url.PathEscape(id)
}

func (s *Store) FetchRecord(ctx context.Context, scope remote.Scope, name string) (*remote.Record, error) {
	var rec remote.Record
	if err := s.do(ctx, http.MethodGet, recordPath(scope, name), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, scope remote.Scope, rec *remote.Record) error {
	body := recordBody{
		Payload:       rec.Payload,
		UpdatedAt:     rec.UpdatedAt,
		HouseholdID:   rec.HouseholdID,
		HouseholdName: rec.HouseholdName,
	}
	return s.do(ctx, http.MethodPut, recordPath(scope, rec.Name), body, nil)
}

func (s *Store) FetchSubscription(ctx context.Context, scope remote.Scope, id string) (*remote.Subscription, error) {
	var sub remote.Subscription
	if err := s.do(ctx, http.MethodGet, subscriptionPath(scope, id), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) SaveSubscription(ctx context.Context, sub *remote.Subscription) error {
	return s.do(ctx, http.MethodPut, subscriptionPath(sub.Scope, sub.ID), nil, nil)
}

func (s *Store) FetchShare(ctx context.Context, recordName string) (*remote.Share, error) {
	var share remote.Share
	if err := s.do(ctx, http.MethodGet, "/v1/shares/"+url.PathEscape(recordName), nil, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

func (s *Store) SaveShare(ctx context.Context, root *remote.Record, share *remote.Share) (*remote.Share, error) {
	req := shareRequest{
		Root: recordBody{
			Name:          root.Name,
			Payload:       root.Payload,
			UpdatedAt:     root.UpdatedAt,
			HouseholdID:   root.HouseholdID,
			HouseholdName: root.HouseholdName,
		},
		Share: shareBody{Permission: share.Permission, Title: share.Title},
	}
	var saved remote.Share
	if err := s.do(ctx, http.MethodPost, "/v1/shares", req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) FetchShareMetadata(ctx context.Context, shareURL string) (*remote.ShareMetadata, error) {
	var meta remote.ShareMetadata
	path := "/v1/share-metadata?" + url.Values{"url": {shareURL}}.Encode()
	if err := s.do(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) AcceptShare(ctx context.Context, meta *remote.ShareMetadata) error {
	return s.do(ctx, http.MethodPost, "/v1/share-accept", meta, nil)
}
