package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, sub Subscription, title string, body string) error
	ProviderID() string
}

// Subscription is a browser push subscription as the client registered
// it. The relay holds the VAPID keys and does the actual Web Push.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type RelaySender struct {
	url   string
	token string
	http  *http.Client
}

func NewRelaySender(url string, token string) *RelaySender {
	return &RelaySender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *RelaySender) ProviderID() string {
	return "push-relay"
}

func (s *RelaySender) Send(ctx context.Context, sub Subscription, title string, body string) error {
	if s.url == "" {
		return errors.New("push relay url not configured")
	}
	payload := map[string]any{
		"subscription": sub,
		"title":        title,
		"body":         body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push relay returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "push-noop"
}

func (s *NoopSender) Send(_ context.Context, _ Subscription, _ string, _ string) error {
	return nil
}
