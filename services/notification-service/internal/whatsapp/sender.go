package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

// MetaSender delivers through the Meta WhatsApp Cloud API.
type MetaSender struct {
	phoneNumberID string
	token         string
	http          *http.Client
}

func NewMetaSender(phoneNumberID string, token string) *MetaSender {
	return &MetaSender{
		phoneNumberID: strings.TrimSpace(phoneNumberID),
		token:         strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *MetaSender) ProviderID() string {
	return "whatsapp-meta"
}

func (s *MetaSender) Send(ctx context.Context, to string, body string) error {
	if s.phoneNumberID == "" || s.token == "" {
		return errors.New("meta whatsapp sender not configured")
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(to, "+"),
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("meta graph api returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

// TwilioSender delivers through Twilio's WhatsApp messaging API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	http       *http.Client
}

func NewTwilioSender(accountSID string, authToken string, from string) *TwilioSender {
	return &TwilioSender{
		accountSID: strings.TrimSpace(accountSID),
		authToken:  strings.TrimSpace(authToken),
		from:       strings.TrimSpace(from),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *TwilioSender) ProviderID() string {
	return "whatsapp-twilio"
}

func (s *TwilioSender) Send(ctx context.Context, to string, body string) error {
	if s.accountSID == "" || s.authToken == "" || s.from == "" {
		return errors.New("twilio whatsapp sender not configured")
	}
	form := url.Values{}
	form.Set("From", "whatsapp:"+s.from)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "whatsapp-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
