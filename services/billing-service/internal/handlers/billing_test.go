package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateIntentRequiresConfiguration(t *testing.T) {
	h := New(nil, nil, slog.Default(), Config{})
	req := httptest.NewRequest(http.MethodPost, "/payments/intent", strings.NewReader(`{"appointmentId":"a1","amountCents":15000}`))
	rec := httptest.NewRecorder()

	h.CreateIntent(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestCreateIntentValidation(t *testing.T) {
	h := New(nil, nil, slog.Default(), Config{StripeSecretKey: "sk_test_x"})

	cases := []struct {
		name string
		body string
	}{
		{"missing appointment id", `{"amountCents":15000}`},
		{"zero amount", `{"appointmentId":"a1"}`},
		{"negative amount", `{"appointmentId":"a1","amountCents":-5}`},
		{"invalid json", `{`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/payments/intent", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()

		h.CreateIntent(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestStripeWebhookRejectsUnsigned(t *testing.T) {
	h := New(nil, nil, slog.Default(), Config{StripeWebhookSecret: "whsec_test"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhooks/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStripeWebhookUnconfigured(t *testing.T) {
	h := New(nil, nil, slog.Default(), Config{})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhooks/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
