package templates

import (
	"strings"
	"testing"
)

func TestBookingConfirmationBody(t *testing.T) {
	body := BookingConfirmationBody(Session{PatientName: "Maria Silva", Date: "2024-06-05", Time: "14:00"})
	for _, want := range []string{"Maria Silva", "2024-06-05", "14:00", "Agendamento Confirmado"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestTemplatesEscapeHTML(t *testing.T) {
	body := ReminderBody(Session{PatientName: "<script>alert(1)</script>", Date: "2024-06-05", Time: "14:00"})
	if strings.Contains(body, "<script>") {
		t.Fatal("patient name must be escaped")
	}

	ref := ReferralBody("A & B", "<b>TRG</b>")
	if strings.Contains(ref, "<b>TRG</b>") {
		t.Fatal("specialty must be escaped")
	}
	if !strings.Contains(ref, "A &amp; B") {
		t.Fatalf("ampersand not escaped:\n%s", ref)
	}
}

func TestReminderText(t *testing.T) {
	text := ReminderText(Session{Date: "2024-06-05", Time: "14:00"})
	if !strings.Contains(text, "2024-06-05") || !strings.Contains(text, "14:00") {
		t.Fatalf("reminder text missing session info: %s", text)
	}
}
