package jobs

import (
	"testing"
	"time"
)

func TestReminderTime(t *testing.T) {
	got, err := ReminderTime("2024-06-05", "14:00")
	if err != nil {
		t.Fatalf("ReminderTime failed: %v", err)
	}
	want := time.Date(2024, 6, 4, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("remind at = %v, want %v", got, want)
	}
}

func TestReminderTimeCrossesMonth(t *testing.T) {
	got, err := ReminderTime("2024-03-01", "09:00")
	if err != nil {
		t.Fatalf("ReminderTime failed: %v", err)
	}
	// 2024 is a leap year.
	want := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("remind at = %v, want %v", got, want)
	}
}

func TestReminderTimeRejectsGarbage(t *testing.T) {
	if _, err := ReminderTime("not-a-date", "14:00"); err == nil {
		t.Fatal("expected error for malformed date")
	}
	if _, err := ReminderTime("2024-06-05", "25:99"); err == nil {
		t.Fatal("expected error for malformed time")
	}
}
