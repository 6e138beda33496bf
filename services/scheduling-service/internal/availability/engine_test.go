package availability

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

type fakeStore struct {
	hours    map[string]model.WorkingHours
	appts    []model.Appointment
	hoursErr error
	apptsErr error
}

func hoursKey(therapistID string, weekday int) string {
	return fmt.Sprintf("%s:%d", therapistID, weekday)
}

func (f *fakeStore) WorkingHoursFor(_ context.Context, therapistID string, weekday int) (model.WorkingHours, bool, error) {
	if f.hoursErr != nil {
		return model.WorkingHours{}, false, f.hoursErr
	}
	wh, ok := f.hours[hoursKey(therapistID, weekday)]
	return wh, ok, nil
}

func (f *fakeStore) AppointmentsOn(_ context.Context, date, therapistID string) ([]model.Appointment, error) {
	if f.apptsErr != nil {
		return nil, f.apptsErr
	}
	var out []model.Appointment
	for _, a := range f.appts {
		if a.Date != date {
			continue
		}
		if therapistID != "" && a.TherapistID != therapistID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func slotTimes(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		wantErr error
	}{
		{"2024-06-05", nil},
		{"2024-02-29", nil},
		{"", ErrMissingDate},
		{"2024-6-5", ErrInvalidDate},
		{"2024/06/05", ErrInvalidDate},
		{"2024-13-01", ErrInvalidDate},
		{"2024-04-31", ErrInvalidDate},
		{"2023-02-29", ErrInvalidDate},
		{"2100-02-29", ErrInvalidDate},
		{"20240605abc", ErrInvalidDate},
		{"not-a-date!", ErrInvalidDate},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("ParseDate(%q) err = %v, want %v", tc.in, err, tc.wantErr)
		}
	}
}

func TestWeekdaySundayFirst(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2024-06-05", 3}, // Wednesday
		{"2024-06-02", 0}, // Sunday
		{"2024-06-08", 6}, // Saturday
		{"2024-02-29", 4}, // leap-day Thursday
		{"2000-01-01", 6}, // Saturday
		{"1999-12-31", 5}, // Friday
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.date)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.date, err)
		}
		if got := d.Weekday(); got != tc.want {
			t.Errorf("Weekday(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}
}

func TestDaySlotsInactiveWeekday(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.WorkingHours{
			hoursKey("t1", 3): {TherapistID: "t1", Weekday: 3, StartHour: 9, EndHour: 12, Active: false},
		},
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "10:00", Status: model.StatusScheduled},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on an inactive weekday, got %v", slotTimes(slots))
	}
}

func TestDaySlotsDefaultPolicy(t *testing.T) {
	store := &fakeStore{hours: map[string]model.WorkingHours{}}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	want := []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}
	if got := slotTimes(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("default policy slots = %v, want %v", got, want)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s should be available", s.Time)
		}
		if s.ID != s.Time {
			t.Fatalf("slot id %q should equal time %q", s.ID, s.Time)
		}
	}
}

func TestDaySlotsOccupancyExactMatch(t *testing.T) {
	store := &fakeStore{
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "14:00:00", Status: model.StatusScheduled},
			// Off the hourly grid: occupies nothing.
			{TherapistID: "t1", Date: "2024-06-05", Time: "14:30:00", Status: model.StatusScheduled},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	for _, s := range slots {
		wantAvailable := s.Time != "14:00"
		if s.Available != wantAvailable {
			t.Errorf("slot %s available = %v, want %v", s.Time, s.Available, wantAvailable)
		}
	}
}

func TestDaySlotsCancelledFreesSlot(t *testing.T) {
	store := &fakeStore{
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "09:00", Status: model.StatusCancelled},
			{TherapistID: "t1", Date: "2024-06-05", Time: "10:00", Status: model.StatusCompleted},
			{TherapistID: "t1", Date: "2024-06-05", Time: "11:00", Status: model.StatusPendingPayment},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	if !byTime["09:00"] {
		t.Error("cancelled appointment should not occupy 09:00")
	}
	if byTime["10:00"] {
		t.Error("completed appointment should occupy 10:00")
	}
	if byTime["11:00"] {
		t.Error("pending_payment appointment should occupy 11:00")
	}
}

func TestDaySlotsScopedToTherapist(t *testing.T) {
	store := &fakeStore{
		appts: []model.Appointment{
			{TherapistID: "other", Date: "2024-06-05", Time: "09:00", Status: model.StatusScheduled},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	for _, s := range slots {
		if s.Time == "09:00" && !s.Available {
			t.Fatal("another therapist's appointment must not occupy t1's slot")
		}
	}
}

func TestDaySlotsUnscopedSeesAllTherapists(t *testing.T) {
	store := &fakeStore{
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "09:00", Status: model.StatusScheduled},
			{TherapistID: "t2", Date: "2024-06-05", Time: "10:00", Status: model.StatusScheduled},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	if byTime["09:00"] || byTime["10:00"] {
		t.Fatalf("unscoped occupancy should cover all therapists, got %v", byTime)
	}
}

func TestDaySlotsIdempotent(t *testing.T) {
	store := &fakeStore{
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "10:00", Status: model.StatusScheduled},
		},
	}
	engine := NewEngine(store)
	first, err := engine.DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	second, err := engine.DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated computation differs: %v vs %v", first, second)
	}
}

func TestDaySlotsConfiguredWindow(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.WorkingHours{
			hoursKey("t1", 3): {TherapistID: "t1", Weekday: 3, StartHour: 9, EndHour: 12, Active: true},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	want := []string{"09:00", "10:00", "11:00"}
	if got := slotTimes(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s should be available", s.Time)
		}
	}
}

func TestDaySlotsBookedWithinConfiguredWindow(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.WorkingHours{
			hoursKey("t1", 3): {TherapistID: "t1", Weekday: 3, StartHour: 9, EndHour: 12, Active: true},
		},
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "10:00:00", Status: model.StatusScheduled},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	for _, s := range slots {
		wantAvailable := s.Time != "10:00"
		if s.Available != wantAvailable {
			t.Errorf("slot %s available = %v, want %v", s.Time, s.Available, wantAvailable)
		}
	}
}

func TestDaySlotsMalformedRange(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.WorkingHours{
			hoursKey("t1", 3): {TherapistID: "t1", Weekday: 3, StartHour: 12, EndHour: 9, Active: true},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("malformed range must not error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("malformed range should yield no slots, got %v", slotTimes(slots))
	}
}

func TestDaySlotsEndHourClamped(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.WorkingHours{
			hoursKey("t1", 3): {TherapistID: "t1", Weekday: 3, StartHour: 22, EndHour: 26, Active: true},
		},
	}
	slots, err := NewEngine(store).DaySlots(context.Background(), "2024-06-05", "t1")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	want := []string{"22:00", "23:00"}
	if got := slotTimes(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("clamped slots = %v, want %v", got, want)
	}
}

func TestDaySlotsStoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")

	_, err := NewEngine(&fakeStore{hoursErr: storeErr}).DaySlots(context.Background(), "2024-06-05", "t1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped policy lookup error, got %v", err)
	}

	slots, err := NewEngine(&fakeStore{apptsErr: storeErr}).DaySlots(context.Background(), "2024-06-05", "t1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped occupancy error, got %v", err)
	}
	if slots != nil {
		t.Fatalf("no partial slot list on store failure, got %v", slotTimes(slots))
	}
}

func TestDaySlotsDateErrors(t *testing.T) {
	engine := NewEngine(&fakeStore{})
	if _, err := engine.DaySlots(context.Background(), "", "t1"); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("empty date err = %v, want ErrMissingDate", err)
	}
	if _, err := engine.DaySlots(context.Background(), "05/06/2024", "t1"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("invalid date err = %v, want ErrInvalidDate", err)
	}
}
