package models

import (
	"testing"
	"time"

	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/constants"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    constants.Frequency
		wantErr bool
	}{
		{"daily", constants.FrequencyDaily, false},
		{"Weekly", constants.FrequencyWeekly, false},
		{" MONTHLY ", constants.FrequencyMonthly, false},
		{"yearly", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFrequency(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrequency(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFrequency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoutineFormatRecurrence(t *testing.T) {
	anchor := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) // Monday

	tests := []struct {
		freq constants.Frequency
		want string
	}{
		{constants.FrequencyDaily, "daily at 06:00"},
		{constants.FrequencyWeekly, "every Monday at 06:00"},
		{constants.FrequencyMonthly, "monthly on day 8 at 06:00"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		r := Routine{TimeOfDay: "06:00", Frequency: tt.freq, AnchorDate: anchor}
		if got := r.FormatRecurrence(); got != tt.want {
			t.Errorf("FormatRecurrence(%s) = %q, want %q", tt.freq, got, tt.want)
		}
	}
}

func TestPreferencesLocation(t *testing.T) {
	loc, err := UserPreferences{}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty timezone should map to Local, got %v, %v", loc, err)
	}

	loc, err = UserPreferences{Timezone: "Asia/Dhaka"}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "Asia/Dhaka" {
		t.Errorf("expected Asia/Dhaka, got %s", loc)
	}

	if _, err := (UserPreferences{Timezone: "Mars/Olympus"}).Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestTaskIsOverdue(t *testing.T) {
	task := Task{DueDate: "2024-01-10"}
	if !task.IsOverdue("2024-01-11") {
		t.Error("open task past its due date should be overdue")
	}
	if task.IsOverdue("2024-01-10") {
		t.Error("task due today is not overdue")
	}
	task.Completed = true
	if task.IsOverdue("2024-02-01") {
		t.Error("completed task is never overdue")
	}
}

func TestReminderActionPayloads(t *testing.T) {
	r := Reminder{ItemID: "r1", Actions: command.ReminderActions("r1")}
	got := r.ActionPayloads()
	want := []string{"complete_r1", "skip_r1", "postpone_r1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d payloads, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload %d = %q, want %q", i, got[i], want[i])
		}
	}
}
