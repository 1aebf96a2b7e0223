package icron

import (
	"testing"
	"time"
)

func TestGetTriggerInfo_Hourly(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@hourly", ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNext := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if !info.Next.Equal(wantNext) {
		t.Errorf("Next = %v, want %v", info.Next, wantNext)
	}
	wantLast := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if !info.Last.Equal(wantLast) {
		t.Errorf("Last = %v, want %v", info.Last, wantLast)
	}
	if info.TimeUntilNext != 30*time.Minute {
		t.Errorf("TimeUntilNext = %v, want 30m", info.TimeUntilNext)
	}
	if info.TimeSinceLast != 30*time.Minute {
		t.Errorf("TimeSinceLast = %v, want 30m", info.TimeSinceLast)
	}
}

func TestGetTriggerInfo_FiveFieldExpression(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 0 * * *", ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantNext := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !info.Next.Equal(wantNext) {
		t.Errorf("Next = %v, want %v", info.Next, wantNext)
	}
}

func TestGetTriggerInfo_InvalidExpression(t *testing.T) {
	if _, err := GetTriggerInfo("not cron", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}
