package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	if _, err := NewCronScheduler("61 * * * *", nil, nil); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := NewCronScheduler("* * * * * *", nil, nil); err == nil {
		t.Fatalf("seconds field must be rejected")
	}
}

func TestCronSchedulerNextUsesLocation(t *testing.T) {
	t.Parallel()

	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, err := NewCronScheduler("0 6 * * *", madrid, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next := s.Next(from)
	want := time.Date(2025, 6, 2, 6, 0, 0, 0, madrid)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestCronSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("@every 1s", time.UTC, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	fired := make(chan time.Time, 4)
	if err := s.Start(context.Background(), func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("start: %v", err)
	}
	// second start is a no-op
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}

	select {
	case at := <-fired:
		if at.Location() != time.UTC {
			t.Fatalf("job time not in scheduler location: %v", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job never fired")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
