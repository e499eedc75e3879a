package scheduler

import (
	"context"
	"testing"
)

func TestAddRejectsBadSchedule(t *testing.T) {
	s := New(nil)
	err := s.Add(context.Background(), Job{Name: "broken", Schedule: "every minute", Run: func(context.Context) error { return nil }})
	if err == nil {
		t.Fatalf("expected bad schedule to fail")
	}
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	for _, schedule := range []string{"@every 1m", "@hourly", "*/5 * * * *"} {
		if err := s.Add(context.Background(), Job{Name: schedule, Schedule: schedule, Run: func(context.Context) error { return nil }}); err != nil {
			t.Fatalf("add %q failed: %v", schedule, err)
		}
	}
	if len(s.cron.Entries()) != 3 {
		t.Fatalf("expected three entries, got %d", len(s.cron.Entries()))
	}
	s.Start()
	s.Stop()
}
