package followup

import (
	"context"
	"errors"
	"testing"
)

func TestFlushDeliversQueuedReminders(t *testing.T) {
	var delivered []Reminder
	s, err := NewScheduler("*/15 * * * *", func(_ context.Context, r Reminder) error {
		delivered = append(delivered, r)
		return nil
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.Schedule("esc-1", "UAGENT")
	s.Schedule("esc-2", "UAGENT")
	s.Flush(context.Background())

	if len(delivered) != 2 {
		t.Fatalf("delivered %d reminders, want 2", len(delivered))
	}
	if delivered[0].EscalationID != "esc-1" || delivered[1].EscalationID != "esc-2" {
		t.Errorf("wrong order: %+v", delivered)
	}
	if s.Pending() != 0 {
		t.Errorf("queue not drained: %d left", s.Pending())
	}
}

func TestFlushRequeuesFailures(t *testing.T) {
	failing := true
	s, err := NewScheduler("", func(_ context.Context, r Reminder) error {
		if failing {
			return errors.New("workspace unreachable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.Schedule("esc-1", "UAGENT")
	s.Flush(context.Background())
	if s.Pending() != 1 {
		t.Fatalf("failed delivery must stay queued, pending=%d", s.Pending())
	}

	failing = false
	s.Flush(context.Background())
	if s.Pending() != 0 {
		t.Errorf("retry should have drained the queue, pending=%d", s.Pending())
	}
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	if _, err := NewScheduler("not a cron", nil); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}
