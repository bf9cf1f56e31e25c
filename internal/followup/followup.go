// Package followup queues call-back reminders created by the schedule_call
// action and flushes them to the workspace on a cron cadence.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Reminder is one queued call-back request.
type Reminder struct {
	EscalationID string
	Agent        string
	QueuedAt     time.Time
}

// Deliver is called for each reminder on flush. Failures re-queue the
// reminder for the next tick.
type Deliver func(ctx context.Context, r Reminder) error

// Scheduler batches reminders and flushes them on each tick of its cron
// expression.
type Scheduler struct {
	expr    string
	deliver Deliver

	mu      sync.Mutex
	pending []Reminder
}

// NewScheduler validates the cron expression and builds a scheduler.
func NewScheduler(cronExpr string, deliver Deliver) (*Scheduler, error) {
	if cronExpr == "" {
		cronExpr = "*/15 * * * *"
	}
	if !gronx.New().IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cron expression %q", cronExpr)
	}
	return &Scheduler{expr: cronExpr, deliver: deliver}, nil
}

// Schedule queues a reminder. Implements the notifier's scheduler interface.
func (s *Scheduler) Schedule(escalationID, agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Reminder{
		EscalationID: escalationID,
		Agent:        agentID,
		QueuedAt:     time.Now(),
	})
	slog.Info("follow-up reminder queued", "escalation_id", escalationID, "agent", agentID)
}

// Pending returns the number of queued reminders.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run sleeps until each cron tick and flushes the queue. Blocks until ctx
// is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next, err := gronx.NextTick(s.expr, false)
		if err != nil {
			return fmt.Errorf("compute next tick: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
			s.Flush(ctx)
		}
	}
}

// Flush delivers all queued reminders. Failed deliveries stay queued.
func (s *Scheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var retry []Reminder
	for _, r := range batch {
		if err := s.deliver(ctx, r); err != nil {
			slog.Warn("reminder delivery failed, re-queueing",
				"escalation_id", r.EscalationID, "error", err)
			retry = append(retry, r)
		}
	}

	if len(retry) > 0 {
		s.mu.Lock()
		s.pending = append(retry, s.pending...)
		s.mu.Unlock()
	}
	slog.Info("follow-up reminders flushed", "delivered", len(batch)-len(retry), "retried", len(retry))
}
