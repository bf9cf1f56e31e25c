// Package escalation implements the human-handoff core: the escalation
// store (single source of truth for "is this user currently being handled
// by a human") and the decision engine that routes each inbound message to
// automated reply, escalation, or forwarding to an engaged agent.
package escalation

import (
	"errors"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// Status is the lifecycle state of an escalation.
type Status string

const (
	StatusActive    Status = "active"
	StatusTakenOver Status = "taken_over"
	StatusResolved  Status = "resolved"
)

// Escalation is one human-handoff episode for one user's conversation.
type Escalation struct {
	ID              string
	User            identity.UserRef
	ThreadRef       string // workspace thread the notice was posted to
	Status          Status
	Agent           string // workspace member ID of the agent who acted
	OriginalMessage string
	CreatedAt       time.Time
	ResolvedAt      time.Time
}

// Open reports whether the escalation still owns the user's conversation.
func (e *Escalation) Open() bool {
	return e.Status == StatusActive || e.Status == StatusTakenOver
}

var (
	// ErrDuplicateActive is returned by Create when the user already has an
	// open escalation. Callers treat this as "reuse existing", never as a
	// user-visible failure.
	ErrDuplicateActive = errors.New("escalation: user already has an active escalation")

	// ErrInvalidTransition is returned when a status change is unreachable
	// from the current status (e.g. resolved → active).
	ErrInvalidTransition = errors.New("escalation: invalid status transition")

	// ErrNotFound is returned by lookups that miss.
	ErrNotFound = errors.New("escalation: not found")
)

// validTransition encodes the allowed state graph:
// active → taken_over, active|taken_over → resolved. Resolved is terminal.
func validTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusTakenOver || to == StatusResolved
	case StatusTakenOver:
		return to == StatusResolved
	}
	return false
}
