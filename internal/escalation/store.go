package escalation

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

const lockStripes = 64

// Store holds escalation records with three lookup paths: by escalation ID
// (agent button actions), by thread ref (agent thread replies) and by user
// (routing inbound messages while an escalation is open). All mutations
// update every index under one lock, so no reader can observe a record
// reachable from one index but not another.
//
// Resolved records leave the user index only; the other two keep them for
// idempotent agent actions and late thread replies.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*Escalation
	byThread map[string]*Escalation
	byUser   map[string]*Escalation // open escalations only, keyed by UserRef.String()

	stripes [lockStripes]sync.Mutex
}

// NewStore creates an empty escalation store.
func NewStore() *Store {
	return &Store{
		byID:     make(map[string]*Escalation),
		byThread: make(map[string]*Escalation),
		byUser:   make(map[string]*Escalation),
	}
}

// LockUser acquires the per-user stripe and returns the unlock func.
// Callers hold it across check-then-act sequences that span multiple store
// calls (e.g. create → post notice → attach thread), so two near-simultaneous
// escalating messages from one user serialize instead of racing.
func (s *Store) LockUser(user identity.UserRef) func() {
	stripe := &s.stripes[stripeIndex(user.String())]
	stripe.Lock()
	return stripe.Unlock
}

func stripeIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// Create allocates a new active escalation for user. Returns
// ErrDuplicateActive (with the existing record) when the user already has
// an open escalation: at most one open escalation may exist per user.
func (s *Store) Create(user identity.UserRef, originalMessage string) (Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byUser[user.String()]; ok {
		return *existing, ErrDuplicateActive
	}

	esc := &Escalation{
		ID:              uuid.NewString(),
		User:            user,
		Status:          StatusActive,
		OriginalMessage: originalMessage,
		CreatedAt:       time.Now().UTC(),
	}
	s.byID[esc.ID] = esc
	s.byUser[user.String()] = esc
	return *esc, nil
}

// AttachThread records the workspace thread the notice was posted to.
// Must happen before any agent reply can be correlated.
func (s *Store) AttachThread(escalationID, threadRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	esc, ok := s.byID[escalationID]
	if !ok {
		return ErrNotFound
	}
	if esc.ThreadRef != "" && esc.ThreadRef != threadRef {
		delete(s.byThread, esc.ThreadRef)
	}
	esc.ThreadRef = threadRef
	s.byThread[threadRef] = esc
	return nil
}

// Discard removes an escalation from every index. Used when posting the
// workspace notice fails after Create, so no orphaned record survives and
// a retry can create a fresh one.
func (s *Store) Discard(escalationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	esc, ok := s.byID[escalationID]
	if !ok {
		return
	}
	delete(s.byID, esc.ID)
	if esc.ThreadRef != "" {
		delete(s.byThread, esc.ThreadRef)
	}
	delete(s.byUser, esc.User.String())
}

// FindByEscalationID looks up a record by its ID. Resolved records remain
// reachable here.
func (s *Store) FindByEscalationID(id string) (Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	esc, ok := s.byID[id]
	if !ok {
		return Escalation{}, ErrNotFound
	}
	return *esc, nil
}

// FindByThread looks up a record by its workspace thread reference.
// Resolved records remain reachable here.
func (s *Store) FindByThread(threadRef string) (Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	esc, ok := s.byThread[threadRef]
	if !ok {
		return Escalation{}, ErrNotFound
	}
	return *esc, nil
}

// FindActiveByUser returns the user's open (active or taken_over)
// escalation, or ErrNotFound.
func (s *Store) FindActiveByUser(user identity.UserRef) (Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	esc, ok := s.byUser[user.String()]
	if !ok {
		return Escalation{}, ErrNotFound
	}
	return *esc, nil
}

// Transition moves an escalation to newStatus, validating against the state
// graph. On resolve the record leaves the user index; the ID and thread
// indices keep it. Returns the updated record.
func (s *Store) Transition(escalationID string, newStatus Status, actor string) (Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	esc, ok := s.byID[escalationID]
	if !ok {
		return Escalation{}, ErrNotFound
	}
	if !validTransition(esc.Status, newStatus) {
		slog.Debug("rejected escalation transition",
			"escalation_id", escalationID,
			"from", esc.Status,
			"to", newStatus,
		)
		return *esc, ErrInvalidTransition
	}

	esc.Status = newStatus
	if actor != "" {
		esc.Agent = actor
	}
	if newStatus == StatusResolved {
		esc.ResolvedAt = time.Now().UTC()
		delete(s.byUser, esc.User.String())
	}
	return *esc, nil
}
