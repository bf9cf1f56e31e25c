package escalation

import (
	"errors"
	"sync"
	"testing"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

func webUser(id string) identity.UserRef {
	return identity.UserRef{Channel: identity.ChannelWeb, RawID: id}
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	s := NewStore()
	user := webUser("u1")

	first, err := s.Create(user, "help")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second, err := s.Create(user, "help again")
	if !errors.Is(err, ErrDuplicateActive) {
		t.Fatalf("second create err = %v, want ErrDuplicateActive", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate create returned id %s, want existing %s", second.ID, first.ID)
	}
}

func TestCreateAfterResolveAllowed(t *testing.T) {
	s := NewStore()
	user := webUser("u1")

	first, _ := s.Create(user, "help")
	if _, err := s.Transition(first.ID, StatusResolved, "agent1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	second, err := s.Create(user, "more help")
	if err != nil {
		t.Fatalf("create after resolve: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh escalation after resolution")
	}
}

func TestIndexConsistency(t *testing.T) {
	s := NewStore()
	user := identity.UserRef{Channel: identity.ChannelWhatsApp, RawID: "15551234567"}

	esc, err := s.Create(user, "I want to speak to a human")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.AttachThread(esc.ID, "T123"); err != nil {
		t.Fatalf("attach thread: %v", err)
	}

	byID, err := s.FindByEscalationID(esc.ID)
	if err != nil || byID.ID != esc.ID {
		t.Fatalf("FindByEscalationID: %v", err)
	}
	byThread, err := s.FindByThread("T123")
	if err != nil || byThread.ID != esc.ID {
		t.Fatalf("FindByThread: %v", err)
	}
	byUser, err := s.FindActiveByUser(user)
	if err != nil || byUser.ID != esc.ID {
		t.Fatalf("FindActiveByUser: %v", err)
	}

	// After resolution the user index forgets the record; the other two keep it.
	if _, err := s.Transition(esc.ID, StatusResolved, "agent1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := s.FindActiveByUser(user); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActiveByUser after resolve err = %v, want ErrNotFound", err)
	}
	if got, err := s.FindByEscalationID(esc.ID); err != nil || got.Status != StatusResolved {
		t.Errorf("FindByEscalationID after resolve = %+v, %v", got, err)
	}
	if got, err := s.FindByThread("T123"); err != nil || got.Status != StatusResolved {
		t.Errorf("FindByThread after resolve = %+v, %v", got, err)
	}
}

func TestTransitionGraph(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"active to taken_over", StatusActive, StatusTakenOver, false},
		{"active to resolved", StatusActive, StatusResolved, false},
		{"taken_over to resolved", StatusTakenOver, StatusResolved, false},
		{"taken_over to taken_over", StatusTakenOver, StatusTakenOver, true},
		{"resolved to resolved", StatusResolved, StatusResolved, true},
		{"resolved to active", StatusResolved, StatusActive, true},
		{"resolved to taken_over", StatusResolved, StatusTakenOver, true},
		{"active to active", StatusActive, StatusActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			esc, _ := s.Create(webUser("u1"), "help")

			// Walk the record into the starting state.
			switch tt.from {
			case StatusTakenOver:
				if _, err := s.Transition(esc.ID, StatusTakenOver, "a"); err != nil {
					t.Fatalf("setup: %v", err)
				}
			case StatusResolved:
				if _, err := s.Transition(esc.ID, StatusResolved, "a"); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}

			_, err := s.Transition(esc.ID, tt.to, "a")
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		})
	}
}

func TestResolveTwiceKeepsTerminalState(t *testing.T) {
	s := NewStore()
	esc, _ := s.Create(webUser("u1"), "help")

	if _, err := s.Transition(esc.ID, StatusResolved, "agent1"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	got, err := s.Transition(esc.ID, StatusResolved, "agent2")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second resolve err = %v, want ErrInvalidTransition", err)
	}
	if got.Status != StatusResolved || got.Agent != "agent1" {
		t.Errorf("second resolve mutated state: %+v", got)
	}
}

func TestDiscardRemovesAllIndices(t *testing.T) {
	s := NewStore()
	user := webUser("u1")
	esc, _ := s.Create(user, "help")
	_ = s.AttachThread(esc.ID, "T1")

	s.Discard(esc.ID)

	if _, err := s.FindByEscalationID(esc.ID); !errors.Is(err, ErrNotFound) {
		t.Error("record still reachable by ID after discard")
	}
	if _, err := s.FindByThread("T1"); !errors.Is(err, ErrNotFound) {
		t.Error("record still reachable by thread after discard")
	}
	if _, err := s.FindActiveByUser(user); !errors.Is(err, ErrNotFound) {
		t.Error("record still reachable by user after discard")
	}
	if _, err := s.Create(user, "retry"); err != nil {
		t.Errorf("create after discard: %v", err)
	}
}

// Concurrent escalating messages from one user must never yield two open
// escalations.
func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := NewStore()
	user := webUser("u1")

	const workers = 16
	var wg sync.WaitGroup
	created := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.LockUser(user)
			defer unlock()
			if esc, err := s.Create(user, "help"); err == nil {
				created <- esc.ID
			}
		}()
	}
	wg.Wait()
	close(created)

	var ids []string
	for id := range created {
		ids = append(ids, id)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d successful creates, want exactly 1", len(ids))
	}
}
