package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/pkg/protocol"
)

type postedMessage struct {
	channel string
	ts      string
}

type fakeWorkspace struct {
	mu          sync.Mutex
	postErr     error
	posts       []postedMessage
	updates     []string
	ephemerals  []string
	reactions   []string
	nextTS      int
	agentNames  map[string]string
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{agentNames: map[string]string{}}
}

func (f *fakeWorkspace) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.nextTS++
	ts := "1700000000.00000" + string(rune('0'+f.nextTS))
	f.posts = append(f.posts, postedMessage{channel: channelID, ts: ts})
	return channelID, ts, nil
}

func (f *fakeWorkspace) UpdateMessageContext(_ context.Context, channelID, timestamp string, _ ...slack.MsgOption) (string, string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, timestamp)
	return channelID, timestamp, "", nil
}

func (f *fakeWorkspace) PostEphemeralContext(_ context.Context, _, userID string, _ ...slack.MsgOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemerals = append(f.ephemerals, userID)
	return "", nil
}

func (f *fakeWorkspace) AddReactionContext(_ context.Context, name string, _ slack.ItemRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, name)
	return nil
}

func (f *fakeWorkspace) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.agentNames[user]; ok {
		return &slack.User{ID: user, Profile: slack.UserProfile{DisplayName: name}}, nil
	}
	return nil, errors.New("users_not_found")
}

func (f *fakeWorkspace) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func webUser(id string) identity.UserRef {
	return identity.UserRef{Channel: identity.ChannelWeb, RawID: id}
}

func newTestNotifier(api *fakeWorkspace) (*Notifier, *escalation.Store, *bus.MessageBus) {
	escStore := escalation.NewStore()
	msgBus := bus.New()
	stores := store.NewMemory()
	n := New(api, escStore, msgBus, stores.Audit, stores.Users, nil, "C0ESCALATE")
	return n, escStore, msgBus
}

func TestPublishAttachesThread(t *testing.T) {
	api := newFakeWorkspace()
	n, escStore, _ := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "I want a human")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if esc.ThreadRef == "" {
		t.Fatal("escalation has no thread ref")
	}
	got, err := escStore.FindByThread(esc.ThreadRef)
	if err != nil {
		t.Fatalf("FindByThread: %v", err)
	}
	if got.ID != esc.ID {
		t.Errorf("thread index resolves to %s, want %s", got.ID, esc.ID)
	}
}

func TestPublishReusesOpenEscalation(t *testing.T) {
	api := newFakeWorkspace()
	n, _, _ := newTestNotifier(api)

	first, err := n.Publish(context.Background(), webUser("u1"), "first complaint")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	second, err := n.Publish(context.Background(), webUser("u1"), "second complaint")
	if err != nil {
		t.Fatalf("Publish second: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected existing escalation reused, got new ID %s", second.ID)
	}
	if api.postCount() != 1 {
		t.Errorf("expected exactly one notice posted, got %d", api.postCount())
	}
}

func TestPublishFailureLeavesNoRecord(t *testing.T) {
	api := newFakeWorkspace()
	api.postErr = errors.New("channel_not_found")
	n, escStore, _ := newTestNotifier(api)

	if _, err := n.Publish(context.Background(), webUser("u1"), "help"); err == nil {
		t.Fatal("expected error when notice post fails")
	}
	if _, err := escStore.FindActiveByUser(webUser("u1")); !errors.Is(err, escalation.ErrNotFound) {
		t.Error("failed publish must not leave an open escalation")
	}

	// A later attempt must succeed from a clean slate.
	api.postErr = nil
	if _, err := n.Publish(context.Background(), webUser("u1"), "help again"); err != nil {
		t.Fatalf("publish after recovery: %v", err)
	}
}

func TestTakeOverSendsIntroOnce(t *testing.T) {
	api := newFakeWorkspace()
	api.agentNames["UAGENT"] = "Dana"
	n, _, msgBus := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	n.OnAgentAction(context.Background(), ActionTakeOver, esc.ID, "UAGENT")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, ok := msgBus.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("no intro message published")
	}
	if out.Type != bus.TypeAdmin {
		t.Errorf("intro type = %q, want admin", out.Type)
	}
	if out.User != webUser("u1") {
		t.Errorf("intro addressed to %v", out.User)
	}

	// Second click is idempotent: no second intro.
	n.OnAgentAction(context.Background(), ActionTakeOver, esc.ID, "UOTHER")
	ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()
	if _, ok := msgBus.SubscribeOutbound(ctx2); ok {
		t.Error("repeat take_over must not publish a second intro")
	}
}

func TestMarkResolvedIsIdempotent(t *testing.T) {
	api := newFakeWorkspace()
	n, escStore, msgBus := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	n.OnAgentAction(context.Background(), ActionMarkResolved, esc.ID, "UAGENT")
	drainOutbound(t, msgBus)
	n.OnAgentAction(context.Background(), ActionMarkResolved, esc.ID, "UAGENT")

	got, err := escStore.FindByEscalationID(esc.ID)
	if err != nil {
		t.Fatalf("resolved escalation must stay reachable by ID: %v", err)
	}
	if got.Status != escalation.StatusResolved {
		t.Errorf("status = %s, want resolved", got.Status)
	}
	if _, err := escStore.FindActiveByUser(webUser("u1")); !errors.Is(err, escalation.ErrNotFound) {
		t.Error("resolved escalation must not appear as the user's open escalation")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, ok := msgBus.SubscribeOutbound(ctx); ok {
		t.Error("repeat resolve must not notify the user again")
	}
}

func TestScheduleCallQueuesReminder(t *testing.T) {
	api := newFakeWorkspace()
	escStore := escalation.NewStore()
	msgBus := bus.New()
	stores := store.NewMemory()
	sched := &fakeScheduler{}
	n := New(api, escStore, msgBus, stores.Audit, stores.Users, sched, "C0ESCALATE")

	esc, err := n.Publish(context.Background(), webUser("u1"), "call me")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	n.OnAgentAction(context.Background(), ActionScheduleCall, esc.ID, "UAGENT")

	if len(sched.scheduled) != 1 || sched.scheduled[0] != esc.ID {
		t.Errorf("reminder not scheduled: %v", sched.scheduled)
	}
	if len(api.ephemerals) != 1 || api.ephemerals[0] != "UAGENT" {
		t.Errorf("agent ack ephemeral missing: %v", api.ephemerals)
	}
}

type fakeScheduler struct {
	scheduled []string
}

func (f *fakeScheduler) Schedule(escalationID, _ string) {
	f.scheduled = append(f.scheduled, escalationID)
}

func TestAgentReplyRelayedWithNameFallback(t *testing.T) {
	api := newFakeWorkspace()
	n, _, msgBus := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Lookup for UGHOST fails, so the generic label is used.
	n.OnAgentReply(context.Background(), esc.ThreadRef, "1700000000.999999", "Happy to help!", "UGHOST")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, ok := msgBus.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("agent reply was not relayed")
	}
	if !strings.HasPrefix(out.Text, "Support Agent: ") {
		t.Errorf("expected generic name fallback, got %q", out.Text)
	}
	if out.Type != bus.TypeAdmin {
		t.Errorf("relay type = %q, want admin", out.Type)
	}
}

func TestAgentReplyUnknownThreadIsSilentNoop(t *testing.T) {
	api := newFakeWorkspace()
	n, _, msgBus := newTestNotifier(api)

	n.OnAgentReply(context.Background(), "1699999999.000001", "", "random chatter", "UAGENT")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, ok := msgBus.SubscribeOutbound(ctx); ok {
		t.Error("reply in a non-escalation thread must not reach any user")
	}
}

func TestAgentReplyAfterResolveIsDropped(t *testing.T) {
	api := newFakeWorkspace()
	n, escStore, msgBus := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := escStore.Transition(esc.ID, escalation.StatusResolved, "UAGENT"); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	n.OnAgentReply(context.Background(), esc.ThreadRef, "", "too late", "UAGENT")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, ok := msgBus.SubscribeOutbound(ctx); ok {
		t.Error("reply after resolve must not reach the user")
	}
}

func TestForwardUserMessagePostsToThread(t *testing.T) {
	api := newFakeWorkspace()
	n, _, _ := newTestNotifier(api)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := n.ForwardUserMessage(context.Background(), esc, "still waiting"); err != nil {
		t.Fatalf("ForwardUserMessage: %v", err)
	}
	if api.postCount() != 2 {
		t.Errorf("expected notice + forward = 2 posts, got %d", api.postCount())
	}
}

func drainOutbound(t *testing.T, msgBus *bus.MessageBus) {
	t.Helper()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, ok := msgBus.SubscribeOutbound(ctx)
		cancel()
		if !ok {
			return
		}
	}
}

type fakeEmailer struct {
	sent chan escalation.Escalation
	err  error
}

func (f *fakeEmailer) SendEscalationAlert(esc escalation.Escalation) error {
	f.sent <- esc
	return f.err
}

func TestPublishBroadcastsAlert(t *testing.T) {
	api := newFakeWorkspace()
	n, _, msgBus := newTestNotifier(api)

	var got []bus.Event
	msgBus.Subscribe("test", func(e bus.Event) {
		got = append(got, e)
	})

	esc, err := n.Publish(context.Background(), webUser("u1"), "I want a human")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 broadcast event, got %d", len(got))
	}
	if got[0].Name != protocol.EventEscalationAlert {
		t.Errorf("event name = %q, want %q", got[0].Name, protocol.EventEscalationAlert)
	}
	alert, ok := got[0].Payload.(protocol.EscalationAlert)
	if !ok {
		t.Fatalf("payload is %T, want protocol.EscalationAlert", got[0].Payload)
	}
	if alert.EscalationID != esc.ID {
		t.Errorf("alert escalation id = %q, want %q", alert.EscalationID, esc.ID)
	}
	if alert.UserID != "web_u1" {
		t.Errorf("alert user = %q, want web_u1", alert.UserID)
	}
	if alert.Message != "I want a human" {
		t.Errorf("alert message = %q", alert.Message)
	}
}

func TestPublishSendsEmailAlert(t *testing.T) {
	api := newFakeWorkspace()
	n, _, _ := newTestNotifier(api)
	emailer := &fakeEmailer{sent: make(chan escalation.Escalation, 1)}
	n.SetEmailer(emailer)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case sent := <-emailer.sent:
		if sent.ID != esc.ID {
			t.Errorf("emailed escalation %s, want %s", sent.ID, esc.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("escalation email never sent")
	}
}

func TestEmailFailureDoesNotFailPublish(t *testing.T) {
	api := newFakeWorkspace()
	n, _, _ := newTestNotifier(api)
	emailer := &fakeEmailer{sent: make(chan escalation.Escalation, 1), err: errors.New("smtp down")}
	n.SetEmailer(emailer)

	esc, err := n.Publish(context.Background(), webUser("u1"), "help")
	if err != nil {
		t.Fatalf("Publish must not fail on email errors: %v", err)
	}
	if esc.Status != escalation.StatusActive {
		t.Errorf("escalation status = %s, want active", esc.Status)
	}
	<-emailer.sent
}
