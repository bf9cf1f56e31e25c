package escalation

import (
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// Action is the routing decision for one inbound message.
type Action int

const (
	// ActionAutoReply invokes the automated responder.
	ActionAutoReply Action = iota
	// ActionEscalate opens a new human handoff.
	ActionEscalate
	// ActionForwardToAgent forwards the message into an existing handoff
	// thread; the automated responder is bypassed entirely.
	ActionForwardToAgent
)

func (a Action) String() string {
	switch a {
	case ActionEscalate:
		return "escalate"
	case ActionForwardToAgent:
		return "forward_to_agent"
	default:
		return "auto_reply"
	}
}

// Decision is the engine's verdict. Escalation is set only for
// ActionForwardToAgent, pointing at the user's open handoff.
type Decision struct {
	Action     Action
	Escalation Escalation
}

// Sentiment labels produced by the sentiment collaborator.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Engine decides, per inbound message, whether to reply automatically,
// escalate, or forward to an engaged human agent.
type Engine struct {
	store *Store
}

// NewEngine creates a decision engine reading from store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Decide routes one inbound message.
//
// An open escalation takes priority over everything else: once a human has
// taken ownership, automated replies competing with the human for the same
// conversation would confuse the user, so routing stays sticky until
// explicit resolution. Otherwise the message escalates when it contains a
// language-specific escalation keyword or carries negative sentiment.
func (e *Engine) Decide(user identity.UserRef, text, language, sentiment string) Decision {
	if esc, err := e.store.FindActiveByUser(user); err == nil && esc.Open() {
		return Decision{Action: ActionForwardToAgent, Escalation: esc}
	}

	if ContainsEscalationKeyword(text, language) || sentiment == SentimentNegative {
		return Decision{Action: ActionEscalate}
	}

	return Decision{Action: ActionAutoReply}
}
