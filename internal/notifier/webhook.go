package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// EventsHandler serves the Slack Events API webhook for deployments that
// cannot hold a Socket Mode connection. URL verification is answered
// inline; everything else is acked with 200 immediately and processed off
// the request goroutine, since Slack retries anything slower than 3s.
func (n *Notifier) EventsHandler(signingSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		if signingSecret != "" {
			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			verifier.Write(body)
			if err := verifier.Ensure(); err != nil {
				slog.Warn("events webhook signature mismatch")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
		if err != nil {
			slog.Warn("events webhook parse failed", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		switch event.Type {
		case slackevents.URLVerification:
			var challenge slackevents.ChallengeResponse
			if err := json.Unmarshal(body, &challenge); err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(challenge.Challenge))

		case slackevents.CallbackEvent:
			w.WriteHeader(http.StatusOK)
			n.dispatchCallback(event.InnerEvent)

		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func (n *Notifier) dispatchCallback(inner slackevents.EventsAPIInnerEvent) {
	ev, ok := inner.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Only human thread replies matter; top-level chatter and our own bot
	// posts are ignored.
	if ev.BotID != "" || ev.ThreadTimeStamp == "" || ev.Text == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		n.OnAgentReply(ctx, ev.ThreadTimeStamp, ev.TimeStamp, ev.Text, ev.User)
	}()
}

// InteractiveHandler serves the Slack interactivity webhook (button clicks).
// The payload arrives form-encoded; the response is always 200 with the
// action processed asynchronously.
func (n *Notifier) InteractiveHandler(signingSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		if signingSecret != "" {
			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			verifier.Write(body)
			if err := verifier.Ensure(); err != nil {
				slog.Warn("interactive webhook signature mismatch")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		values, err := url.ParseQuery(string(body))
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		var callback slack.InteractionCallback
		if err := json.Unmarshal([]byte(values.Get("payload")), &callback); err != nil {
			slog.Warn("interactive payload decode failed", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
		n.DispatchInteraction(callback)
	}
}

// DispatchInteraction routes block actions from a callback to OnAgentAction.
// Shared by the HTTP webhook and the Socket Mode listener.
func (n *Notifier) DispatchInteraction(callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}
	for _, action := range callback.ActionCallback.BlockActions {
		actionID, value, agent := action.ActionID, action.Value, callback.User.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			n.OnAgentAction(ctx, actionID, value, agent)
		}()
	}
}
