package notifier

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
)

// EmailNotifier sends escalation alert emails over SMTP to the support
// distribution list. It is invoked fire-and-forget from Publish: a broken
// mail setup must never break the chat flow.
type EmailNotifier struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
}

var _ EscalationEmailer = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg config.EmailConfig) (*EmailNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("email smtp_host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("email recipient list is empty")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, port, cfg.Username, cfg.Password),
	}, nil
}

func (e *EmailNotifier) SendEscalationAlert(esc escalation.Escalation) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", []string(e.cfg.To)...)
	m.SetHeader("Subject", fmt.Sprintf("🚨 Chatbot Escalation Alert - %s", esc.User))
	m.SetBody("text/html", escalationEmailBody(esc))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send escalation email: %w", err)
	}
	return nil
}

func escalationEmailBody(esc escalation.Escalation) string {
	return fmt.Sprintf(`<h2>🚨 Chatbot Escalation Alert</h2>
<p>A conversation has been escalated to a human agent.</p>
<ul>
  <li><strong>User:</strong> %s</li>
  <li><strong>Channel:</strong> %s</li>
  <li><strong>Time:</strong> %s</li>
  <li><strong>Escalation ID:</strong> %s</li>
</ul>
<p><strong>Original Message:</strong></p>
<blockquote>%s</blockquote>
<p>Please respond in the escalation thread in the support workspace.</p>`,
		esc.User, esc.User.Channel, esc.CreatedAt.Format(time.RFC1123), esc.ID, esc.OriginalMessage)
}
