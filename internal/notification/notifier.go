package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
)

// Message is one outgoing email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers customer-facing messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the provider configured in cfg.
func New(cfg config.NotificationConfig) (Notifier, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogNotifier(), nil
	case "sendgrid":
		return NewSendGridNotifier(cfg.APIKey, cfg.From, cfg.FromName), nil
	}
	return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
}

type logNotifier struct{}

// NewLogNotifier writes messages to the log instead of sending them.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "Notification (log only)", "to", msg.To, "subject", msg.Subject)
	logger.DebugContext(ctx, "Notification body", "to", msg.To, "text", msg.Text)
	return nil
}

// OverdueReminder builds the reminder sent to a customer holding overdue loans.
func OverdueReminder(c *domain.Customer, loans []domain.ActiveLoanView, now time.Time) Message {
	var text, html strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\nThe following tools are past their return date:\n\n", c.Name)
	fmt.Fprintf(&html, "<p>Dear %s,</p><p>The following tools are past their return date:</p><ul>", c.Name)
	for _, l := range loans {
		days := domain.DaysOverdue(l.DueDate, now)
		fmt.Fprintf(&text, "  - %s (loan %d), due %s, %d day(s) overdue\n", l.ToolGroupName, l.ID, l.DueDate.Format("2006-01-02"), days)
		fmt.Fprintf(&html, "<li><strong>%s</strong> (loan %d), due %s, %d day(s) overdue</li>", l.ToolGroupName, l.ID, l.DueDate.Format("2006-01-02"), days)
	}
	text.WriteString("\nLate returns accrue a daily fine. Please return them as soon as possible.\n\nThank you,\nToolRent")
	html.WriteString("</ul><p>Late returns accrue a daily fine. Please return them as soon as possible.</p><p>Thank you,<br>ToolRent</p>")

	subject := "Reminder: overdue tool return"
	if len(loans) > 1 {
		subject = fmt.Sprintf("Reminder: %d overdue tool returns", len(loans))
	}
	return Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}
}
