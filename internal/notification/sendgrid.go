package notification

import (
	"context"
	"fmt"

	"toolrent-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailClient is the part of *sendgrid.Client the notifier uses.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridNotifier struct {
	client    mailClient
	fromEmail string
	fromName  string
}

func NewSendGridNotifier(apiKey, fromEmail, fromName string) Notifier {
	return newSendGridNotifier(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func newSendGridNotifier(client mailClient, fromEmail, fromName string) *sendGridNotifier {
	return &sendGridNotifier{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridNotifier) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	logger.ExternalServiceCall("sendgrid", "Send", "to", msg.To, "subject", msg.Subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("sendgrid", "Send", err)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "Send", err, "status", response.StatusCode)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "Send", nil, "status", response.StatusCode)
	return nil
}
