package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

// EmailMessage is a rendered, ready to send email.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailService delivers transactional email.
type EmailService interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type mailgunEmailService struct {
	client *mailgun.MailgunImpl
	from   string
	log    *zap.Logger
}

// NewMailgunEmailService sends through the Mailgun API. apiBase overrides
// the default endpoint when non-empty (EU region, tests).
func NewMailgunEmailService(domain, apiKey, apiBase, from string, log *zap.Logger) EmailService {
	client := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &mailgunEmailService{
		client: client,
		from:   from,
		log:    log.Named("email.mailgun"),
	}
}

func (s *mailgunEmailService) Send(ctx context.Context, msg EmailMessage) error {
	message := s.client.NewMessage(s.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, id, err := s.client.Send(sendCtx, message)
	if err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}

	s.log.Info("email sent", zap.String("to", msg.To), zap.String("message_id", id))
	return nil
}

type logEmailService struct {
	log *zap.Logger
}

// NewLogEmailService only logs messages. Used when no provider is
// configured.
func NewLogEmailService(log *zap.Logger) EmailService {
	return &logEmailService{log: log.Named("email.log")}
}

func (s *logEmailService) Send(_ context.Context, msg EmailMessage) error {
	s.log.Info("email provider not configured, logging email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
