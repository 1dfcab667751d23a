package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/slotwise/scheduler-api/internal/model"
)

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SlotLayout string
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    SMTPConfig
}

// NewSMTPService sends mail over SMTP via gomail. The dialer opens a
// connection per send, which is fine at queue-worker volumes.
func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *smtpService) SendCancellation(ctx context.Context, mail model.CancellationMail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	when := mail.ScheduledAt.Format(s.cfg.SlotLayout)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetAddressHeader("To", mail.ProviderEmail, mail.ProviderName)
	m.SetHeader("Subject", "Appointment canceled")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nThe appointment with %s scheduled for %s has been canceled.\n",
		mail.ProviderName, mail.ClientName, when,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send cancellation mail: %w", err)
	}
	return nil
}
