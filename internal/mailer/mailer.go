package mailer

import (
	"fmt"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/config"
	"gopkg.in/gomail.v2"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends owner notifications over SMTP.
type SMTPMailer struct {
	dialer sender
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPMailer) SendListingCreatedEmail(toEmail, listingTitle string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "New Place Created")
	m.SetBody("text/plain", fmt.Sprintf("Your place '%s' has been created successfully.", listingTitle))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send listing created email to %s: %w", toEmail, err)
	}
	return nil
}
