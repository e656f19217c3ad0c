package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type Service interface {
	SendDueDateReminder(ctx context.Context, to, name, subject string, dueDate time.Time, link string) error
	SendCustom(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendDueDateReminder(ctx context.Context, to, name, subject string, dueDate time.Time, link string) error {
	body := fmt.Sprintf(
		"Hi %s,<br><br>%s is due on %s.<br><br><a href=%q>Open in the dashboard</a>",
		name, subject, dueDate.Format("Monday, 2 January 2006"), link,
	)
	return s.SendCustom(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
