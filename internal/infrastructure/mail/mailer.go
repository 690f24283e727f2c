// Package mail implements the decision notification sink over SMTP.
package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/pinsync/pinsync-server/internal/core/ports"
)

// Config captures the SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends approval decision e-mails. It implements ports.Notifier.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// NotifyDecision delivers the approval or rejection e-mail. A user without an
// e-mail address has nowhere to deliver to; that is not an error.
func (m *Mailer) NotifyDecision(_ context.Context, n ports.DecisionNotification) error {
	if n.Email == "" {
		return nil
	}

	subject := "Artist Request Rejected"
	body := fmt.Sprintf("Dear %s,\n\nYour artist request has been rejected. If you have any questions, please contact support.\n\nBest regards,\nArt Platform Team", n.Username)
	if n.Approved {
		subject = "Artist Request Approved"
		body = fmt.Sprintf("Dear %s,\n\nYour artist request has been approved! You can now log in and start uploading your artwork.\n\nBest regards,\nArt Platform Team", n.Username)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send decision mail: %w", err)
	}
	return nil
}
