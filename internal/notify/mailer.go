package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/rainbow59216/snatcher/pkg/config"
)

// Sender abstracts the SMTP dial so tests can capture messages.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers end-of-goal emails. Delivery is best effort: a send
// failure is logged and never fails the run.
type Mailer struct {
	cfg    config.MailConfig
	sender Sender
	logger *zap.Logger
}

// NewMailer constructs a Mailer. With mail disabled every notification is a
// no-op.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mailer{cfg: cfg, logger: logger}
	if cfg.Enabled {
		m.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// NotifySuccess mails the student that a seat was secured.
func (m *Mailer) NotifySuccess(ctx context.Context, email, username, courseName string) {
	subject := fmt.Sprintf("Seat secured: %s", courseName)
	body := fmt.Sprintf("Hi %s,\n\nYour enrollment in %q was confirmed.\n", username, courseName)
	m.send(email, subject, body)
}

// NotifyFailure mails the student that a goal ended without a seat.
func (m *Mailer) NotifyFailure(ctx context.Context, email, username, courseName, reason string) {
	subject := fmt.Sprintf("Enrollment failed: %s", courseName)
	body := fmt.Sprintf("Hi %s,\n\nYour enrollment in %q did not go through: %s.\n", username, courseName, reason)
	m.send(email, subject, body)
}

// NotifyVacancy tells a watcher that a seat opened up in a section they
// follow.
func (m *Mailer) NotifyVacancy(ctx context.Context, email, username, courseName string) {
	subject := fmt.Sprintf("Seat opened: %s", courseName)
	body := fmt.Sprintf("Hi %s,\n\nA seat just opened up in %q. Book quickly if you still want it.\n", username, courseName)
	m.send(email, subject, body)
}

// NotifyLoginFailure alerts the student that their stored credential was
// refused, so no attempt will run for this booking.
func (m *Mailer) NotifyLoginFailure(ctx context.Context, email, username string) {
	subject := "Sign-in failed"
	body := fmt.Sprintf("Hi %s,\n\nSigning in with your stored credential failed. Please submit a new booking with a fresh password or session cookie.\n", username)
	m.send(email, subject, body)
}

func (m *Mailer) send(to, subject, body string) {
	if !m.cfg.Enabled || m.sender == nil || to == "" {
		return
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		m.logger.Warn("mail delivery failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}
