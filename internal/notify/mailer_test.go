package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/gomail.v2"

	"github.com/rainbow59216/snatcher/pkg/config"
)

type captureSender struct {
	messages []*gomail.Message
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.messages = append(s.messages, m...)
	return nil
}

func TestMailerSendsWhenEnabled(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(config.MailConfig{Enabled: true, From: "noreply@example.com"}, nil)
	mailer.sender = sender

	mailer.NotifySuccess(context.Background(), "student@example.com", "2024123456", "Film Appreciation")

	assert.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"Seat secured: Film Appreciation"}, sender.messages[0].GetHeader("Subject"))
	assert.Equal(t, []string{"student@example.com"}, sender.messages[0].GetHeader("To"))
}

func TestMailerDisabledIsNoop(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(config.MailConfig{Enabled: false}, nil)
	mailer.sender = sender

	mailer.NotifyFailure(context.Background(), "student@example.com", "2024123456", "Film Appreciation", "class is full")

	assert.Empty(t, sender.messages)
}

func TestMailerSkipsEmptyRecipient(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailer(config.MailConfig{Enabled: true, From: "noreply@example.com"}, nil)
	mailer.sender = sender

	mailer.NotifyLoginFailure(context.Background(), "", "2024123456")

	assert.Empty(t, sender.messages)
}
