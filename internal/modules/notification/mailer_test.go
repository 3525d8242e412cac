package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailer_RequiresHostAndSender(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "ecowash@example.com", Port: 25}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSMTPMailer_RejectsInvalidAddressesBeforeDialling(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.invalid",
		Port:     2525,
		From:     "ecowash@example.com",
		Username: "user",
		Password: "secret",
		StartTLS: true,
		Timeout:  time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "not an address", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient address")
}

func TestSMTPMailer_BuildsPlainTextMessage(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "ecowash@example.com"}, zerolog.Nop())
	require.NoError(t, err)

	msg, err := mailer.build(Message{To: "lab@example.com", Subject: "Result", Body: "Add 1 of EcoAdd 2"})
	require.NoError(t, err)
	require.Len(t, msg.GetTo(), 1)
	assert.Equal(t, "lab@example.com", msg.GetTo()[0].Address)
}

func TestLogMailer_ReportsNotConfigured(t *testing.T) {
	mailer := NewLogMailer(zerolog.Nop())
	assert.ErrorIs(t, mailer.Send(context.Background(), Message{To: "lab@example.com"}), ErrNotConfigured)
}
