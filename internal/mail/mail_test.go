package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coinlecture/internal/config"
)

func TestConfirmationMessage(t *testing.T) {
	msg, err := ConfirmationMessage("jane@example.com", "Jane", "http://localhost:3000/confirm-email?token=abc")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, confirmationSubject, msg.Subject)
	assert.Contains(t, msg.HTML, `href="http://localhost:3000/confirm-email?token=abc"`)
	assert.Contains(t, msg.HTML, "48 heures")
	assert.Contains(t, msg.Text, "token=abc")
}

func TestResendMessage_EscapesName(t *testing.T) {
	msg, err := ResendMessage("jane@example.com", "<b>Jane</b>", "http://x/confirm-email?token=t")
	require.NoError(t, err)

	assert.Equal(t, resendSubject, msg.Subject)
	assert.NotContains(t, msg.HTML, "<b>Jane</b>")
	assert.Contains(t, msg.HTML, "&lt;b&gt;Jane&lt;/b&gt;")
}

func TestNew_WithoutHostLogsOnly(t *testing.T) {
	m, err := New(config.MailConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
}

func TestSMTPMailer_SendFailsWhenUnreachable(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = m.Send(ctx, Message{To: "jane@example.com", Subject: "s", HTML: "<p>hi</p>"})
	assert.Error(t, err)
}
