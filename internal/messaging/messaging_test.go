package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeEmailSender struct {
	configured bool
	sent       []Email
	err        error
}

func (f *fakeEmailSender) Configured() bool { return f.configured }

func (f *fakeEmailSender) Send(ctx context.Context, email Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return "<id@test>", nil
}

type fakeSMSSender struct {
	configured bool
	to         []string
	bodies     []string
	err        error
}

func (f *fakeSMSSender) Configured() bool { return f.configured }

func (f *fakeSMSSender) Send(ctx context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return "SM123", nil
}

func TestDispatcher_SendEmail(t *testing.T) {
	ctx := context.Background()
	email := Email{To: "lead@example.com", Subject: "Hi", Text: "Hello"}

	t.Run("success", func(t *testing.T) {
		sender := &fakeEmailSender{configured: true}
		result := NewDispatcher(sender, nil, zap.NewNop()).SendEmail(ctx, email)
		assert.True(t, result.Success)
		assert.Equal(t, "<id@test>", result.ID)
		assert.Len(t, sender.sent, 1)
	})

	t.Run("not configured", func(t *testing.T) {
		result := NewDispatcher(&fakeEmailSender{}, nil, zap.NewNop()).SendEmail(ctx, email)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "not configured")

		result = NewDispatcher(nil, nil, zap.NewNop()).SendEmail(ctx, email)
		assert.False(t, result.Success)
	})

	t.Run("invalid recipient", func(t *testing.T) {
		sender := &fakeEmailSender{configured: true}
		result := NewDispatcher(sender, nil, zap.NewNop()).SendEmail(ctx, Email{To: "nobody"})
		assert.False(t, result.Success)
		assert.Empty(t, sender.sent)
	})

	t.Run("provider error", func(t *testing.T) {
		sender := &fakeEmailSender{configured: true, err: errors.New("550 mailbox unavailable")}
		result := NewDispatcher(sender, nil, zap.NewNop()).SendEmail(ctx, email)
		assert.False(t, result.Success)
		assert.Equal(t, "550 mailbox unavailable", result.Error)
	})
}

func TestDispatcher_SendSMS(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and truncates", func(t *testing.T) {
		sms := &fakeSMSSender{configured: true}
		result := NewDispatcher(nil, sms, zap.NewNop()).SendSMS(ctx, "4155550100", strings.Repeat("x", 500))
		assert.True(t, result.Success)
		assert.Equal(t, "SM123", result.ID)
		assert.Equal(t, []string{"+14155550100"}, sms.to)
		assert.Len(t, sms.bodies[0], MaxSMSLen)
	})

	t.Run("no phone", func(t *testing.T) {
		sms := &fakeSMSSender{configured: true}
		result := NewDispatcher(nil, sms, zap.NewNop()).SendSMS(ctx, "  ", "hi")
		assert.False(t, result.Success)
		assert.Empty(t, sms.to)
	})

	t.Run("not configured", func(t *testing.T) {
		result := NewDispatcher(nil, &fakeSMSSender{}, zap.NewNop()).SendSMS(ctx, "+14155550100", "hi")
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "TWILIO_ACCOUNT_SID")
	})
}

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"4155550100", "+14155550100"},
		{"14155550100", "+14155550100"},
		{"+447700900123", "+447700900123"},
		{" 4155550100 ", "+14155550100"},
		{"(555) 123-4567", "+15551234567"},
		{"+1 212.555.0199", "+12125550199"},
		{"+44 7700 900123", "+447700900123"},
		{"call me", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeE164(tt.in), tt.in)
	}
}

func TestPlainToHTML(t *testing.T) {
	assert.Equal(t, "<p></p>", PlainToHTML(""))
	assert.Equal(t, "<p>Hi &lt;Ann&gt;</p><p>Call &amp; see</p>", PlainToHTML("Hi <Ann>\n\n\n\nCall & see"))
}

func TestAppendSignature(t *testing.T) {
	html, text := AppendSignature("<html><body><p>Hi</p></body></html>", "Hi\n", "Bright Studio\n555-0100")
	assert.Equal(t, "Hi\n\nBright Studio\n555-0100", text)
	assert.Equal(t, "<html><body><p>Hi</p><p style='margin-top:1em;white-space:pre-wrap;font-size:14px;'>Bright Studio<br>555-0100</p></body></html>", html)

	html, _ = AppendSignature("<p>Hi</p>", "Hi", "A & B")
	assert.Equal(t, "<p>Hi</p><p style='margin-top:1em;white-space:pre-wrap;font-size:14px;'>A &amp; B</p>", html)

	html, text = AppendSignature("<p>Hi</p>", "Hi", "   ")
	assert.Equal(t, "<p>Hi</p>", html)
	assert.Equal(t, "Hi", text)
}

func TestAutoreplyBodies(t *testing.T) {
	html, text := AutoreplyBodies("Ann", "Thanks for reaching out.", "Bright Studio")
	assert.Equal(t, "<p>Hi Ann,</p><p>Thanks for reaching out.</p><p>Best regards,<br><strong>Bright Studio</strong></p>", html)
	assert.Equal(t, "Hi Ann,\n\nThanks for reaching out.\n\nBest regards,\nBright Studio", text)
}
