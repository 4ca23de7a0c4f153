// Package messaging sends outbound email and SMS to leads.
//
// The Dispatcher never returns an error: every send produces a Result, and an
// unconfigured provider yields a failed Result so callers can leave lead state untouched.
package messaging

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/logger"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	MaxSMSLen = 320
)

// Result is the outcome of one send
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failed(msg string) Result {
	return Result{Error: msg}
}

// Email is a fully rendered outbound email
type Email struct {
	To          string
	FromName    string
	FromAddress string
	ReplyTo     string
	Bcc         string
	Subject     string
	HTML        string
	Text        string
}

type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, email Email) (string, error)
}

type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, to, body string) (string, error)
}

type Dispatcher struct {
	email EmailSender
	sms   SMSSender
	log   *zap.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, log: log}
}

func (d *Dispatcher) SendEmail(ctx context.Context, email Email) Result {
	if d.email == nil || !d.email.Configured() {
		d.log.Warn("Email provider not configured, email not sent")
		return failed("email provider not configured: set SMTP_HOST, SMTP_USER and SMTP_PASSWORD")
	}
	if !strings.Contains(email.To, "@") {
		return failed("invalid recipient address")
	}

	id, err := d.email.Send(ctx, email)
	if err != nil {
		d.log.Warn("Failed to send email", zap.String("to", logger.MaskEmail(email.To)), zap.Error(err))
		return failed(err.Error())
	}

	d.log.Info("Email sent",
		zap.String("to", logger.MaskEmail(email.To)),
		zap.String("from", email.FromAddress),
		zap.String("message_id", id))
	return Result{Success: true, ID: id}
}

func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) Result {
	if d.sms == nil || !d.sms.Configured() {
		d.log.Warn("SMS provider not configured, SMS not sent")
		return failed("SMS provider not configured: set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")
	}

	to = NormalizeE164(to)
	if to == "" {
		return failed("no phone number")
	}
	body = truncateRunes(body, MaxSMSLen)

	id, err := d.sms.Send(ctx, to, body)
	if err != nil {
		d.log.Warn("Failed to send SMS", zap.String("to", maskPhone(to)), zap.Error(err))
		return failed(err.Error())
	}

	d.log.Info("SMS sent", zap.String("to", maskPhone(to)), zap.String("sid", id))
	return Result{Success: true, ID: id}
}

// NormalizeE164 drops punctuation, turns 10 digits into +1XXXXXXXXXX and prefixes + otherwise
func NormalizeE164(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
