// Package copywriter asks the completion API for human-sounding outbound copy.
// Every method returns nil when the API is unavailable or the reply cannot be used,
// and callers fall back to fixed templates.
package copywriter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/openrouter"
)

const (
	MaxSubjectLen       = 200
	MaxBodyLen          = 1500
	MaxAutoreplyBodyLen = 600
	MaxSMSLen           = 320
)

// Copy is a generated subject and plain-text body
type Copy struct {
	Subject string
	Body    string
}

// Completer is the text completion capability used to write copy
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req openrouter.CompletionRequest) (string, error)
}

type Writer struct {
	llm Completer
	log *zap.Logger
}

func New(llm Completer, log *zap.Logger) *Writer {
	return &Writer{llm: llm, log: log}
}

// FollowupRequest describes the lead a follow-up is written for.
// Number is the count of follow-ups already sent.
type FollowupRequest struct {
	LeadName       string
	SenderName     string
	Source         string
	InquirySubject string
	InquiryBody    string
	Number         int
	Weekly         bool
}

func (r FollowupRequest) hasInquiry() bool {
	return strings.TrimSpace(r.InquirySubject) != "" || strings.TrimSpace(r.InquiryBody) != ""
}

// AutoreplyRequest describes a freshly created lead and what the business can share
type AutoreplyRequest struct {
	LeadName       string
	SenderName     string
	InquirySubject string
	InquiryBody    string
	Pricing        string
	SavedInfo      string
}

func (w *Writer) available() bool {
	return w != nil && w.llm != nil && w.llm.Configured()
}

func (w *Writer) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, bool) {
	raw, err := w.llm.Complete(ctx, openrouter.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		w.log.Warn("Copy generation failed, using template", zap.Error(err))
		return "", false
	}
	return strings.TrimSpace(raw), true
}

// FollowupEmail writes a follow-up or weekly check-in email
func (w *Writer) FollowupEmail(ctx context.Context, req FollowupRequest) *Copy {
	if !w.available() {
		return nil
	}

	var prompt string
	switch {
	case req.Weekly:
		prompt = weeklyEmailPrompt(req)
	case req.hasInquiry() && req.Number == 0:
		prompt = inquiryEmailPrompt(req)
	default:
		prompt = genericEmailPrompt(req)
	}

	raw, ok := w.complete(ctx, prompt, 200, 0.7)
	if !ok {
		return nil
	}
	return ParseCopy(raw, MaxBodyLen)
}

// FollowupSMS writes a short SMS body; the returned Copy has no subject
func (w *Writer) FollowupSMS(ctx context.Context, req FollowupRequest) *Copy {
	if !w.available() {
		return nil
	}

	var prompt string
	switch {
	case req.Weekly:
		prompt = fmt.Sprintf(`Write one short SMS (under 160 chars) from a business to a potential customer. Gentle check-in, we've reached out before. No hype.
Lead name: %s. Sender: %s.
Reply with only the SMS body, no quotes, no SUBJECT:.`, req.LeadName, req.SenderName)
	case strings.TrimSpace(req.InquiryBody) != "" && req.Number == 0:
		prompt = fmt.Sprintf(`Write one short SMS reply (under 160 chars) from a business to someone who texted. Acknowledge their message and offer to help.
What they said: %s
Lead name: %s. Sender: %s.
Reply with only the SMS body, no quotes.`, strings.TrimSpace(mailbox.Truncate(req.InquiryBody, 300)), req.LeadName, req.SenderName)
	default:
		prompt = fmt.Sprintf(`Write one short follow-up SMS (under 160 chars) from a business. This is the %s follow-up; they haven't replied. Friendly, one clear ask.
Lead name: %s. Sender: %s.
Reply with only the SMS body, no quotes.`, ordinal(req.Number), req.LeadName, req.SenderName)
	}

	raw, ok := w.complete(ctx, prompt, 80, 0.7)
	if !ok {
		return nil
	}
	body := mailbox.Truncate(stripQuotes(raw), MaxSMSLen)
	if body == "" {
		return nil
	}
	return &Copy{Body: body}
}

// Autoreply writes the instant acknowledgement for a new lead. It needs an inquiry to reply to.
func (w *Writer) Autoreply(ctx context.Context, req AutoreplyRequest) *Copy {
	if !w.available() {
		return nil
	}
	if strings.TrimSpace(req.InquirySubject) == "" && strings.TrimSpace(req.InquiryBody) == "" {
		return nil
	}

	raw, ok := w.complete(ctx, autoreplyPrompt(req), 120, 0.5)
	if !ok {
		return nil
	}
	return ParseCopy(raw, MaxAutoreplyBodyLen)
}

// ParseCopy reads "SUBJECT:" and "BODY:" lines. When there is no BODY line the first
// non-empty line is the subject and the rest is the body. Both parts are required.
func ParseCopy(raw string, maxBody int) *Copy {
	var subject, body string
	lines := strings.Split(raw, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "SUBJECT:"):
			subject = mailbox.Truncate(stripQuotes(trimmed[len("SUBJECT:"):]), MaxSubjectLen)
		case strings.HasPrefix(upper, "BODY:"):
			body = mailbox.Truncate(stripQuotes(trimmed[len("BODY:"):]), maxBody)
		}
	}

	if body == "" && strings.TrimSpace(raw) != "" {
		var nonEmpty []string
		for _, line := range lines {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				nonEmpty = append(nonEmpty, trimmed)
			}
		}
		if subject == "" && len(nonEmpty) >= 1 {
			subject = mailbox.Truncate(strings.Trim(nonEmpty[0], `"'`), MaxSubjectLen)
		}
		if len(nonEmpty) >= 2 {
			body = mailbox.Truncate(strings.TrimSpace(strings.Join(nonEmpty[1:], "\n\n")), maxBody)
		}
	}

	if subject == "" || body == "" {
		return nil
	}
	return &Copy{Subject: subject, Body: body}
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.Trim(s, `'`)
}

func ordinal(n int) string {
	switch {
	case n <= 0:
		return "first"
	case n == 1:
		return "second"
	default:
		return "third"
	}
}
