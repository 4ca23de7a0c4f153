package copywriter

import (
	"fmt"
	"strings"

	"github.com/vipul43/leadloop/internal/mailbox"
)

const twoLineReply = `Reply with exactly two lines:
Line 1: SUBJECT: <your subject line>
Line 2: BODY: <your email body>`

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func weeklyEmailPrompt(req FollowupRequest) string {
	return fmt.Sprintf(`You are writing a short, human weekly check-in email from a small business owner to a potential customer. We've reached out before and haven't heard back. This is a gentle, non-pushy check-in.

Context:
- Lead's name: %s
- Sender name: %s

Write a brief weekly check-in. Rules:
- 2-3 sentences. Friendly, low pressure. "Just checking in" or "Still here if you need anything."
- No guilt or pressure. Subject line under 60 chars (e.g. "Quick check-in" or "Still here when you're ready").

%s`, req.LeadName, req.SenderName, twoLineReply)
}

func inquiryEmailPrompt(req FollowupRequest) string {
	subject := strings.TrimSpace(mailbox.Truncate(req.InquirySubject, 200))
	body := strings.TrimSpace(mailbox.Truncate(req.InquiryBody, 800))
	return fmt.Sprintf(`You are writing a short, human reply email from a small business owner to someone who just reached out. This is the business's first response to them, so it should directly address what they asked about and sound like a real person, not a template.

What the lead wrote:
- Subject: %s
- Message: %s

Context:
- Lead's name: %s
- Sender (business) name: %s

Write a single reply email. Rules:
- Reference what they asked (e.g. "Thanks for asking about..." or "Re: [their topic]"). Answer or acknowledge their question and offer a next step (e.g. a quick call, more info, or "let me know if you'd like to...").
- 3-5 short sentences. Warm and professional. No hype or "I wanted to reach out." No marketing fluff.
- Subject line: under 60 chars. Use "Re: ..." or a short reply-style subject that relates to their message.

%s`, orPlaceholder(subject, "(no subject)"), orPlaceholder(body, "(no message)"), req.LeadName, req.SenderName, twoLineReply)
}

func genericEmailPrompt(req FollowupRequest) string {
	sourceNote := ""
	if req.Source != "" && req.Source != "Manual" {
		sourceNote = fmt.Sprintf(" They came in via %s.", req.Source)
	}
	return fmt.Sprintf(`You are writing a short, human follow-up email from a small business owner to a potential customer. Sound like a real person: warm, brief, no marketing fluff.

Context:
- Lead's name: %s
- This is the %s follow-up (they haven't replied yet).%s
- Sender name: %s

Write a single follow-up email. Rules:
- 2-4 sentences max. One clear ask: reply or suggest a time for a quick call.
- No exaggerated claims or hype. No "I wanted to reach out" cliches.
- Subject line: under 60 chars, conversational (e.g. "Quick follow-up" or "Still interested?").

%s`, req.LeadName, ordinal(req.Number), sourceNote, req.SenderName, twoLineReply)
}

func autoreplyPrompt(req AutoreplyRequest) string {
	subject := strings.TrimSpace(mailbox.Truncate(req.InquirySubject, 150))
	body := strings.TrimSpace(mailbox.Truncate(req.InquiryBody, 500))

	var notes strings.Builder
	if pricing := strings.TrimSpace(req.Pricing); pricing != "" {
		notes.WriteString("\n- The business's pricing (use ONLY if the lead asked about price/cost/rates; include it in the body exactly as below):\n")
		notes.WriteString(mailbox.Truncate(pricing, 800))
	}
	if saved := strings.TrimSpace(req.SavedInfo); saved != "" {
		notes.WriteString("\n- Saved info about the business (use ONLY when the lead's inquiry clearly relates; integrate naturally in 1 short phrase or sentence if relevant, e.g. FAQs, policies, services, availability):\n")
		notes.WriteString(mailbox.Truncate(saved, 800))
	}

	return fmt.Sprintf(`You are writing a very short instant-reply email from a small business to someone who just reached out. This is the immediate acknowledgment: reference what they asked and say we're on it. Sound like a real person, not a bot.

What they wrote:
- Subject: %s
- Message: %s

Context:
- Lead's name: %s
- Sender (business) name: %s%s

Write a single instant-reply email. Rules:
- 1-2 sentences only (or 3 if you include pricing because they asked, or a short saved-info detail that fits). Acknowledge their message (e.g. "Thanks for asking about..." or "Got your note about..."). If they asked about pricing/cost/rates and pricing was provided above, include that pricing in your reply exactly as given. If saved info was provided and their inquiry clearly relates (e.g. they ask about availability, policies, services), you may integrate one short relevant detail naturally. Otherwise say we're on it and will get back to them shortly. Do NOT include a phone number or "call us"; the caller will add that.
- If their message mentions a type of event (e.g. wedding, birthday, corporate event, school event, graduation, party), acknowledge that event in your reply to sound personal.
- Use the lead's name at most ONCE in the body. The greeting "Hi [name]" is added automatically before your body.
- Subject line: under 50 chars. Use "Re: ..." or "Thanks for reaching out" style.
- No marketing fluff. No "We received your inquiry."

%s`, orPlaceholder(subject, "(no subject)"), orPlaceholder(body, "(no message)"), req.LeadName, req.SenderName, notes.String(), twoLineReply)
}
