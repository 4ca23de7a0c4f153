// Package classifier decides which inbound messages are genuine sales leads.
//
// Hard exclusions run first and never reach the language model. Whatever survives is
// classified in small batches with a prompt that defaults to NO, and any failure along
// the way is treated as "not a lead".
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/metrics"
	"github.com/vipul43/leadloop/internal/openrouter"
)

const (
	BatchSize = 5

	promptSubjectLen = 250
	promptBodyLen    = 600
	maxTokens        = 50
)

// ExcludeTerms are phrases that disqualify a message when found in its subject or body
var ExcludeTerms = []string{
	"unsubscribe", "newsletter", "spam", "job application", "resume",
	"careers", "support ticket", "complaint", "refund", "cancellation",
	"password reset", "verify your", "confirm your", "click to verify",
	"receipt", "order confirmation", "your order", "order #", "shipped",
	"tracking number", "shipping confirmation", "delivery update",
	"digest", "weekly digest", "daily digest", "roundup", "round-up",
	"promo", "promotion", "marketing", "flash sale", "limited time",
	"otp", "verification code", "one-time password", "login alert",
	"someone tried", "new sign-in", "security alert", "suspicious activity",
	"no-reply", "noreply", "donotreply", "do not reply", "mailer-daemon",
	"mailing list", "out of office", "out-of-office", "ooo", "automatic reply",
	"automated", "notification@", "alert@", "bounce@", "welcome to",
	"sign up", "signup", "you signed up", "confirm your email",
	"click here to", "view in browser", "view this email",
	"invitation to connect", "linkedin", "wants to connect",
	"facebook", "twitter", "instagram", "social media",
	"invoice", "payment received", "payment due", "subscription",
	"your account", "account update", "terms of service", "privacy policy",
	// subscription footers
	"manage preferences", "manage subscription", "email preferences",
	"you're receiving this because", "you are receiving this because",
	"update your preferences", "unsubscribe from", "preferences center",
	"remove from list", "sent to you because", "update subscription",
	// calendar, forwards and other non-sales traffic
	"reminder", "meeting invite", "meeting invitation", "calendar invite",
	"invited you to", "you're invited", "event invite", "rsvp",
	"forwarded", "fwd:", "fwd :",
	"thread", "conversation", "internal", "cc:", "bcc:",
	"survey", "feedback request", "please take our survey",
	"scheduled for", "reschedule", "meeting scheduled", "zoom", "teams meeting",
	"google calendar", "outlook calendar", "add to calendar", "add to your calendar",
}

// ExcludeSenderPatterns mark bot, no-reply and system senders
var ExcludeSenderPatterns = []string{
	"no-reply", "noreply", "donotreply", "do-not-reply", "no_reply",
	"notification", "notifications", "alert", "alerts", "mailer-daemon",
	"postmaster", "bounce", "bounces", "auto@", "automated@", "system@",
	"newsletter", "news@", "marketing@", "promo@", "digest@", "mailer@",
	"calendar", "reminders", "invite",
}

const (
	decisionExcluded = "excluded"
	decisionYes      = "yes"
	decisionNo       = "no"
)

// Completer is the text completion capability the classifier depends on
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req openrouter.CompletionRequest) (string, error)
}

type Classifier struct {
	llm Completer
	log *zap.Logger
}

func New(llm Completer, log *zap.Logger) *Classifier {
	return &Classifier{llm: llm, log: log}
}

// Classify returns one decision per candidate, in order
func (c *Classifier) Classify(ctx context.Context, candidates []mailbox.Candidate) []bool {
	results := make([]bool, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	var pending []int
	for i, candidate := range candidates {
		if IsExcluded(candidate) {
			metrics.ClassifierDecisionsTotal.WithLabelValues(decisionExcluded).Inc()
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return results
	}

	if c.llm == nil || !c.llm.Configured() {
		c.log.Warn("Completion API not configured, no messages accepted as leads", zap.Int("candidates", len(pending)))
		metrics.ClassifierDecisionsTotal.WithLabelValues(decisionNo).Add(float64(len(pending)))
		return results
	}

	for start := 0; start < len(pending); start += BatchSize {
		end := start + BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := make([]mailbox.Candidate, 0, end-start)
		for _, idx := range pending[start:end] {
			batch = append(batch, candidates[idx])
		}

		decisions := c.classifyBatch(ctx, batch)
		for k, idx := range pending[start:end] {
			results[idx] = decisions[k]
			if decisions[k] {
				metrics.ClassifierDecisionsTotal.WithLabelValues(decisionYes).Inc()
			} else {
				metrics.ClassifierDecisionsTotal.WithLabelValues(decisionNo).Inc()
			}
		}
	}

	return results
}

func (c *Classifier) classifyBatch(ctx context.Context, batch []mailbox.Candidate) []bool {
	raw, err := c.llm.Complete(ctx, openrouter.CompletionRequest{
		Prompt:      BuildPrompt(batch),
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		c.log.Warn("Classifier call failed, batch rejected", zap.Int("batch_size", len(batch)), zap.Error(err))
		return make([]bool, len(batch))
	}
	return ParseYesNoLines(raw, len(batch))
}

// IsSenderExcluded reports whether the sender address is missing, malformed or looks automated
func IsSenderExcluded(address string) bool {
	addr := strings.ToLower(strings.TrimSpace(address))
	local, domain, ok := strings.Cut(addr, "@")
	if addr == "" || !ok {
		return true
	}
	combined := local + " " + domain
	for _, pattern := range ExcludeSenderPatterns {
		if strings.Contains(combined, pattern) {
			return true
		}
	}
	return false
}

// IsExcluded applies both the sender and the content exclusion lists
func IsExcluded(candidate mailbox.Candidate) bool {
	if IsSenderExcluded(candidate.SenderAddress) {
		return true
	}
	combined := strings.ToLower(candidate.Subject + " " + candidate.BodySnippet)
	for _, term := range ExcludeTerms {
		if strings.Contains(combined, term) {
			return true
		}
	}
	return false
}

var leadingAnswerRe = regexp.MustCompile(`(?i)^(YES|NO|Y|N)\b`)

// ParseYesNoLines reads one answer per non-empty line. Anything that does not start with
// YES, Y, NO or N counts as NO. The result always has exactly expected entries.
func ParseYesNoLines(text string, expected int) []bool {
	results := make([]bool, 0, expected)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.ToUpper(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		switch line {
		case "YES", "Y":
			results = append(results, true)
		case "NO", "N":
			results = append(results, false)
		default:
			m := leadingAnswerRe.FindStringSubmatch(line)
			results = append(results, m != nil && (m[1] == "YES" || m[1] == "Y"))
		}
	}
	for len(results) < expected {
		results = append(results, false)
	}
	return results[:expected]
}

const promptHeader = `You are a very strict lead classifier for a small business. Your default is NO. When in doubt, say NO.

Say YES only when ALL of these are true:
- The email is clearly from a real person (not a bot, system, or automated sender).
- The sender is directly asking the business for something commercial: a quote, pricing, availability, a demo, a booking, or to buy/use the business's product or service.
- The email clearly shows intent to do business (e.g. mentions pricing, quote, availability, demo, booking, "interested in", "how much", "can we schedule", "would like to hire").
- It reads like a 1:1 sales inquiry from a potential customer, not a notification, forward, or general chitchat.

Always say NO for:
- Newsletters, digests, marketing, promos, receipts, order confirmations, shipping/tracking.
- Verification emails, OTP, login alerts, password reset, "confirm your email".
- Job applications, support tickets, complaints, refund requests, cancellations.
- Social network messages (LinkedIn, etc.), "view in browser", "unsubscribe".
- Automated notifications, alerts, no-reply senders, mailing list messages, out-of-office.
- Meeting invites, calendar invites, "you're invited", RSVPs, "scheduled for", reschedule, Zoom/Teams links.
- Forwards (Fwd:), reply chains, internal threads, "following up" without a clear sales ask.
- Surveys, feedback requests, "quick question", "just checking in", "touch base" without a concrete business request.
- Anything bulk, templated, or where the sender is not clearly a potential customer asking to buy or get a quote.

If the email could be a notification, forward, meeting invite, or non-sales message, say NO. Only say YES when you are confident it is a direct sales lead (someone asking for a quote, booking, or to use the service).

For each email below, reply with exactly one word per line: YES or NO, in the same order (line 1 = Email 1, line 2 = Email 2, ...). No other text.

`

const promptFooter = `

Your reply (one word per line, YES or NO only):`

// BuildPrompt renders the batch prompt, one numbered block per candidate
func BuildPrompt(batch []mailbox.Candidate) string {
	blocks := make([]string, 0, len(batch))
	for i, candidate := range batch {
		name := candidate.SenderName
		if name == "" {
			name = "?"
		}
		address := candidate.SenderAddress
		if address == "" {
			address = "?"
		}
		blocks = append(blocks, fmt.Sprintf("--- Email %d ---\nFROM: %s <%s>\nSUBJECT: %s\nBODY: %s",
			i+1, name, address,
			mailbox.Truncate(candidate.Subject, promptSubjectLen),
			mailbox.Truncate(candidate.BodySnippet, promptBodyLen),
		))
	}
	return promptHeader + strings.Join(blocks, "\n\n") + promptFooter
}
