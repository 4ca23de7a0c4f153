package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/logger"
	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/metrics"
	"github.com/vipul43/leadloop/internal/models"
)

const (
	smsLeadName    = "SMS Lead"
	unknownAddress = "unknown@email.invalid"
)

// IngestResult is the outcome of one mailbox pass. Failures are reported here, never returned.
type IngestResult struct {
	OK        bool                    `json:"ok"`
	Error     string                  `json:"error,omitempty"`
	ErrorKind models.MailboxErrorKind `json:"error_kind,omitempty"`
	Fetched   int                     `json:"fetched"`
	Created   int                     `json:"created"`
	Skipped   int                     `json:"skipped"`
}

// InboundSMS is one webhook delivery
type InboundSMS struct {
	MessageSID string
	From       string
	Body       string
}

type SMSResult struct {
	Created bool   `json:"created"`
	LeadID  string `json:"lead_id,omitempty"`
}

// CheckOptions bounds an interactive mailbox check
type CheckOptions struct {
	Timeout     time.Duration
	MaxMessages int
	// OnDone runs once the pass finishes, even after the caller gave up waiting
	OnDone func(IngestResult)
}

type IngestionService struct {
	clients     ClientStore
	dedup       DedupStore
	syncs       MailboxSyncStore
	fetcher     mailbox.Fetcher
	classifier  LeadClassifier
	leads       *LeadService
	defaultHost string
	log         *zap.Logger
}

func NewIngestionService(
	clients ClientStore,
	dedup DedupStore,
	syncs MailboxSyncStore,
	fetcher mailbox.Fetcher,
	classifier LeadClassifier,
	leads *LeadService,
	defaultHost string,
	log *zap.Logger,
) *IngestionService {
	return &IngestionService{
		clients:     clients,
		dedup:       dedup,
		syncs:       syncs,
		fetcher:     fetcher,
		classifier:  classifier,
		leads:       leads,
		defaultHost: defaultHost,
		log:         log,
	}
}

// IngestMailbox reads unread messages (the newest limit of them when limit > 0, all otherwise),
// turns classified leads into lead rows and marks handled messages read. Messages the
// classifier rejects stay unread.
func (s *IngestionService) IngestMailbox(ctx context.Context, account models.Account, limit int) IngestResult {
	result := s.ingest(ctx, account, limit)

	label := "ok"
	if !result.OK {
		label = string(result.ErrorKind)
		if label == "" {
			label = string(models.MailboxErrorOther)
		}
	}
	metrics.MailboxChecksTotal.WithLabelValues(label).Inc()

	// Recorded with a fresh context: a pass cut short by its deadline still leaves a sync row
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.syncs.Record(recordCtx, account.ID, result.Created, result.ErrorKind, result.Error); err != nil {
		s.log.Error("Failed to record mailbox sync", zap.String("account_id", account.ID), zap.Error(err))
	}
	return result
}

func (s *IngestionService) ingest(ctx context.Context, account models.Account, limit int) IngestResult {
	if !account.HasMailbox() {
		return IngestResult{Error: ErrMailboxNotSet.Error(), ErrorKind: models.MailboxErrorOther}
	}

	client, err := s.clients.GetByID(ctx, account.ClientID)
	if err != nil {
		return IngestResult{Error: fmt.Sprintf("failed to load client: %v", err), ErrorKind: models.MailboxErrorOther}
	}

	creds := mailbox.CredentialsFor(account, s.defaultHost)
	candidates, err := s.fetcher.FetchUnread(ctx, creds, limit)
	if err != nil {
		kind := mailbox.ClassifyError(err)
		s.log.Warn("Mailbox fetch failed",
			zap.String("client", client.Slug),
			zap.String("mailbox", logger.MaskEmail(account.Email)),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return IngestResult{Error: mailbox.UserMessage(kind, err), ErrorKind: kind}
	}

	result := IngestResult{OK: true, Fetched: len(candidates)}
	if len(candidates) == 0 {
		return result
	}

	var handled []string
	var pending []mailbox.Candidate
	for _, candidate := range candidates {
		if candidate.Synthetic {
			s.log.Warn("Message has no Message-ID, using mailbox-local id",
				zap.String("client", client.Slug), zap.String("external_id", candidate.ExternalID))
		}
		exists, err := s.dedup.Exists(ctx, client.ID, models.MessageSourceEmail, candidate.ExternalID)
		if err != nil {
			s.log.Error("Failed to check processed message", zap.String("external_id", candidate.ExternalID), zap.Error(err))
			continue
		}
		if exists {
			// Mark again in case an earlier mark-read failed
			result.Skipped++
			handled = append(handled, candidate.ExternalID)
			continue
		}
		pending = append(pending, candidate)
	}

	var decisions []bool
	if len(pending) > 0 {
		decisions = s.classifier.Classify(ctx, pending)
	}
	for i, candidate := range pending {
		if i >= len(decisions) || !decisions[i] {
			continue
		}

		lead, created, err := s.leads.CreateFromMessage(ctx, client, models.MessageSourceEmail, candidate.ExternalID, leadFromCandidate(candidate))
		if err != nil {
			s.log.Error("Failed to create lead from email",
				zap.String("client", client.Slug),
				zap.String("external_id", candidate.ExternalID),
				zap.Error(err))
			continue
		}
		handled = append(handled, candidate.ExternalID)
		if !created {
			result.Skipped++
			continue
		}
		result.Created++
		s.log.Debug("Lead ingested from email", zap.String("lead_id", lead.ID))
	}

	if len(handled) > 0 {
		if err := s.fetcher.MarkProcessed(ctx, creds, handled); err != nil {
			s.log.Warn("Failed to mark messages read",
				zap.String("client", client.Slug),
				zap.Int("count", len(handled)),
				zap.Error(err))
		}
	}

	s.log.Info("Mailbox ingested",
		zap.String("client", client.Slug),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result
}

func leadFromCandidate(c mailbox.Candidate) NewLead {
	address := strings.TrimSpace(c.SenderAddress)
	if !strings.Contains(address, "@") {
		address = unknownAddress
	}
	return NewLead{
		Name:           c.SenderName,
		Email:          address,
		Phone:          c.Phone,
		Source:         models.LeadSourceEmail,
		InquirySubject: c.Subject,
		InquiryBody:    c.BodySnippet,
	}
}

// SMSPlaceholderEmail synthesizes the address stored for an SMS-only lead
func SMSPlaceholderEmail(from string) string {
	digits := strings.NewReplacer("+", "", " ", "").Replace(strings.TrimSpace(from))
	return "sms-" + digits + smsPlaceholderDomain
}

// IngestSMS turns one inbound text into a lead for the tenant with the given slug.
// A repeated MessageSID is acknowledged without creating anything.
func (s *IngestionService) IngestSMS(ctx context.Context, slug string, sms InboundSMS) (SMSResult, error) {
	sms.MessageSID = strings.TrimSpace(sms.MessageSID)
	sms.From = strings.TrimSpace(sms.From)
	if sms.MessageSID == "" || sms.From == "" {
		return SMSResult{}, ErrInvalidSMS
	}

	client, err := s.clients.GetBySlug(ctx, slug)
	if err != nil {
		return SMSResult{}, err
	}

	lead, created, err := s.leads.CreateFromMessage(ctx, client, models.MessageSourceSMS, sms.MessageSID, NewLead{
		Name:        smsLeadName,
		Email:       SMSPlaceholderEmail(sms.From),
		Phone:       sms.From,
		Source:      models.LeadSourceMessages,
		InquiryBody: mailbox.Truncate(strings.TrimSpace(sms.Body), models.MaxInquiryBodyLen),
	})
	if err != nil {
		return SMSResult{}, fmt.Errorf("failed to create lead from sms: %w", err)
	}
	if !created {
		s.log.Info("SMS already processed", zap.String("client", client.Slug), zap.String("message_sid", sms.MessageSID))
		return SMSResult{}, nil
	}
	return SMSResult{Created: true, LeadID: lead.ID}, nil
}

// CheckMailboxNow runs an interactive pass with a hard deadline. When the deadline passes the
// caller gets ErrIngestionTimeout while the pass finishes in the background.
func (s *IngestionService) CheckMailboxNow(ctx context.Context, account models.Account, opts CheckOptions) (IngestResult, error) {
	if !account.HasMailbox() {
		if opts.OnDone != nil {
			opts.OnDone(IngestResult{Error: ErrMailboxNotSet.Error()})
		}
		return IngestResult{}, ErrMailboxNotSet
	}

	done := make(chan IngestResult, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		result := s.IngestMailbox(bg, account, opts.MaxMessages)
		if opts.OnDone != nil {
			opts.OnDone(result)
		}
		done <- result
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case result := <-done:
		return result, nil
	case <-timeout:
		s.log.Warn("Interactive mailbox check timed out, continuing in background",
			zap.String("mailbox", logger.MaskEmail(account.Email)),
			zap.Duration("timeout", opts.Timeout))
		return IngestResult{}, ErrIngestionTimeout
	case <-ctx.Done():
		return IngestResult{}, errors.Join(ErrIngestionTimeout, ctx.Err())
	}
}
