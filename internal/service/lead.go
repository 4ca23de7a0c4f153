package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/events"
	"github.com/vipul43/leadloop/internal/logger"
	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/messaging"
	"github.com/vipul43/leadloop/internal/metrics"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

const (
	autoreplySubject    = "We received your inquiry"
	autoreplyBody       = "Thank you for reaching out, we are actively working on this."
	maxAutoreplyBodyLen = 800

	// smsPlaceholderDomain marks synthesized addresses of SMS-only leads
	smsPlaceholderDomain = "@lead.local"
)

var pricingWords = []string{"price", "pricing", "cost", "rate", "quote", "how much", "fee", "budget"}

// NewLead is the input for every lead-creation path
type NewLead struct {
	Name           string
	Email          string
	Phone          string
	Source         string
	InquirySubject string
	InquiryBody    string
}

type LeadService struct {
	leads     LeadStore
	dedup     DedupStore
	accounts  AccountStore
	messenger Messenger
	copy      CopyWriter
	events    events.Publisher
	sender    SenderDefaults
	now       Clock
	log       *zap.Logger
}

func NewLeadService(
	leads LeadStore,
	dedup DedupStore,
	accounts AccountStore,
	messenger Messenger,
	copy CopyWriter,
	publisher events.Publisher,
	sender SenderDefaults,
	log *zap.Logger,
) *LeadService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LeadService{
		leads:     leads,
		dedup:     dedup,
		accounts:  accounts,
		messenger: messenger,
		copy:      copy,
		events:    publisher,
		sender:    sender,
		now:       time.Now,
		log:       log,
	}
}

// SetClock replaces the time source
func (s *LeadService) SetClock(now Clock) {
	s.now = now
}

func (s *LeadService) newLeadModel(clientID string, in NewLead) *models.Lead {
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = models.LeadSourceUnknown
	}
	now := s.now()
	return &models.Lead{
		ID:             uuid.New().String(),
		ClientID:       clientID,
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		Status:         models.LeadStatusNew,
		Source:         source,
		InquirySubject: optionalText(in.InquirySubject, models.MaxInquirySubjectLen),
		InquiryBody:    optionalText(in.InquiryBody, models.MaxInquiryBodyLen),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func optionalText(s string, max int) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	s = mailbox.Truncate(s, max)
	return &s
}

// Create persists a lead and sends the autoreply. An autoreply failure never undoes the lead.
func (s *LeadService) Create(ctx context.Context, client *models.Client, in NewLead) (*models.Lead, error) {
	lead := s.newLeadModel(client.ID, in)
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.afterCreate(ctx, client, lead)
	return lead, nil
}

// CreateFromMessage creates a lead for an external message unless that message already
// produced one. created is false for a duplicate.
func (s *LeadService) CreateFromMessage(ctx context.Context, client *models.Client, source models.MessageSource, externalID string, in NewLead) (lead *models.Lead, created bool, err error) {
	lead = s.newLeadModel(client.ID, in)
	created, err = s.dedup.CreateLeadOnce(ctx, source, externalID, lead)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, false, nil
	}

	s.afterCreate(ctx, client, lead)
	return lead, true, nil
}

func (s *LeadService) afterCreate(ctx context.Context, client *models.Client, lead *models.Lead) {
	metrics.LeadsCreatedTotal.WithLabelValues(lead.Source).Inc()
	s.log.Info("Lead created",
		zap.String("client", client.Slug),
		zap.String("lead_id", lead.ID),
		zap.String("source", lead.Source))

	s.events.Publish(ctx, events.New(events.TypeLeadCreated, client.ID, lead.ID, lead.CreatedAt,
		map[string]string{"source": lead.Source}))

	s.SendAutoreply(ctx, client, lead)
}

// CanAutoreply reports whether the lead has a real address to reply to.
// SMS placeholders and the reserved .invalid TLD never receive mail.
func CanAutoreply(address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" || !strings.Contains(address, "@") {
		return false
	}
	return !strings.Contains(address, smsPlaceholderDomain) && !strings.HasSuffix(address, ".invalid")
}

// AsksAboutPricing reports whether the inquiry text mentions price, cost, rates or a quote
func AsksAboutPricing(text string) bool {
	text = strings.ToLower(text)
	for _, word := range pricingWords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// SendAutoreply sends the instant acknowledgement. It is skipped for missing, malformed
// and placeholder addresses.
func (s *LeadService) SendAutoreply(ctx context.Context, client *models.Client, lead *models.Lead) messaging.Result {
	if !CanAutoreply(lead.Email) {
		return messaging.Result{Error: "no deliverable address"}
	}

	identity := AutoreplyIdentity(client, s.sender)
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		name = "there"
	}

	callLine := " Feel free to reply to this email with any other questions you may have or feel free to call/text us at your convenience!"
	if phone := strings.TrimSpace(client.ContactPhone); phone != "" {
		callLine = fmt.Sprintf(" Feel free to reply to this email with any other questions you may have or feel free to call/text %s!", phone)
	}

	subject := autoreplySubject
	body := autoreplyBody + callLine

	req := copywriter.AutoreplyRequest{
		LeadName:       name,
		SenderName:     identity.Name,
		InquirySubject: lead.Subject(),
		InquiryBody:    lead.Body(),
		SavedInfo:      client.SavedInfo,
	}
	if AsksAboutPricing(lead.Subject() + " " + lead.Body()) {
		req.Pricing = client.Pricing
	}
	if generated := s.copy.Autoreply(ctx, req); generated != nil {
		subject = mailbox.Truncate(strings.TrimSpace(generated.Subject), copywriter.MaxSubjectLen)
		body = mailbox.Truncate(strings.TrimSpace(strings.TrimSpace(generated.Body)+callLine), maxAutoreplyBodyLen)
	}

	htmlBody, textBody := messaging.AutoreplyBodies(name, body, identity.Name)
	htmlBody, textBody = messaging.AppendSignature(htmlBody, textBody, client.SignatureBlock)

	email := messaging.Email{
		To:          lead.Email,
		FromName:    identity.Name,
		FromAddress: identity.Address,
		Subject:     subject,
		HTML:        htmlBody,
		Text:        textBody,
	}
	if owner := s.ownerEmail(ctx, client.ID); owner != "" {
		email.ReplyTo = owner
		email.Bcc = owner
	}

	result := s.messenger.SendEmail(ctx, email)
	metrics.RecordSend("autoreply", messaging.ChannelEmail, result.Success)
	if !result.Success {
		s.log.Warn("Autoreply failed",
			zap.String("client", client.Slug),
			zap.String("lead_id", lead.ID),
			zap.String("to", logger.MaskEmail(lead.Email)),
			zap.String("error", result.Error))
	}
	return result
}

func (s *LeadService) ownerEmail(ctx context.Context, clientID string) string {
	account, err := s.accounts.GetByClientID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Warn("Failed to load account for reply-to", zap.String("client_id", clientID), zap.Error(err))
		}
		return ""
	}
	if !strings.Contains(account.Email, "@") {
		return ""
	}
	return account.Email
}

func (s *LeadService) List(ctx context.Context, clientID string) ([]models.Lead, error) {
	return s.leads.ListByClient(ctx, clientID)
}

func (s *LeadService) Get(ctx context.Context, clientID, leadID string) (*models.Lead, error) {
	return s.leads.Get(ctx, clientID, leadID)
}

// Update applies a tenant edit; mark_contacted stops the 24h follow-up from firing
func (s *LeadService) Update(ctx context.Context, clientID, leadID string, update models.LeadUpdate) (*models.Lead, error) {
	if update.Status != nil {
		status := strings.TrimSpace(*update.Status)
		if status == "" {
			return nil, ErrInvalidStatus
		}
		update.Status = &status
	}
	return s.leads.ApplyUpdate(ctx, clientID, leadID, update, s.now())
}

// Delete removes the lead and its dedup records, so the source message could be ingested again
func (s *LeadService) Delete(ctx context.Context, clientID, leadID string) error {
	return s.leads.Delete(ctx, clientID, leadID)
}
