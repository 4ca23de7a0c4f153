package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/events"
	"github.com/vipul43/leadloop/internal/messaging"
	"github.com/vipul43/leadloop/internal/metrics"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

const (
	FirstFollowupDelay = 24 * time.Hour
	WeeklyInterval     = 7 * 24 * time.Hour

	// weeklyTemplateNumber selects the last template for every weekly check-in
	weeklyTemplateNumber = 2

	followupKindFirst  = "first"
	followupKindWeekly = "weekly"
)

// SweepStats summarizes one tenant's follow-up pass
type SweepStats struct {
	Checked    int `json:"checked"`
	FirstSent  int `json:"first_sent"`
	WeeklySent int `json:"weekly_sent"`
	Failed     int `json:"failed"`
	Stale      int `json:"stale"`
}

// Add accumulates another tenant's stats
func (s *SweepStats) Add(other SweepStats) {
	s.Checked += other.Checked
	s.FirstSent += other.FirstSent
	s.WeeklySent += other.WeeklySent
	s.Failed += other.Failed
	s.Stale += other.Stale
}

type FollowupService struct {
	leads     LeadStore
	accounts  AccountStore
	messenger Messenger
	copy      CopyWriter
	events    events.Publisher
	sender    SenderDefaults
	now       Clock
	log       *zap.Logger
}

func NewFollowupService(
	leads LeadStore,
	accounts AccountStore,
	messenger Messenger,
	copy CopyWriter,
	publisher events.Publisher,
	sender SenderDefaults,
	log *zap.Logger,
) *FollowupService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &FollowupService{
		leads:     leads,
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
func (s *FollowupService) SetClock(now Clock) {
	s.now = now
}

// DueForFirstFollowup reports whether the one-time 24h follow-up should fire
func DueForFirstFollowup(lead models.Lead, now time.Time) bool {
	if lead.IsRecovered() || lead.FollowupsSent != 0 || lead.LastContacted != nil || lead.CreatedAt.IsZero() {
		return false
	}
	return !lead.CreatedAt.After(now.Add(-FirstFollowupDelay))
}

// DueForWeeklyCheckin reports whether the last contact is at least a week old
func DueForWeeklyCheckin(lead models.Lead, now time.Time) bool {
	if lead.IsRecovered() || lead.LastContacted == nil {
		return false
	}
	return !lead.LastContacted.After(now.Add(-WeeklyInterval))
}

// RunForClient sends every follow-up due for the tenant. Lead failures are counted, not returned.
func (s *FollowupService) RunForClient(ctx context.Context, client *models.Client) (SweepStats, error) {
	var stats SweepStats

	leads, err := s.leads.ListFollowupCandidates(ctx, client.ID)
	if err != nil {
		return stats, err
	}

	identity := FollowupIdentity(client, s.account(ctx, client.ID), s.sender)

	for i := range leads {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++
		s.processLead(ctx, client, identity, &leads[i], &stats)
	}

	if stats.FirstSent+stats.WeeklySent+stats.Failed > 0 {
		s.log.Info("Follow-up sweep finished for client",
			zap.String("client", client.Slug),
			zap.Int("checked", stats.Checked),
			zap.Int("first_sent", stats.FirstSent),
			zap.Int("weekly_sent", stats.WeeklySent),
			zap.Int("failed", stats.Failed),
			zap.Int("stale", stats.Stale))
	}
	return stats, nil
}

func (s *FollowupService) account(ctx context.Context, clientID string) *models.Account {
	account, err := s.accounts.GetByClientID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Warn("Failed to load account for sender identity", zap.String("client_id", clientID), zap.Error(err))
		}
		return nil
	}
	return account
}

func (s *FollowupService) processLead(ctx context.Context, client *models.Client, identity Identity, lead *models.Lead, stats *SweepStats) {
	if lead.IsRecovered() {
		return
	}
	now := s.now()

	if DueForFirstFollowup(*lead, now) {
		if s.send(ctx, client, identity, lead, false, now, stats) {
			stats.FirstSent++
		}
		// A lead gets at most one automated message per pass
		return
	}

	if !DueForWeeklyCheckin(*lead, now) {
		return
	}

	// Re-read: a tenant edit or another sweep may have touched the row since the listing
	fresh, err := s.leads.Get(ctx, client.ID, lead.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrLeadNotFound) {
			stats.Failed++
			s.log.Error("Failed to reload lead", zap.String("lead_id", lead.ID), zap.Error(err))
		}
		return
	}
	if !DueForWeeklyCheckin(*fresh, now) {
		return
	}
	if s.send(ctx, client, identity, fresh, true, now, stats) {
		stats.WeeklySent++
	}
}

// send delivers one follow-up and records it. It reports whether the send was recorded.
func (s *FollowupService) send(ctx context.Context, client *models.Client, identity Identity, lead *models.Lead, weekly bool, now time.Time, stats *SweepStats) bool {
	kind := followupKindFirst
	number := lead.FollowupsSent
	status := models.LeadStatusWaiting
	if weekly {
		kind = followupKindWeekly
		number = weeklyTemplateNumber
		status = ""
	}

	channel := messaging.ChannelEmail
	if lead.Source == models.LeadSourceMessages && strings.TrimSpace(lead.Phone) != "" {
		channel = messaging.ChannelSMS
	}

	name := strings.TrimSpace(lead.Name)
	if name == "" {
		name = "there"
	}
	req := copywriter.FollowupRequest{
		LeadName:       name,
		SenderName:     identity.Name,
		Source:         lead.Source,
		InquirySubject: lead.Subject(),
		InquiryBody:    lead.Body(),
		Number:         lead.FollowupsSent,
		Weekly:         weekly,
	}

	var result messaging.Result
	switch channel {
	case messaging.ChannelSMS:
		body, err := s.smsBody(ctx, req, number, name, identity.Name)
		if err != nil {
			result = messaging.Result{Error: err.Error()}
			break
		}
		result = s.messenger.SendSMS(ctx, lead.Phone, body)
	default:
		if !CanAutoreply(lead.Email) {
			result = messaging.Result{Error: "no deliverable email address"}
			break
		}
		email, err := s.email(ctx, client, identity, lead, req, number, name)
		if err != nil {
			result = messaging.Result{Error: err.Error()}
			break
		}
		result = s.messenger.SendEmail(ctx, email)
	}

	metrics.RecordSend(kind, channel, result.Success)
	if !result.Success {
		stats.Failed++
		s.log.Warn("Follow-up not sent",
			zap.String("client", client.Slug),
			zap.String("lead_id", lead.ID),
			zap.String("kind", kind),
			zap.String("channel", channel),
			zap.String("error", result.Error))
		return false
	}

	if err := s.leads.RecordFollowup(ctx, lead, now, status); err != nil {
		if errors.Is(err, repository.ErrStaleLead) {
			stats.Stale++
			s.log.Warn("Follow-up sent but lead changed concurrently, not recorded",
				zap.String("lead_id", lead.ID), zap.String("kind", kind))
			return false
		}
		stats.Failed++
		s.log.Error("Failed to record follow-up", zap.String("lead_id", lead.ID), zap.Error(err))
		return false
	}

	s.events.Publish(ctx, events.New(events.TypeLeadFollowupSent, client.ID, lead.ID, now, map[string]string{
		"kind":       kind,
		"channel":    channel,
		"message_id": result.ID,
	}))
	s.log.Info("Follow-up sent",
		zap.String("client", client.Slug),
		zap.String("lead_id", lead.ID),
		zap.String("kind", kind),
		zap.String("channel", channel),
		zap.Int("followups_sent", lead.FollowupsSent))
	return true
}

func (s *FollowupService) smsBody(ctx context.Context, req copywriter.FollowupRequest, number int, name, senderName string) (string, error) {
	if generated := s.copy.FollowupSMS(ctx, req); generated != nil && strings.TrimSpace(generated.Body) != "" {
		return generated.Body, nil
	}
	return messaging.FollowupSMSTemplate(number, name, senderName)
}

func (s *FollowupService) email(ctx context.Context, client *models.Client, identity Identity, lead *models.Lead, req copywriter.FollowupRequest, number int, name string) (messaging.Email, error) {
	var subject, htmlBody, textBody string

	if generated := s.copy.FollowupEmail(ctx, req); generated != nil {
		subject = generated.Subject
		htmlBody = messaging.PlainToHTML(generated.Body)
		textBody = generated.Body
	} else {
		rendered, err := messaging.FollowupEmailTemplate(number, name, identity.Name)
		if err != nil {
			return messaging.Email{}, fmt.Errorf("failed to render follow-up template: %w", err)
		}
		subject, htmlBody, textBody = rendered.Subject, rendered.HTML, rendered.Text
	}
	htmlBody, textBody = messaging.AppendSignature(htmlBody, textBody, client.SignatureBlock)

	return messaging.Email{
		To:          lead.Email,
		FromName:    identity.Name,
		FromAddress: identity.Address,
		Subject:     subject,
		HTML:        htmlBody,
		Text:        textBody,
	}, nil
}
