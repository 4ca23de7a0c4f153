// Package service holds the lead lifecycle: creation with autoreply, mailbox and SMS
// ingestion, and the follow-up state machine.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/messaging"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

var (
	// ErrIngestionTimeout is returned by an interactive mailbox check that outlived its deadline.
	// The fetch keeps running in the background.
	ErrIngestionTimeout = errors.New("mailbox check timed out")
	ErrMailboxNotSet    = errors.New("mailbox credentials not configured")
	ErrInvalidSMS       = errors.New("inbound SMS is missing its message id or sender")
	ErrInvalidMailbox   = errors.New("invalid mailbox settings")
	ErrInvalidStatus    = errors.New("lead status must not be empty")
)

// ClientStore interface for dependency injection
type ClientStore interface {
	GetByID(ctx context.Context, clientID string) (*models.Client, error)
	GetBySlug(ctx context.Context, slug string) (*models.Client, error)
}

// AccountStore interface for dependency injection
type AccountStore interface {
	GetByClientID(ctx context.Context, clientID string) (*models.Account, error)
	UpsertMailbox(ctx context.Context, clientID string, settings repository.MailboxSettings) (*models.Account, error)
}

// LeadStore interface for dependency injection
type LeadStore interface {
	ListByClient(ctx context.Context, clientID string) ([]models.Lead, error)
	ListFollowupCandidates(ctx context.Context, clientID string) ([]models.Lead, error)
	Get(ctx context.Context, clientID, leadID string) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
	RecordFollowup(ctx context.Context, lead *models.Lead, sentAt time.Time, status string) error
	ApplyUpdate(ctx context.Context, clientID, leadID string, update models.LeadUpdate, now time.Time) (*models.Lead, error)
	Delete(ctx context.Context, clientID, leadID string) error
}

// DedupStore interface for dependency injection
type DedupStore interface {
	Exists(ctx context.Context, clientID string, source models.MessageSource, externalID string) (bool, error)
	CreateLeadOnce(ctx context.Context, source models.MessageSource, externalID string, lead *models.Lead) (bool, error)
}

// MailboxSyncStore interface for dependency injection
type MailboxSyncStore interface {
	Get(ctx context.Context, accountID string) (*models.MailboxSync, error)
	Record(ctx context.Context, accountID string, created int, kind models.MailboxErrorKind, lastError string) error
}

// Messenger sends outbound messages and reports the outcome instead of failing
type Messenger interface {
	SendEmail(ctx context.Context, email messaging.Email) messaging.Result
	SendSMS(ctx context.Context, to, body string) messaging.Result
}

// CopyWriter produces AI copy or nil when the template should be used
type CopyWriter interface {
	FollowupEmail(ctx context.Context, req copywriter.FollowupRequest) *copywriter.Copy
	FollowupSMS(ctx context.Context, req copywriter.FollowupRequest) *copywriter.Copy
	Autoreply(ctx context.Context, req copywriter.AutoreplyRequest) *copywriter.Copy
}

// LeadClassifier gates inbound mailbox candidates
type LeadClassifier interface {
	Classify(ctx context.Context, candidates []mailbox.Candidate) []bool
}

// Clock returns the current time; tests pin it
type Clock func() time.Time
