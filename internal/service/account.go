package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/logger"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

// MailboxInput is the tenant-submitted mailbox configuration. Empty secrets clear the stored ones.
type MailboxInput struct {
	Email        string `json:"email"`
	Provider     string `json:"provider"`
	Host         string `json:"host"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// IngestionStatus is what the tenant sees about their mailbox ingestion
type IngestionStatus struct {
	Active        bool                    `json:"active"`
	Message       string                  `json:"message"`
	Email         string                  `json:"email,omitempty"`
	Provider      string                  `json:"provider,omitempty"`
	LastSyncedAt  *time.Time              `json:"last_synced_at,omitempty"`
	LastCreated   int                     `json:"last_created"`
	LastError     string                  `json:"last_error,omitempty"`
	LastErrorKind models.MailboxErrorKind `json:"last_error_kind,omitempty"`
}

type AccountService struct {
	accounts AccountStore
	syncs    MailboxSyncStore
	interval time.Duration
	log      *zap.Logger
}

func NewAccountService(accounts AccountStore, syncs MailboxSyncStore, interval time.Duration, log *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		syncs:    syncs,
		interval: interval,
		log:      log,
	}
}

// ConfigureMailbox validates and stores the tenant's mailbox settings
func (s *AccountService) ConfigureMailbox(ctx context.Context, clientID string, in MailboxInput) (*models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid mailbox email is required", ErrInvalidMailbox)
	}

	provider := models.MailboxProvider(strings.ToLower(strings.TrimSpace(in.Provider)))
	switch provider {
	case "":
		provider = models.MailboxProviderIMAP
	case models.MailboxProviderIMAP, models.MailboxProviderGmail:
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidMailbox, in.Provider)
	}

	account, err := s.accounts.UpsertMailbox(ctx, clientID, repository.MailboxSettings{
		Email:    email,
		Provider: provider,
		Host:     strings.TrimSpace(in.Host),
		// App passwords are displayed in groups of four
		Password:     strings.ReplaceAll(strings.TrimSpace(in.Password), " ", ""),
		RefreshToken: strings.TrimSpace(in.RefreshToken),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Mailbox settings saved",
		zap.String("client_id", clientID),
		zap.String("mailbox", logger.MaskEmail(email)),
		zap.String("provider", string(provider)),
		zap.Bool("active", account.HasMailbox()))
	return account, nil
}

// IngestionStatus explains whether the tenant's mailbox is being polled and how the last pass went
func (s *AccountService) IngestionStatus(ctx context.Context, clientID string) (IngestionStatus, error) {
	account, err := s.accounts.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return IngestionStatus{Message: "No client linked to your account. Contact support."}, nil
		}
		return IngestionStatus{}, err
	}

	status := IngestionStatus{Email: account.Email, Provider: string(account.MailboxProvider)}
	if !account.HasMailbox() {
		status.Message = "Save your Gmail App Password in Settings to enable email lead ingestion."
		return status, nil
	}

	status.Active = true
	status.Message = fmt.Sprintf("Ingestion is active. Unread emails are checked every %s.", humanizeInterval(s.interval))

	sync, err := s.syncs.Get(ctx, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMailboxSyncNotFound) {
			return status, nil
		}
		return IngestionStatus{}, err
	}
	status.LastSyncedAt = sync.LastSyncedAt
	status.LastCreated = sync.LastCreated
	status.LastErrorKind = sync.LastErrorKind
	if sync.LastError != nil {
		status.LastError = *sync.LastError
	}
	return status, nil
}

func humanizeInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "few minutes"
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
