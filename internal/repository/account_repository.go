package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vipul43/leadloop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves account by ID
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).First(&account, "id = ?", accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// GetByClientID retrieves the account that owns a client
func (r *AccountRepository) GetByClientID(ctx context.Context, clientID string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).First(&account, "client_id = ?", clientID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// ListWithMailbox returns accounts that have ingestion credentials, in round-robin order.
// Never-synced mailboxes come first, then the ones synced longest ago.
func (r *AccountRepository) ListWithMailbox(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("accounts.*").
		Joins("LEFT JOIN mailbox_syncs ON mailbox_syncs.account_id = accounts.id").
		Where("(accounts.mailbox_password IS NOT NULL AND accounts.mailbox_password <> '') OR (accounts.refresh_token IS NOT NULL AND accounts.refresh_token <> '')").
		Order("mailbox_syncs.last_synced_at ASC NULLS FIRST").
		Order("accounts.created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox accounts: %w", err)
	}

	withMailbox := accounts[:0]
	for _, a := range accounts {
		if a.HasMailbox() {
			withMailbox = append(withMailbox, a)
		}
	}
	return withMailbox, nil
}

// MailboxSettings is the credential update for an account. Empty secrets clear them.
type MailboxSettings struct {
	Email        string
	Provider     models.MailboxProvider
	Host         string
	Password     string
	RefreshToken string
}

// UpsertMailbox creates the client's account if needed and stores its mailbox credentials
func (r *AccountRepository) UpsertMailbox(ctx context.Context, clientID string, settings MailboxSettings) (*models.Account, error) {
	provider := settings.Provider
	if provider == "" {
		provider = models.MailboxProviderIMAP
	}

	now := time.Now()
	account := models.Account{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Email:           strings.ToLower(strings.TrimSpace(settings.Email)),
		MailboxProvider: provider,
		MailboxHost:     strings.TrimSpace(settings.Host),
		MailboxPassword: nonEmpty(settings.Password),
		RefreshToken:    nonEmpty(settings.RefreshToken),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "mailbox_provider", "mailbox_host", "mailbox_password", "refresh_token", "updated_at",
		}),
	}).Create(&account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save mailbox settings: %w", err)
	}

	return r.GetByClientID(ctx, clientID)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
