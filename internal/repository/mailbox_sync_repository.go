package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vipul43/leadloop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMailboxSyncNotFound = errors.New("mailbox sync not found")
	errAlreadyProcessed    = errors.New("message already processed")
)

type MailboxSyncRepository struct {
	db *gorm.DB
}

func NewMailboxSyncRepository(db *gorm.DB) *MailboxSyncRepository {
	return &MailboxSyncRepository{db: db}
}

// Get returns the last sync state of an account
func (r *MailboxSyncRepository) Get(ctx context.Context, accountID string) (*models.MailboxSync, error) {
	var sync models.MailboxSync
	result := r.db.WithContext(ctx).First(&sync, "account_id = ?", accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMailboxSyncNotFound
		}
		return nil, fmt.Errorf("failed to get mailbox sync: %w", result.Error)
	}
	return &sync, nil
}

// Record stores the outcome of one ingestion attempt.
// last_synced_at moves the account to the back of the round-robin order.
func (r *MailboxSyncRepository) Record(ctx context.Context, accountID string, created int, kind models.MailboxErrorKind, lastError string) error {
	now := time.Now()
	var errPtr *string
	if lastError != "" {
		errPtr = &lastError
	}

	sync := models.MailboxSync{
		AccountID:     accountID,
		LastSyncedAt:  &now,
		Attempts:      1,
		LastError:     errPtr,
		LastErrorKind: kind,
		LastCreated:   created,
		UpdatedAt:     now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_synced_at":  now,
			"attempts":        gorm.Expr("mailbox_syncs.attempts + 1"),
			"last_error":      errPtr,
			"last_error_kind": kind,
			"last_created":    created,
			"updated_at":      now,
		}),
	}).Create(&sync).Error
	if err != nil {
		return fmt.Errorf("failed to record mailbox sync: %w", err)
	}
	return nil
}
