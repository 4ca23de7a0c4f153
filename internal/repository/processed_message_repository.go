package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vipul43/leadloop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessedMessageRepository struct {
	db *gorm.DB
}

func NewProcessedMessageRepository(db *gorm.DB) *ProcessedMessageRepository {
	return &ProcessedMessageRepository{db: db}
}

// Exists reports whether the external message already produced a lead for the client
func (r *ProcessedMessageRepository) Exists(ctx context.Context, clientID string, source models.MessageSource, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProcessedMessage{}).
		Where("client_id = ? AND source = ? AND external_id = ?", clientID, source, externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check processed message: %w", err)
	}
	return count > 0, nil
}

// CreateLeadOnce claims the external id and inserts the lead in one transaction.
// Returns false without creating anything when the id was already claimed.
func (r *ProcessedMessageRepository) CreateLeadOnce(ctx context.Context, source models.MessageSource, externalID string, lead *models.Lead) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}

		record := models.ProcessedMessage{
			ID:         uuid.New().String(),
			ClientID:   lead.ClientID,
			Source:     source,
			ExternalID: externalID,
			LeadID:     lead.ID,
			CreatedAt:  time.Now(),
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return fmt.Errorf("failed to record processed message: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Another pass already owns this id; undo the lead insert.
			return errAlreadyProcessed
		}

		created = true
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

// CountForLead returns how many dedup records point at a lead
func (r *ProcessedMessageRepository) CountForLead(ctx context.Context, leadID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProcessedMessage{}).Where("lead_id = ?", leadID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count processed messages: %w", err)
	}
	return count, nil
}
