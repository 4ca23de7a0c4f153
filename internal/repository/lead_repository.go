package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vipul43/leadloop/internal/models"
	"gorm.io/gorm"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
	// ErrStaleLead means the row changed between read and write (another sweep or a tenant edit won)
	ErrStaleLead = errors.New("lead changed since it was read")
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// ListByClient returns all leads of a client, newest first
func (r *LeadRepository) ListByClient(ctx context.Context, clientID string) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// ListFollowupCandidates returns the client's leads that automation may still touch
func (r *LeadRepository) ListFollowupCandidates(ctx context.Context, clientID string) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status <> ?", clientID, models.LeadStatusRecovered).
		Order("created_at ASC").
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up candidates: %w", err)
	}
	return leads, nil
}

// Get retrieves a lead scoped to its client
func (r *LeadRepository) Get(ctx context.Context, clientID, leadID string) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.WithContext(ctx).First(&lead, "id = ? AND client_id = ?", leadID, clientID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", result.Error)
	}
	return &lead, nil
}

// Create inserts a lead
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// RecordFollowup stores a successful automated send.
// The write only lands if followups_sent still equals the value the caller read and the
// lead is not recovered, so two writers can never both count the same send slot.
// An empty status leaves the status unchanged.
func (r *LeadRepository) RecordFollowup(ctx context.Context, lead *models.Lead, sentAt time.Time, status string) error {
	updates := map[string]interface{}{
		"followups_sent": gorm.Expr("followups_sent + 1"),
		"last_contacted": sentAt,
		"updated_at":     sentAt,
	}
	if status != "" {
		updates["status"] = status
	}

	result := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND followups_sent = ? AND status <> ?", lead.ID, lead.FollowupsSent, models.LeadStatusRecovered).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to record follow-up: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleLead
	}

	lead.FollowupsSent++
	lead.LastContacted = &sentAt
	lead.UpdatedAt = sentAt
	if status != "" {
		lead.Status = status
	}
	return nil
}

// ApplyUpdate applies a tenant-facing update.
// mark_contacted sets last_contacted to now and moves the lead to waiting,
// unless an explicit status was given or the lead is already recovered.
func (r *LeadRepository) ApplyUpdate(ctx context.Context, clientID, leadID string, update models.LeadUpdate, now time.Time) (*models.Lead, error) {
	lead, err := r.Get(ctx, clientID, leadID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.Revenue != nil {
		updates["revenue"] = *update.Revenue
	}
	if update.MarkContacted {
		updates["last_contacted"] = now
		if update.Status == nil && !lead.IsRecovered() {
			updates["status"] = models.LeadStatusWaiting
		}
	}
	if len(updates) == 0 {
		return lead, nil
	}
	updates["updated_at"] = now

	result := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND client_id = ?", leadID, clientID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update lead: %w", result.Error)
	}

	return r.Get(ctx, clientID, leadID)
}

// Delete removes a lead and the dedup records that point at it
func (r *LeadRepository) Delete(ctx context.Context, clientID, leadID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND client_id = ?", leadID, clientID).Delete(&models.Lead{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLeadNotFound
		}

		if err := tx.Where("lead_id = ?", leadID).Delete(&models.ProcessedMessage{}).Error; err != nil {
			return fmt.Errorf("failed to purge processed messages: %w", err)
		}
		return nil
	})
}
