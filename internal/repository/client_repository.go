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
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSlugTaken      = errors.New("client slug already exists")
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns every client ordered by creation
func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// GetBySlug retrieves a client by its public slug
func (r *ClientRepository) GetBySlug(ctx context.Context, slug string) (*models.Client, error) {
	var client models.Client
	result := r.db.WithContext(ctx).First(&client, "slug = ?", strings.TrimSpace(slug))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", result.Error)
	}
	return &client, nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	result := r.db.WithContext(ctx).First(&client, "id = ?", clientID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", result.Error)
	}
	return &client, nil
}

// Create inserts a new client. Returns ErrSlugTaken when the slug is in use.
func (r *ClientRepository) Create(ctx context.Context, slug, name string) (*models.Client, error) {
	slug = strings.TrimSpace(slug)
	if _, err := r.GetBySlug(ctx, slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}

	now := time.Now()
	client := models.Client{
		ID:        uuid.New().String(),
		Slug:      slug,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &client, nil
}

// UpdateSettings applies the non-nil fields of settings
func (r *ClientRepository) UpdateSettings(ctx context.Context, clientID string, settings models.ClientSettings) (*models.Client, error) {
	updates := map[string]interface{}{}
	if settings.SignatureBlock != nil {
		updates["signature_block"] = strings.TrimSpace(*settings.SignatureBlock)
	}
	if settings.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*settings.ContactPhone)
	}
	if settings.Pricing != nil {
		updates["pricing"] = strings.TrimSpace(*settings.Pricing)
	}
	if settings.SavedInfo != nil {
		updates["saved_info"] = strings.TrimSpace(*settings.SavedInfo)
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		result := r.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update client settings: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrClientNotFound
		}
	}

	return r.GetByID(ctx, clientID)
}
