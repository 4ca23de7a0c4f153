package models

import "time"

// Client is a tenant: one paying business with its own leads and outbound settings.
type Client struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	Slug           string    `gorm:"column:slug;uniqueIndex" json:"slug"`
	Name           string    `gorm:"column:name" json:"name"`
	ContactPhone   string    `gorm:"column:contact_phone" json:"contact_phone"`
	Pricing        string    `gorm:"column:pricing" json:"pricing"`
	SavedInfo      string    `gorm:"column:saved_info" json:"saved_info"`
	SignatureBlock string    `gorm:"column:signature_block" json:"signature_block"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Client) TableName() string {
	return "clients"
}

// ClientSettings holds the tenant-editable fields. Nil means unchanged.
type ClientSettings struct {
	SignatureBlock *string `json:"signature_block"`
	ContactPhone   *string `json:"contact_phone"`
	Pricing        *string `json:"pricing"`
	SavedInfo      *string `json:"saved_info"`
}
