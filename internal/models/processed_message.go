package models

import "time"

type MessageSource string

const (
	MessageSourceEmail MessageSource = "email"
	MessageSourceSMS   MessageSource = "sms"
)

// ProcessedMessage records that an external message already produced a lead.
// Write-once; removed only together with its lead.
type ProcessedMessage struct {
	ID         string        `gorm:"column:id;primaryKey"`
	ClientID   string        `gorm:"column:client_id;uniqueIndex:idx_processed_messages_external"`
	Source     MessageSource `gorm:"column:source;uniqueIndex:idx_processed_messages_external"`
	ExternalID string        `gorm:"column:external_id;uniqueIndex:idx_processed_messages_external"`
	LeadID     string        `gorm:"column:lead_id;index"`
	CreatedAt  time.Time     `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}
