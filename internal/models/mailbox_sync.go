package models

import "time"

type MailboxErrorKind string

const (
	MailboxErrorNone    MailboxErrorKind = ""
	MailboxErrorAuth    MailboxErrorKind = "auth"    // Login rejected
	MailboxErrorTimeout MailboxErrorKind = "timeout" // Dial or read deadline hit
	MailboxErrorOther   MailboxErrorKind = "other"
)

// MailboxSync tracks the last ingestion attempt for an account's mailbox
type MailboxSync struct {
	AccountID     string           `gorm:"column:account_id;primaryKey" json:"account_id"`
	LastSyncedAt  *time.Time       `gorm:"column:last_synced_at" json:"last_synced_at"`
	Attempts      int              `gorm:"column:attempts" json:"attempts"`
	LastError     *string          `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorKind MailboxErrorKind `gorm:"column:last_error_kind" json:"last_error_kind,omitempty"`
	LastCreated   int              `gorm:"column:last_created" json:"last_created"`
	UpdatedAt     time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (MailboxSync) TableName() string {
	return "mailbox_syncs"
}
