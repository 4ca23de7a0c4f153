package models

import (
	"strings"
	"time"
)

type MailboxProvider string

const (
	MailboxProviderIMAP  MailboxProvider = "imap"  // App password over IMAP
	MailboxProviderGmail MailboxProvider = "gmail" // OAuth refresh token via Gmail API
)

// Account is the login identity that owns exactly one client.
// Mailbox credentials are optional; without them the account is skipped by ingestion.
type Account struct {
	ID              string          `gorm:"column:id;primaryKey" json:"id"`
	ClientID        string          `gorm:"column:client_id;uniqueIndex" json:"client_id"`
	Email           string          `gorm:"column:email" json:"email"`
	MailboxProvider MailboxProvider `gorm:"column:mailbox_provider" json:"mailbox_provider"`
	MailboxHost     string          `gorm:"column:mailbox_host" json:"mailbox_host"`
	MailboxPassword *string         `gorm:"column:mailbox_password" json:"-"`
	RefreshToken    *string         `gorm:"column:refresh_token" json:"-"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// HasMailbox reports whether the account carries credentials for its provider
func (a Account) HasMailbox() bool {
	switch a.MailboxProvider {
	case MailboxProviderGmail:
		return a.RefreshToken != nil && strings.TrimSpace(*a.RefreshToken) != ""
	default:
		return a.MailboxPassword != nil && strings.TrimSpace(*a.MailboxPassword) != ""
	}
}

// LocalPart returns the part of the email before the @
func (a Account) LocalPart() string {
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}
