package models

import "time"

// Well-known lead statuses. Tenants may store any other string as a terminal state.
const (
	LeadStatusNew       = "new"
	LeadStatusWaiting   = "waiting"
	LeadStatusRecovered = "recovered"
)

// Lead sources
const (
	LeadSourceManual   = "Manual"
	LeadSourceEmail    = "Email"
	LeadSourceMessages = "Messages"
	LeadSourceUnknown  = "Unknown"
)

const (
	MaxInquirySubjectLen = 500
	MaxInquiryBodyLen    = 2000
)

type Lead struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	ClientID       string     `gorm:"column:client_id;index" json:"client_id"`
	Name           string     `gorm:"column:name" json:"name"`
	Email          string     `gorm:"column:email" json:"email"`
	Phone          string     `gorm:"column:phone" json:"phone"`
	Status         string     `gorm:"column:status" json:"status"`
	Source         string     `gorm:"column:source" json:"source"`
	Revenue        float64    `gorm:"column:revenue" json:"revenue"`
	InquirySubject *string    `gorm:"column:inquiry_subject" json:"inquiry_subject,omitempty"`
	InquiryBody    *string    `gorm:"column:inquiry_body" json:"inquiry_body,omitempty"`
	FollowupsSent  int        `gorm:"column:followups_sent" json:"followups_sent"`
	LastContacted  *time.Time `gorm:"column:last_contacted" json:"last_contacted"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Lead) TableName() string {
	return "leads"
}

// IsRecovered reports whether the lead is closed for automated follow-ups
func (l Lead) IsRecovered() bool {
	return l.Status == LeadStatusRecovered
}

// Subject returns the captured inquiry subject or ""
func (l Lead) Subject() string {
	if l.InquirySubject == nil {
		return ""
	}
	return *l.InquirySubject
}

// Body returns the captured inquiry body or ""
func (l Lead) Body() string {
	if l.InquiryBody == nil {
		return ""
	}
	return *l.InquiryBody
}

// LeadUpdate is a tenant-facing partial update.
type LeadUpdate struct {
	Status        *string  `json:"status"`
	Revenue       *float64 `json:"revenue"`
	MarkContacted bool     `json:"mark_contacted"`
}
