// Package events announces lead lifecycle changes to other systems.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeLeadCreated      = "lead.created"
	TypeLeadFollowupSent = "lead.followup_sent"
)

type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	ClientID   string            `json:"client_id"`
	LeadID     string            `json:"lead_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func New(eventType, clientID, leadID string, occurredAt time.Time, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ClientID:   clientID,
		LeadID:     leadID,
		OccurredAt: occurredAt.UTC(),
		Attributes: attrs,
	}
}

// Publisher delivers events on a best-effort basis; failures are logged by the implementation
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
