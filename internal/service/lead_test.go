package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

func TestLeadService_CreateSendsDefaultAutoreply(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	phone := "555-0100"
	_, err := stores.clients.UpdateSettings(ctx, client.ID, models.ClientSettings{ContactPhone: &phone})
	require.NoError(t, err)
	client, err = stores.clients.GetByID(ctx, client.ID)
	require.NoError(t, err)
	_, err = stores.accounts.UpsertMailbox(ctx, client.ID, repository.MailboxSettings{Email: "owner@acme.com"})
	require.NoError(t, err)

	messenger := &fakeMessenger{}
	svc := newTestLeadService(stores, messenger, &fakeCopyWriter{})

	lead, err := svc.Create(ctx, client, NewLead{Name: " Jane ", Email: "jane@example.com", Source: "Website"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", lead.Name)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, "Website", lead.Source)
	assert.Nil(t, lead.InquirySubject)

	stored := stores.reload(t, lead)
	assert.Equal(t, lead.ID, stored.ID)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	email := emails[0]
	assert.Equal(t, "jane@example.com", email.To)
	assert.Equal(t, "We received your inquiry", email.Subject)
	assert.Equal(t, "Acme Events", email.FromName)
	assert.Equal(t, "hello@leadloop.dev", email.FromAddress)
	assert.Equal(t, "owner@acme.com", email.ReplyTo)
	assert.Equal(t, "owner@acme.com", email.Bcc)
	assert.Contains(t, email.Text, "Hi Jane,")
	assert.Contains(t, email.Text, "Thank you for reaching out, we are actively working on this. Feel free to reply")
	assert.Contains(t, email.Text, "call/text 555-0100!")
}

func TestLeadService_CreateDefaultsSource(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	messenger := &fakeMessenger{}
	svc := newTestLeadService(stores, messenger, &fakeCopyWriter{})

	lead, err := svc.Create(context.Background(), client, NewLead{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadSourceUnknown, lead.Source)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Text, "Hi there,")
	assert.Contains(t, emails[0].Text, "call/text us at your convenience!")
	assert.Empty(t, emails[0].ReplyTo)
}

func TestLeadService_AutoreplySkipped(t *testing.T) {
	for _, address := range []string{"", "not-an-address", "sms-15551234567@lead.local"} {
		t.Run(address, func(t *testing.T) {
			stores := newTestStores(t)
			client := stores.createClient(t, "acme", "Acme Events")
			messenger := &fakeMessenger{}
			svc := newTestLeadService(stores, messenger, &fakeCopyWriter{})

			lead, err := svc.Create(context.Background(), client, NewLead{Name: "Jane", Email: address})
			require.NoError(t, err)
			assert.NotEmpty(t, lead.ID)
			assert.Empty(t, messenger.sentEmails())
		})
	}
}

func TestLeadService_AutoreplyFailureKeepsLead(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	svc := newTestLeadService(stores, &fakeMessenger{fail: true}, &fakeCopyWriter{})

	lead, err := svc.Create(context.Background(), client, NewLead{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, lead.ID, stores.reload(t, lead).ID)
}

func TestLeadService_GeneratedAutoreply(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	copy := &fakeCopyWriter{
		autoreplyFunc: func(req copywriter.AutoreplyRequest) *copywriter.Copy {
			return &copywriter.Copy{Subject: "Re: your June wedding", Body: "We have June dates open."}
		},
	}
	messenger := &fakeMessenger{}
	svc := newTestLeadService(stores, messenger, copy)

	_, err := svc.Create(context.Background(), client, NewLead{
		Name:           "Jane",
		Email:          "jane@example.com",
		InquirySubject: "Wedding in June",
		InquiryBody:    "Do you have availability?",
	})
	require.NoError(t, err)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "Re: your June wedding", emails[0].Subject)
	assert.Contains(t, emails[0].Text, "We have June dates open. Feel free to reply to this email")
}

func TestLeadService_PricingOnlyWhenAsked(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	pricing := "Packages start at $2,000"
	saved := "We cover the whole state"
	_, err := stores.clients.UpdateSettings(ctx, client.ID, models.ClientSettings{Pricing: &pricing, SavedInfo: &saved})
	require.NoError(t, err)
	client, err = stores.clients.GetByID(ctx, client.ID)
	require.NoError(t, err)

	copy := &fakeCopyWriter{}
	svc := newTestLeadService(stores, &fakeMessenger{}, copy)

	_, err = svc.Create(ctx, client, NewLead{Email: "a@example.com", InquiryBody: "Are you free on May 3?"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, client, NewLead{Email: "b@example.com", InquiryBody: "How much for a 4 hour event?"})
	require.NoError(t, err)

	require.Len(t, copy.autoreplyCalls, 2)
	assert.Empty(t, copy.autoreplyCalls[0].Pricing)
	assert.Equal(t, saved, copy.autoreplyCalls[0].SavedInfo)
	assert.Equal(t, pricing, copy.autoreplyCalls[1].Pricing)
}

func TestLeadService_CreateFromMessageDedups(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	messenger := &fakeMessenger{}
	svc := newTestLeadService(stores, messenger, &fakeCopyWriter{})

	in := NewLead{Name: "Jane", Email: "jane@example.com", Source: models.LeadSourceEmail}
	lead, created, err := svc.CreateFromMessage(ctx, client, models.MessageSourceEmail, "<abc@mail>", in)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := svc.CreateFromMessage(ctx, client, models.MessageSourceEmail, "<abc@mail>", in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)

	leads, err := svc.List(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
	count, err := stores.processed.CountForLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Len(t, messenger.sentEmails(), 1)
}

func TestLeadService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	svc := newTestLeadService(stores, &fakeMessenger{}, &fakeCopyWriter{})

	lead, created, err := svc.CreateFromMessage(ctx, client, models.MessageSourceSMS, "SM1", NewLead{Name: "SMS Lead"})
	require.NoError(t, err)
	require.True(t, created)

	updated, err := svc.Update(ctx, client.ID, lead.ID, models.LeadUpdate{MarkContacted: true})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusWaiting, updated.Status)
	require.NotNil(t, updated.LastContacted)
	assert.WithinDuration(t, testNow, *updated.LastContacted, time.Second)

	empty := "  "
	_, err = svc.Update(ctx, client.ID, lead.ID, models.LeadUpdate{Status: &empty})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, svc.Delete(ctx, client.ID, lead.ID))
	_, err = svc.Get(ctx, client.ID, lead.ID)
	assert.ErrorIs(t, err, repository.ErrLeadNotFound)

	// The purged dedup record lets the same message create a lead again
	_, created, err = svc.CreateFromMessage(ctx, client, models.MessageSourceSMS, "SM1", NewLead{Name: "SMS Lead"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestAsksAboutPricing(t *testing.T) {
	assert.True(t, AsksAboutPricing("What are your RATES?"))
	assert.True(t, AsksAboutPricing("could you send a quote"))
	assert.False(t, AsksAboutPricing("Are you available Saturday?"))
}

func TestCanAutoreply(t *testing.T) {
	assert.True(t, CanAutoreply("jane@example.com"))
	assert.False(t, CanAutoreply(""))
	assert.False(t, CanAutoreply("jane"))
	assert.False(t, CanAutoreply("SMS-1555@LEAD.LOCAL"))
}
