package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

func newTestFollowupService(stores *testStores, messenger *fakeMessenger, copy *fakeCopyWriter) *FollowupService {
	svc := NewFollowupService(stores.leads, stores.accounts, messenger, copy, nil, testSender, zap.NewNop())
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func TestDueForFirstFollowup(t *testing.T) {
	contacted := testNow.Add(-time.Hour)

	tests := []struct {
		name string
		lead models.Lead
		want bool
	}{
		{"25 hours old", models.Lead{CreatedAt: testNow.Add(-25 * time.Hour)}, true},
		{"exactly 24 hours", models.Lead{CreatedAt: testNow.Add(-24 * time.Hour)}, true},
		{"23 hours old", models.Lead{CreatedAt: testNow.Add(-23 * time.Hour)}, false},
		{"already sent", models.Lead{CreatedAt: testNow.Add(-48 * time.Hour), FollowupsSent: 1}, false},
		{"manually contacted", models.Lead{CreatedAt: testNow.Add(-48 * time.Hour), LastContacted: &contacted}, false},
		{"no creation time", models.Lead{}, false},
		{"recovered", models.Lead{CreatedAt: testNow.Add(-48 * time.Hour), Status: models.LeadStatusRecovered}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueForFirstFollowup(tt.lead, testNow))
		})
	}
}

func TestDueForWeeklyCheckin(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		ts := testNow.Add(-d)
		return &ts
	}

	assert.True(t, DueForWeeklyCheckin(models.Lead{LastContacted: at(8 * 24 * time.Hour)}, testNow))
	assert.True(t, DueForWeeklyCheckin(models.Lead{LastContacted: at(7 * 24 * time.Hour)}, testNow))
	assert.False(t, DueForWeeklyCheckin(models.Lead{LastContacted: at(6 * 24 * time.Hour)}, testNow))
	assert.False(t, DueForWeeklyCheckin(models.Lead{}, testNow))
	assert.False(t, DueForWeeklyCheckin(models.Lead{LastContacted: at(30 * 24 * time.Hour), Status: models.LeadStatusRecovered}, testNow))
}

func TestFollowupService_FirstFollowupFiresOnce(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	lead := stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "Jane",
		Email:     "jane@example.com",
		Source:    models.LeadSourceEmail,
		CreatedAt: testNow.Add(-25 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	stats, err := svc.RunForClient(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FirstSent)
	assert.Equal(t, 0, stats.WeeklySent)

	got := stores.reload(t, lead)
	assert.Equal(t, models.LeadStatusWaiting, got.Status)
	assert.Equal(t, 1, got.FollowupsSent)
	require.NotNil(t, got.LastContacted)
	assert.WithinDuration(t, testNow, *got.LastContacted, time.Second)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "jane@example.com", emails[0].To)
	assert.Equal(t, "Quick follow-up on your inquiry, Jane!", emails[0].Subject)
	assert.Equal(t, "Acme Events", emails[0].FromName)

	// Later sweeps in the same week send nothing more
	for i := 0; i < 3; i++ {
		stats, err = svc.RunForClient(ctx, client)
		require.NoError(t, err)
		assert.Zero(t, stats.FirstSent+stats.WeeklySent)
	}
	assert.Len(t, messenger.sentEmails(), 1)
	assert.Equal(t, 1, stores.reload(t, lead).FollowupsSent)
}

func TestFollowupService_TooEarly(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	lead := stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "Jane",
		Email:     "jane@example.com",
		CreatedAt: testNow.Add(-23 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	stats, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Checked)
	assert.Empty(t, messenger.sentEmails())

	got := stores.reload(t, lead)
	assert.Equal(t, models.LeadStatusNew, got.Status)
	assert.Zero(t, got.FollowupsSent)
	assert.Nil(t, got.LastContacted)
}

func TestFollowupService_WeeklyCheckin(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	contacted := testNow.Add(-8 * 24 * time.Hour)
	lead := stores.insertLead(t, &models.Lead{
		ClientID:      client.ID,
		Name:          "Jane",
		Email:         "jane@example.com",
		Status:        "quoted",
		FollowupsSent: 1,
		LastContacted: &contacted,
		CreatedAt:     testNow.Add(-10 * 24 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	stats, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WeeklySent)

	got := stores.reload(t, lead)
	assert.Equal(t, "quoted", got.Status)
	assert.Equal(t, 2, got.FollowupsSent)
	require.NotNil(t, got.LastContacted)
	assert.WithinDuration(t, testNow, *got.LastContacted, time.Second)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "Last chance to connect, Jane", emails[0].Subject)
}

func TestFollowupService_RecoveredLeadUntouched(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	contacted := testNow.Add(-30 * 24 * time.Hour)
	old := stores.insertLead(t, &models.Lead{
		ClientID:      client.ID,
		Name:          "Old",
		Email:         "old@example.com",
		Status:        models.LeadStatusRecovered,
		FollowupsSent: 1,
		LastContacted: &contacted,
		CreatedAt:     testNow.Add(-40 * 24 * time.Hour),
	})
	fresh := stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "Fresh",
		Email:     "fresh@example.com",
		Status:    models.LeadStatusRecovered,
		CreatedAt: testNow.Add(-48 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	_, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, messenger.sentEmails())

	gotOld := stores.reload(t, old)
	assert.Equal(t, 1, gotOld.FollowupsSent)
	assert.WithinDuration(t, contacted, *gotOld.LastContacted, time.Second)
	gotFresh := stores.reload(t, fresh)
	assert.Zero(t, gotFresh.FollowupsSent)
	assert.Nil(t, gotFresh.LastContacted)
}

func TestFollowupService_SendFailureLeavesLeadUnchanged(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	lead := stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "Jane",
		Email:     "jane@example.com",
		CreatedAt: testNow.Add(-30 * time.Hour),
	})

	svc := newTestFollowupService(stores, &fakeMessenger{fail: true}, &fakeCopyWriter{})

	stats, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got := stores.reload(t, lead)
	assert.Equal(t, models.LeadStatusNew, got.Status)
	assert.Zero(t, got.FollowupsSent)
	assert.Nil(t, got.LastContacted)
}

func TestFollowupService_SMSLeadUsesSMS(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "SMS Lead",
		Email:     "sms-15551234567@lead.local",
		Phone:     "+15551234567",
		Source:    models.LeadSourceMessages,
		CreatedAt: testNow.Add(-25 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	stats, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FirstSent)

	assert.Empty(t, messenger.sentEmails())
	sms := messenger.sentSMS()
	require.Len(t, sms, 1)
	assert.Equal(t, "+15551234567", sms[0].To)
	assert.Contains(t, sms[0].Body, "Hi SMS Lead")
	assert.Contains(t, sms[0].Body, "Acme Events")
}

func TestFollowupService_PlaceholderEmailIsNotSent(t *testing.T) {
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	lead := stores.insertLead(t, &models.Lead{
		ClientID:  client.ID,
		Name:      "SMS Lead",
		Email:     "sms-15551234567@lead.local",
		Source:    models.LeadSourceEmail,
		CreatedAt: testNow.Add(-25 * time.Hour),
	})

	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, &fakeCopyWriter{})

	stats, err := svc.RunForClient(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, messenger.sentEmails())
	assert.Zero(t, stores.reload(t, lead).FollowupsSent)
}

func TestFollowupService_GeneratedCopyAndSignature(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	client := stores.createClient(t, "acme", "Acme Events")
	sig := "Acme Events\n555-0100"
	_, err := stores.clients.UpdateSettings(ctx, client.ID, models.ClientSettings{SignatureBlock: &sig})
	require.NoError(t, err)
	client, err = stores.clients.GetByID(ctx, client.ID)
	require.NoError(t, err)

	_, err = stores.accounts.UpsertMailbox(ctx, client.ID, repository.MailboxSettings{Email: "owner@acme-events.com"})
	require.NoError(t, err)

	subject := "About your wedding"
	stores.insertLead(t, &models.Lead{
		ClientID:       client.ID,
		Name:           "Jane",
		Email:          "jane@example.com",
		InquirySubject: &subject,
		CreatedAt:      testNow.Add(-25 * time.Hour),
	})

	var seen copywriter.FollowupRequest
	copy := &fakeCopyWriter{
		followupEmailFunc: func(req copywriter.FollowupRequest) *copywriter.Copy {
			seen = req
			return &copywriter.Copy{Subject: "Your wedding plans", Body: "Happy to help with the date."}
		},
	}
	messenger := &fakeMessenger{}
	svc := newTestFollowupService(stores, messenger, copy)

	_, err = svc.RunForClient(ctx, client)
	require.NoError(t, err)

	assert.Equal(t, "About your wedding", seen.InquirySubject)
	assert.Equal(t, 0, seen.Number)
	assert.False(t, seen.Weekly)

	emails := messenger.sentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "Your wedding plans", emails[0].Subject)
	assert.Equal(t, "owner@acme-events.com", emails[0].FromAddress)
	assert.Contains(t, emails[0].HTML, "<p>Happy to help with the date.</p>")
	assert.Contains(t, emails[0].Text, "555-0100")
	assert.Contains(t, emails[0].HTML, "555-0100")
}

func TestFollowupIdentity(t *testing.T) {
	client := &models.Client{Name: "Acme Events"}

	id := FollowupIdentity(client, &models.Account{Email: "owner@gmail.com"}, testSender)
	assert.Equal(t, Identity{Name: "Acme Events", Address: "hello@leadloop.dev"}, id)

	id = FollowupIdentity(&models.Client{}, &models.Account{Email: "owner@acme.com"}, testSender)
	assert.Equal(t, Identity{Name: "owner", Address: "owner@acme.com"}, id)

	id = FollowupIdentity(&models.Client{}, nil, testSender)
	assert.Equal(t, Identity{Name: "Leadloop", Address: "hello@leadloop.dev"}, id)

	assert.True(t, IsFreeEmailDomain("Someone@Outlook.com"))
	assert.False(t, IsFreeEmailDomain("someone@acme.com"))
	assert.False(t, IsFreeEmailDomain("not-an-address"))
}
