package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/messaging"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var testSender = SenderDefaults{Name: "Leadloop", Address: "hello@leadloop.dev"}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Client{},
		&models.Account{},
		&models.Lead{},
		&models.ProcessedMessage{},
		&models.MailboxSync{},
	))
	return db
}

// testStores bundles the real repositories over one database
type testStores struct {
	db        *gorm.DB
	clients   *repository.ClientRepository
	accounts  *repository.AccountRepository
	leads     *repository.LeadRepository
	processed *repository.ProcessedMessageRepository
	syncs     *repository.MailboxSyncRepository
}

func newTestStores(t *testing.T) *testStores {
	db := newTestDB(t)
	return &testStores{
		db:        db,
		clients:   repository.NewClientRepository(db),
		accounts:  repository.NewAccountRepository(db),
		leads:     repository.NewLeadRepository(db),
		processed: repository.NewProcessedMessageRepository(db),
		syncs:     repository.NewMailboxSyncRepository(db),
	}
}

func (s *testStores) createClient(t *testing.T, slug, name string) *models.Client {
	t.Helper()
	client, err := s.clients.Create(context.Background(), slug, name)
	require.NoError(t, err)
	return client
}

func (s *testStores) insertLead(t *testing.T, lead *models.Lead) *models.Lead {
	t.Helper()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	require.NoError(t, s.leads.Create(context.Background(), lead))
	return lead
}

func (s *testStores) reload(t *testing.T, lead *models.Lead) *models.Lead {
	t.Helper()
	got, err := s.leads.Get(context.Background(), lead.ClientID, lead.ID)
	require.NoError(t, err)
	return got
}

type sentSMS struct {
	To   string
	Body string
}

// fakeMessenger records every send; fail switches all sends to failures
type fakeMessenger struct {
	mu     sync.Mutex
	emails []messaging.Email
	sms    []sentSMS
	fail   bool
}

func (m *fakeMessenger) SendEmail(ctx context.Context, email messaging.Email) messaging.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return messaging.Result{Error: "smtp unavailable"}
	}
	m.emails = append(m.emails, email)
	return messaging.Result{Success: true, ID: "<msg-" + uuid.New().String() + "@test>"}
}

func (m *fakeMessenger) SendSMS(ctx context.Context, to, body string) messaging.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return messaging.Result{Error: "twilio unavailable"}
	}
	m.sms = append(m.sms, sentSMS{To: to, Body: body})
	return messaging.Result{Success: true, ID: "SM" + uuid.New().String()}
}

func (m *fakeMessenger) sentEmails() []messaging.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]messaging.Email(nil), m.emails...)
}

func (m *fakeMessenger) sentSMS() []sentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentSMS(nil), m.sms...)
}

// fakeCopyWriter returns nil (template fallback) unless a func is set
type fakeCopyWriter struct {
	followupEmailFunc func(req copywriter.FollowupRequest) *copywriter.Copy
	followupSMSFunc   func(req copywriter.FollowupRequest) *copywriter.Copy
	autoreplyFunc     func(req copywriter.AutoreplyRequest) *copywriter.Copy

	mu             sync.Mutex
	autoreplyCalls []copywriter.AutoreplyRequest
}

func (f *fakeCopyWriter) FollowupEmail(ctx context.Context, req copywriter.FollowupRequest) *copywriter.Copy {
	if f.followupEmailFunc != nil {
		return f.followupEmailFunc(req)
	}
	return nil
}

func (f *fakeCopyWriter) FollowupSMS(ctx context.Context, req copywriter.FollowupRequest) *copywriter.Copy {
	if f.followupSMSFunc != nil {
		return f.followupSMSFunc(req)
	}
	return nil
}

func (f *fakeCopyWriter) Autoreply(ctx context.Context, req copywriter.AutoreplyRequest) *copywriter.Copy {
	f.mu.Lock()
	f.autoreplyCalls = append(f.autoreplyCalls, req)
	f.mu.Unlock()
	if f.autoreplyFunc != nil {
		return f.autoreplyFunc(req)
	}
	return nil
}

// fakeClassifier accepts everything unless decide is set
type fakeClassifier struct {
	decide func(c mailbox.Candidate) bool
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, candidates []mailbox.Candidate) []bool {
	f.calls++
	out := make([]bool, len(candidates))
	for i, c := range candidates {
		out[i] = f.decide == nil || f.decide(c)
	}
	return out
}

// fakeFetcher serves a fixed set of unread candidates, oldest first; a limit keeps the newest
type fakeFetcher struct {
	mu         sync.Mutex
	candidates []mailbox.Candidate
	fetchErr   error
	markErr    error
	block      chan struct{}
	marked     [][]string
}

func (f *fakeFetcher) FetchUnread(ctx context.Context, creds mailbox.Credentials, limit int) ([]mailbox.Candidate, error) {
	if f.block != nil {
		<-f.block
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 0 && len(f.candidates) > limit {
		return append([]mailbox.Candidate(nil), f.candidates[len(f.candidates)-limit:]...), nil
	}
	return append([]mailbox.Candidate(nil), f.candidates...), nil
}

func (f *fakeFetcher) MarkProcessed(ctx context.Context, creds mailbox.Credentials, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, append([]string(nil), ids...))
	return f.markErr
}

func (f *fakeFetcher) markedBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.marked...)
}

func newTestLeadService(stores *testStores, messenger *fakeMessenger, copy *fakeCopyWriter) *LeadService {
	svc := NewLeadService(stores.leads, stores.processed, stores.accounts, messenger, copy, nil, testSender, zap.NewNop())
	svc.SetClock(func() time.Time { return testNow })
	return svc
}
