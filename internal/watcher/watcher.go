// Package watcher drives the periodic follow-up and mailbox ingestion sweeps.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vipul43/leadloop/internal/config"
	"github.com/vipul43/leadloop/internal/lock"
	"github.com/vipul43/leadloop/internal/metrics"
	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
	"github.com/vipul43/leadloop/internal/service"
)

const (
	SweepFollowup  = "followup"
	SweepIngestion = "ingestion"

	followupLockTTL  = 30 * time.Minute
	ingestionLockTTL = 10 * time.Minute

	defaultFollowupInterval  = time.Hour
	defaultIngestionInterval = 2 * time.Minute
)

// ErrBusy means another sweep or check holds the tenant's lock
var ErrBusy = errors.New("a check for this mailbox is already running")

// ClientStore interface for dependency injection
type ClientStore interface {
	List(ctx context.Context) ([]models.Client, error)
	GetBySlug(ctx context.Context, slug string) (*models.Client, error)
}

// AccountStore interface for dependency injection
type AccountStore interface {
	ListWithMailbox(ctx context.Context) ([]models.Account, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Account, error)
}

// FollowupRunner runs the follow-up rules for one tenant
type FollowupRunner interface {
	RunForClient(ctx context.Context, client *models.Client) (service.SweepStats, error)
}

// MailboxIngester runs one mailbox pass
type MailboxIngester interface {
	IngestMailbox(ctx context.Context, account models.Account, limit int) service.IngestResult
	CheckMailboxNow(ctx context.Context, account models.Account, opts service.CheckOptions) (service.IngestResult, error)
}

type Options struct {
	FollowupInterval    time.Duration
	IngestionInterval   time.Duration
	Concurrency         int
	// IngestLimit caps scheduled passes; 0 fetches every unread message
	IngestLimit         int
	CheckNowTimeout     time.Duration
	CheckNowMaxMessages int
}

// OptionsFromConfig maps the sweep settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FollowupInterval:    cfg.FollowupInterval,
		IngestionInterval:   cfg.IngestionInterval,
		Concurrency:         cfg.SweepConcurrency,
		CheckNowTimeout:     cfg.CheckNowTimeout,
		CheckNowMaxMessages: cfg.CheckNowMaxMessages,
	}
}

// SweepReport summarizes one sweep across tenants
type SweepReport struct {
	Sweep     string             `json:"sweep"`
	Tenants   int                `json:"tenants"`
	Busy      int                `json:"busy"`
	Failed    int                `json:"failed"`
	Followups service.SweepStats `json:"followups"`
	Created   int                `json:"created"`
	Skipped   int                `json:"skipped"`
	Duration  time.Duration      `json:"duration_ns"`
}

type Watcher struct {
	opts      Options
	clients   ClientStore
	accounts  AccountStore
	followups FollowupRunner
	ingester  MailboxIngester
	locker    lock.Locker
	log       *zap.Logger
}

func New(
	opts Options,
	clients ClientStore,
	accounts AccountStore,
	followups FollowupRunner,
	ingester MailboxIngester,
	locker lock.Locker,
	log *zap.Logger,
) *Watcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	// time.NewTicker panics on non-positive periods
	if opts.FollowupInterval <= 0 {
		opts.FollowupInterval = defaultFollowupInterval
	}
	if opts.IngestionInterval <= 0 {
		opts.IngestionInterval = defaultIngestionInterval
	}
	return &Watcher{
		opts:      opts,
		clients:   clients,
		accounts:  accounts,
		followups: followups,
		ingester:  ingester,
		locker:    locker,
		log:       log,
	}
}

// Start runs both sweeps once, then on their tickers until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("Starting watcher",
		zap.Duration("followup_interval", w.opts.FollowupInterval),
		zap.Duration("ingestion_interval", w.opts.IngestionInterval),
		zap.Int("concurrency", w.opts.Concurrency))

	// Catch up on anything that came due while the process was down
	w.RunIngestionSweep(ctx, "")
	w.RunFollowupSweep(ctx)

	followupTicker := time.NewTicker(w.opts.FollowupInterval)
	defer followupTicker.Stop()
	ingestionTicker := time.NewTicker(w.opts.IngestionInterval)
	defer ingestionTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Watcher shutting down")
			return ctx.Err()
		case <-ingestionTicker.C:
			w.RunIngestionSweep(ctx, "")
		case <-followupTicker.C:
			w.RunFollowupSweep(ctx)
		}
	}
}

// RunFollowupSweep runs the follow-up rules for every tenant. A busy or failing tenant
// never stops the others.
func (w *Watcher) RunFollowupSweep(ctx context.Context) SweepReport {
	start := time.Now()
	report := SweepReport{Sweep: SweepFollowup}

	clients, err := w.clients.List(ctx)
	if err != nil {
		w.log.Error("Failed to list clients for follow-up sweep", zap.Error(err))
		report.Failed++
		return w.finish(report, start)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)

	for i := range clients {
		client := &clients[i]
		g.Go(func() error {
			stats, err := w.followupClient(ctx, client)

			mu.Lock()
			defer mu.Unlock()
			report.Tenants++
			switch {
			case errors.Is(err, lock.ErrNotAcquired):
				report.Busy++
			case err != nil:
				report.Failed++
				w.log.Error("Follow-up sweep failed for client", zap.String("client", client.Slug), zap.Error(err))
			}
			report.Followups.Add(stats)
			return nil
		})
	}
	_ = g.Wait()

	return w.finish(report, start)
}

func (w *Watcher) followupClient(ctx context.Context, client *models.Client) (service.SweepStats, error) {
	release, err := w.locker.TryLock(ctx, "followup:"+client.ID, followupLockTTL)
	if err != nil {
		return service.SweepStats{}, err
	}
	defer release()

	return w.followups.RunForClient(ctx, client)
}

// RunIngestionSweep polls mailboxes. scope limits the sweep to one client slug; empty means all.
func (w *Watcher) RunIngestionSweep(ctx context.Context, scope string) (SweepReport, error) {
	start := time.Now()
	report := SweepReport{Sweep: SweepIngestion}

	accounts, err := w.ingestionAccounts(ctx, scope)
	if err != nil {
		if scope == "" {
			w.log.Error("Failed to list mailbox accounts", zap.Error(err))
		}
		report.Failed++
		return w.finish(report, start), err
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)

	for _, account := range accounts {
		account := account
		g.Go(func() error {
			result, err := w.ingestAccount(ctx, account)

			mu.Lock()
			defer mu.Unlock()
			report.Tenants++
			switch {
			case errors.Is(err, lock.ErrNotAcquired):
				report.Busy++
				w.log.Debug("Mailbox busy, skipping", zap.String("account_id", account.ID))
			case err != nil:
				report.Failed++
				w.log.Error("Mailbox ingestion failed", zap.String("account_id", account.ID), zap.Error(err))
			case !result.OK:
				report.Failed++
			}
			report.Created += result.Created
			report.Skipped += result.Skipped
			return nil
		})
	}
	_ = g.Wait()

	return w.finish(report, start), nil
}

func (w *Watcher) ingestionAccounts(ctx context.Context, scope string) ([]models.Account, error) {
	if scope == "" {
		return w.accounts.ListWithMailbox(ctx)
	}

	client, err := w.clients.GetBySlug(ctx, scope)
	if err != nil {
		return nil, err
	}
	account, err := w.accounts.GetByClientID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if !account.HasMailbox() {
		return nil, nil
	}
	return []models.Account{*account}, nil
}

func (w *Watcher) ingestAccount(ctx context.Context, account models.Account) (service.IngestResult, error) {
	release, err := w.locker.TryLock(ctx, "ingest:"+account.ID, ingestionLockTTL)
	if err != nil {
		return service.IngestResult{}, err
	}
	defer release()

	return w.ingester.IngestMailbox(ctx, account, w.opts.IngestLimit), nil
}

// CheckMailboxNow runs an interactive check of one tenant's mailbox. The tenant lock is held
// until the pass finishes, even when the caller already got service.ErrIngestionTimeout.
func (w *Watcher) CheckMailboxNow(ctx context.Context, slug string) (service.IngestResult, error) {
	client, err := w.clients.GetBySlug(ctx, slug)
	if err != nil {
		return service.IngestResult{}, err
	}
	account, err := w.accounts.GetByClientID(ctx, client.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return service.IngestResult{}, service.ErrMailboxNotSet
		}
		return service.IngestResult{}, err
	}
	if !account.HasMailbox() {
		return service.IngestResult{}, service.ErrMailboxNotSet
	}

	release, err := w.locker.TryLock(ctx, "ingest:"+account.ID, ingestionLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return service.IngestResult{}, ErrBusy
		}
		return service.IngestResult{}, fmt.Errorf("failed to lock mailbox: %w", err)
	}

	return w.ingester.CheckMailboxNow(ctx, *account, service.CheckOptions{
		Timeout:     w.opts.CheckNowTimeout,
		MaxMessages: w.opts.CheckNowMaxMessages,
		OnDone:      func(service.IngestResult) { release() },
	})
}

func (w *Watcher) finish(report SweepReport, start time.Time) SweepReport {
	report.Duration = time.Since(start)
	metrics.SweepDuration.WithLabelValues(report.Sweep).Observe(report.Duration.Seconds())

	w.log.Info("Sweep finished",
		zap.String("sweep", report.Sweep),
		zap.Int("tenants", report.Tenants),
		zap.Int("busy", report.Busy),
		zap.Int("failed", report.Failed),
		zap.Int("created", report.Created),
		zap.Int("first_sent", report.Followups.FirstSent),
		zap.Int("weekly_sent", report.Followups.WeeklySent),
		zap.Duration("duration", report.Duration))
	return report
}
