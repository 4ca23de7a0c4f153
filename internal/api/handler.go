// Package api exposes the lead webhooks and the admin surface over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/repository"
	"github.com/vipul43/leadloop/internal/service"
	"github.com/vipul43/leadloop/internal/watcher"
)

// ClientStore interface for dependency injection
type ClientStore interface {
	List(ctx context.Context) ([]models.Client, error)
	GetBySlug(ctx context.Context, slug string) (*models.Client, error)
	Create(ctx context.Context, slug, name string) (*models.Client, error)
	UpdateSettings(ctx context.Context, clientID string, settings models.ClientSettings) (*models.Client, error)
}

// LeadManager interface for dependency injection
type LeadManager interface {
	Create(ctx context.Context, client *models.Client, in service.NewLead) (*models.Lead, error)
	List(ctx context.Context, clientID string) ([]models.Lead, error)
	Get(ctx context.Context, clientID, leadID string) (*models.Lead, error)
	Update(ctx context.Context, clientID, leadID string, update models.LeadUpdate) (*models.Lead, error)
	Delete(ctx context.Context, clientID, leadID string) error
}

// AccountManager interface for dependency injection
type AccountManager interface {
	ConfigureMailbox(ctx context.Context, clientID string, in service.MailboxInput) (*models.Account, error)
	IngestionStatus(ctx context.Context, clientID string) (service.IngestionStatus, error)
}

// SMSIngester interface for dependency injection
type SMSIngester interface {
	IngestSMS(ctx context.Context, slug string, sms service.InboundSMS) (service.SMSResult, error)
}

// Sweeper triggers sweeps and interactive checks on demand
type Sweeper interface {
	RunFollowupSweep(ctx context.Context) watcher.SweepReport
	RunIngestionSweep(ctx context.Context, scope string) (watcher.SweepReport, error)
	CheckMailboxNow(ctx context.Context, slug string) (service.IngestResult, error)
}

type Handler struct {
	clients  ClientStore
	leads    LeadManager
	accounts AccountManager
	sms      SMSIngester
	sweeper  Sweeper
	smsSlug  string
	log      *zap.Logger
}

func NewHandler(
	clients ClientStore,
	leads LeadManager,
	accounts AccountManager,
	sms SMSIngester,
	sweeper Sweeper,
	smsSlug string,
	log *zap.Logger,
) *Handler {
	return &Handler{
		clients:  clients,
		leads:    leads,
		accounts: accounts,
		sms:      sms,
		sweeper:  sweeper,
		smsSlug:  smsSlug,
		log:      log,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// client resolves the :slug parameter, writing a 404 when it is unknown
func (h *Handler) client(c *gin.Context) (*models.Client, bool) {
	client, err := h.clients.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return client, true
}

// respondError maps domain errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	switch {
	case errors.Is(err, repository.ErrClientNotFound):
		status, msg = http.StatusNotFound, "Client not found"
	case errors.Is(err, repository.ErrLeadNotFound):
		status, msg = http.StatusNotFound, "Lead not found"
	case errors.Is(err, repository.ErrSlugTaken):
		status, msg = http.StatusConflict, "Client slug already exists"
	case errors.Is(err, watcher.ErrBusy):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidMailbox),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidSMS),
		errors.Is(err, service.ErrMailboxNotSet):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrIngestionTimeout):
		status, msg = http.StatusGatewayTimeout, "Mailbox check is taking longer than expected. It will finish in the background."
	default:
		h.log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{"error": msg})
}
