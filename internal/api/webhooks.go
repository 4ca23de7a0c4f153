package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/repository"
	"github.com/vipul43/leadloop/internal/service"
)

// SMSWebhook receives inbound texts from Twilio. Twilio retries on non-2xx, so a missing
// tenant is acknowledged with ok=false instead of an error status.
func (h *Handler) SMSWebhook(c *gin.Context) {
	sms := service.InboundSMS{
		MessageSID: c.PostForm("MessageSid"),
		From:       c.PostForm("From"),
		Body:       c.PostForm("Body"),
	}

	result, err := h.sms.IngestSMS(c.Request.Context(), h.smsSlug, sms)
	switch {
	case errors.Is(err, repository.ErrClientNotFound):
		h.log.Warn("SMS webhook client not found, skipping", zap.String("client", h.smsSlug))
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "Client not found"})
		return
	case err != nil:
		h.respondError(c, err)
		return
	}

	if !result.Created {
		c.JSON(http.StatusOK, gin.H{"ok": true, "created": false, "message": "Already processed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "created": true, "lead_id": result.LeadID})
}

func (h *Handler) RunFollowups(c *gin.Context) {
	report := h.sweeper.RunFollowupSweep(c.Request.Context())
	c.JSON(http.StatusOK, report)
}

// RunIngestion sweeps every mailbox, or one tenant's with ?client=<slug>
func (h *Handler) RunIngestion(c *gin.Context) {
	report, err := h.sweeper.RunIngestionSweep(c.Request.Context(), c.Query("client"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
