package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/service"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

type CreateClientRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	// Return empty array instead of null
	if clients == nil {
		clients = []models.Client{}
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug must be lowercase letters, digits and dashes"})
		return
	}

	client, err := h.clients.Create(c.Request.Context(), slug, strings.TrimSpace(req.Name))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *Handler) GetClient(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var settings models.ClientSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.clients.UpdateSettings(c.Request.Context(), client.ID, settings)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ConfigureMailbox(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req service.MailboxInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accounts.ConfigureMailbox(c.Request.Context(), client.ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":    account.Email,
		"provider": account.MailboxProvider,
		"host":     account.MailboxHost,
		"active":   account.HasMailbox(),
	})
}

func (h *Handler) IngestionStatus(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	status, err := h.accounts.IngestionStatus(c.Request.Context(), client.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CheckEmail runs an interactive mailbox check. A failed pass is a 502 carrying the reason.
func (h *Handler) CheckEmail(c *gin.Context) {
	result, err := h.sweeper.CheckMailboxNow(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !result.OK {
		c.JSON(http.StatusBadGateway, gin.H{"error": result.Error, "error_kind": result.ErrorKind})
		return
	}
	c.JSON(http.StatusOK, result)
}
