package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vipul43/leadloop/internal/models"
	"github.com/vipul43/leadloop/internal/service"
)

// LeadRequest is the body of the lead webhook and the manual create endpoint
type LeadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Source  string `json:"source"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (r LeadRequest) toNewLead(defaultSource string) service.NewLead {
	source := r.Source
	if source == "" {
		source = defaultSource
	}
	return service.NewLead{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Source:         source,
		InquirySubject: r.Subject,
		InquiryBody:    r.Message,
	}
}

// LeadWebhook accepts form-builder submissions on the tenant's public URL
func (h *Handler) LeadWebhook(c *gin.Context) {
	h.createLead(c, models.LeadSourceUnknown)
}

func (h *Handler) CreateLead(c *gin.Context) {
	h.createLead(c, models.LeadSourceManual)
}

func (h *Handler) createLead(c *gin.Context, defaultSource string) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead, err := h.leads.Create(c.Request.Context(), client, req.toNewLead(defaultSource))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *Handler) ListLeads(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	leads, err := h.leads.List(c.Request.Context(), client.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	c.JSON(http.StatusOK, leads)
}

func (h *Handler) GetLead(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	lead, err := h.leads.Get(c.Request.Context(), client.ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *Handler) UpdateLead(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var update models.LeadUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead, err := h.leads.Update(c.Request.Context(), client.ID, c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *Handler) DeleteLead(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	if err := h.leads.Delete(c.Request.Context(), client.ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
