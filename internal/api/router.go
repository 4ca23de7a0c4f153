package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterOptions struct {
	AdminKey         string
	TwilioWebhookURL string
	TwilioAuthToken  string
	ReleaseMode      bool
}

// NewRouter wires every route onto a gin engine
func NewRouter(h *Handler, opts RouterOptions, log *zap.Logger) *gin.Engine {
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhooks := r.Group("/webhook")
	{
		webhooks.POST("/lead/:slug", h.LeadWebhook)
		webhooks.POST("/twilio/sms", TwilioSignature(opts.TwilioWebhookURL, opts.TwilioAuthToken, log), h.SMSWebhook)
	}

	admin := r.Group("/", AdminAuth(opts.AdminKey))
	{
		admin.GET("/clients", h.ListClients)
		admin.POST("/clients", h.CreateClient)
		admin.GET("/clients/:slug", h.GetClient)
		admin.PATCH("/clients/:slug", h.UpdateClient)
		admin.PUT("/clients/:slug/mailbox", h.ConfigureMailbox)
		admin.GET("/clients/:slug/ingestion-status", h.IngestionStatus)
		admin.POST("/clients/:slug/check-email", h.CheckEmail)

		admin.GET("/clients/:slug/leads", h.ListLeads)
		admin.POST("/clients/:slug/leads", h.CreateLead)
		admin.GET("/clients/:slug/leads/:id", h.GetLead)
		admin.PATCH("/clients/:slug/leads/:id", h.UpdateLead)
		admin.DELETE("/clients/:slug/leads/:id", h.DeleteLead)

		admin.POST("/admin/run-followups", h.RunFollowups)
		admin.POST("/admin/run-ingestion", h.RunIngestion)
	}

	return r
}
