package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	twilioclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/metrics"
)

const (
	requestIDHeader       = "X-Request-ID"
	adminKeyHeader        = "X-Admin-Key"
	twilioSignatureHeader = "X-Twilio-Signature"
)

// RequestID tags each request and its response with an id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger logs every request and records the HTTP metrics under the route template
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", c.GetString("request_id")),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request", fields...)
		case path == "/health" || path == "/metrics":
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// AdminAuth requires the X-Admin-Key header. With no key configured the admin API is closed.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API disabled: set ADMIN_API_KEY"})
			return
		}
		provided := c.GetHeader(adminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing admin key"})
			return
		}
		c.Next()
	}
}

// TwilioSignature verifies X-Twilio-Signature against the public webhook URL.
// Verification is skipped when either the URL or the auth token is not configured.
func TwilioSignature(webhookURL, authToken string, log *zap.Logger) gin.HandlerFunc {
	validator := twilioclient.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if webhookURL == "" || authToken == "" {
			c.Next()
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid form body"})
			return
		}

		if !validator.Validate(webhookURL, formParams(c.Request.PostForm), c.GetHeader(twilioSignatureHeader)) {
			log.Warn("Rejected SMS webhook with bad signature")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
		c.Next()
	}
}

// formParams flattens a form to the first value per key, which is what Twilio signs
func formParams(form url.Values) map[string]string {
	params := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
