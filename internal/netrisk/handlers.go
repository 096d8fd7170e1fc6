package netrisk

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for network risk checks.
type Handler struct {
	detector *Detector
}

// NewHandler creates a new netrisk handler.
func NewHandler(detector *Detector) *Handler {
	return &Handler{detector: detector}
}

// RegisterRoutes sets up risk-check routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/security/vpn-check", h.VPNCheck)
}

// VPNCheckRequest optionally carries the user agent to inspect. When
// empty, the User-Agent header is used.
type VPNCheckRequest struct {
	UserAgent string `json:"userAgent"`
}

// VPNCheck handles POST /v1/security/vpn-check. It assesses the
// caller's IP and user agent ahead of checkout so clients can surface
// a warning before collecting payment details.
func (h *Handler) VPNCheck(c *gin.Context) {
	var req VPNCheckRequest
	// Body is optional; a bare POST checks the request's own headers.
	_ = c.ShouldBindJSON(&req)

	ua := req.UserAgent
	if ua == "" {
		ua = c.GetHeader("User-Agent")
	}

	assessment := h.detector.Detect(c.Request.Context(), c.ClientIP())
	checks := CheckRequest(ua)
	shouldBlock := ShouldBlockPayment(assessment) || checks.SuspiciousUserAgent

	message := "Security check passed"
	if shouldBlock {
		message = "Security concerns detected. Please disable VPN and try again."
	}

	c.JSON(http.StatusOK, gin.H{
		"vpnDetected": assessment.IsVPN,
		"risk":        assessment.RiskLevel,
		"suspicious":  checks.SuspiciousUserAgent,
		"reasons":     checks.Reasons,
		"shouldBlock": shouldBlock,
		"message":     message,
	})
}
