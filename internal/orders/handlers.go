package orders

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookvault/internal/catalog"
	"bookvault/internal/gateway"
)

// Handler provides HTTP endpoints for checkout and settlement.
type Handler struct {
	service *Service
}

// NewHandler creates a new orders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up auth-required payment routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/payment/create-order", h.CreateOrder)
	r.POST("/payment/verify", h.VerifyPayment)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
}

// CreateOrderRequest is the checkout request body.
type CreateOrderRequest struct {
	Books           []CheckoutItem   `json:"books" binding:"required"`
	PaymentMethod   string           `json:"paymentMethod" binding:"required"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
}

// CreateOrder handles POST /v1/payment/create-order
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "books and paymentMethod are required",
		})
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), CheckoutRequest{
		UserID:          c.GetString("authUserID"),
		UserEmail:       c.GetString("authEmail"),
		UserName:        c.GetString("authName"),
		Items:           req.Books,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		ClientIP:        c.ClientIP(),
		UserAgent:       c.GetHeader("User-Agent"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		securityBlock := false
		switch {
		case errors.Is(err, ErrEmptyOrder), errors.Is(err, ErrInvalidPaymentMethod),
			errors.Is(err, ErrDuplicatePurchase), errors.Is(err, ErrInsufficientStock),
			errors.Is(err, ErrInvalidAmount):
			status = http.StatusBadRequest
			code = "invalid_order"
		case errors.Is(err, catalog.ErrBookNotFound):
			status = http.StatusNotFound
			code = "book_not_found"
		case errors.Is(err, ErrSecurityBlock):
			status = http.StatusForbidden
			code = "security_block"
			securityBlock = true
		case errors.Is(err, gateway.ErrProviderUnavailable):
			status = http.StatusBadGateway
			code = "gateway_unavailable"
		}
		c.JSON(status, gin.H{
			"error":         code,
			"message":       err.Error(),
			"securityBlock": securityBlock,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId":         result.Order.ID,
		"providerOrderId": result.Order.ProviderOrderID,
		"paymentOptions":  result.PaymentOptions,
		"totalAmount":     result.Order.TotalAmount,
		"processingFee":   result.ProcessingFee,
		"message":         "Order created successfully",
	})
}

// VerifyPaymentRequest is the provider callback body relayed by the
// client after payment.
type VerifyPaymentRequest struct {
	ProviderOrderID string `json:"razorpay_order_id"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
	OrderID         string `json:"order_id"`
}

// VerifyPayment handles POST /v1/payment/verify
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Missing required payment verification data",
		})
		return
	}

	if req.ProviderOrderID == "" || req.PaymentID == "" || req.Signature == "" || req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Missing required payment verification data",
		})
		return
	}

	result, err := h.service.CompletePayment(c.Request.Context(), CompletionRequest{
		OrderID:         req.OrderID,
		ProviderOrderID: req.ProviderOrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Order not found",
			})
		case errors.Is(err, ErrVerificationFailed):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "verification_failed",
				"message": "Payment verification failed",
			})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "invalid_state",
				"message": "Order cannot be completed from its current status",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "completion_failed",
				"message": "Payment verified but order update failed. Please contact support.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Payment verified successfully",
		"orderId":   result.OrderID,
		"paymentId": result.PaymentID,
		"verified":  result.Verified,
	})
}

// ListOrders handles GET /v1/orders
func (h *Handler) ListOrders(c *gin.Context) {
	userID := c.GetString("authUserID")

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}

	result, err := h.service.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": result,
		"count":  len(result),
	})
}

// GetOrder handles GET /v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id := c.Param("id")

	order, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	// Orders are private to their owner; admins can inspect any.
	if order.UserID != c.GetString("authUserID") && !strings.EqualFold(c.GetString("authRole"), "admin") {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Not your order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
