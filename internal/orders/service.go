package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bookvault/internal/catalog"
	"bookvault/internal/gateway"
	"bookvault/internal/idgen"
	"bookvault/internal/logging"
	"bookvault/internal/mailer"
	"bookvault/internal/metrics"
	"bookvault/internal/netrisk"
	"bookvault/internal/retry"
	"bookvault/internal/syncutil"
	"bookvault/internal/traces"
	"bookvault/internal/users"
)

// PurchaseLibrary is the slice of the purchases service the pipeline
// needs: the duplicate gate and the post-payment record.
type PurchaseLibrary interface {
	HasPurchased(ctx context.Context, userID, bookID string) (bool, error)
	Record(ctx context.Context, userID, bookID, orderID string) error
}

// AuthorLedger credits authors after completed sales.
type AuthorLedger interface {
	AddAuthorSales(ctx context.Context, authorID string, qty int, revenue float64) error
}

// RecipientDirectory resolves a buyer's identity for notifications.
type RecipientDirectory interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	BookID   string `json:"bookId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// CheckoutRequest contains everything needed to open an order.
// Identity fields come from the auth middleware, client fields from
// the request transport.
type CheckoutRequest struct {
	UserID          string
	UserEmail       string
	UserName        string
	Items           []CheckoutItem
	PaymentMethod   string
	ShippingAddress *ShippingAddress
	ClientIP        string
	UserAgent       string
}

// CheckoutResult is returned to the client so it can start payment.
type CheckoutResult struct {
	Order          *Order                  `json:"order"`
	PaymentOptions *gateway.PaymentOptions `json:"paymentOptions"`
	ProcessingFee  float64                 `json:"processingFee"`
	RiskLevel      netrisk.RiskLevel       `json:"riskLevel"`
}

// CompletionRequest is the payment provider callback payload.
type CompletionRequest struct {
	OrderID         string // internal order id
	ProviderOrderID string
	PaymentID       string
	Signature       string
}

// CompletionResult reports the settlement outcome.
type CompletionResult struct {
	OrderID          string `json:"orderId"`
	PaymentID        string `json:"paymentId"`
	Verified         bool   `json:"verified"`
	AlreadyCompleted bool   `json:"alreadyCompleted,omitempty"`
}

// Service implements the checkout pipeline and reconciler.
type Service struct {
	store      Store
	books      catalog.Store
	library    PurchaseLibrary
	authors    AuthorLedger
	recipients RecipientDirectory
	detector   *netrisk.Detector
	provider   gateway.Provider
	signer     *gateway.Signer
	mail       mailer.Mailer
	keyID      string
	currency   string
	locks      syncutil.ShardedMutex // per-order locks serializing completion
}

// NewService creates the orders service.
func NewService(
	store Store,
	books catalog.Store,
	library PurchaseLibrary,
	authors AuthorLedger,
	detector *netrisk.Detector,
	provider gateway.Provider,
	signer *gateway.Signer,
	mail mailer.Mailer,
	keyID, currency string,
) *Service {
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		store:    store,
		books:    books,
		library:  library,
		authors:  authors,
		detector: detector,
		provider: provider,
		signer:   signer,
		mail:     mail,
		keyID:    keyID,
		currency: currency,
	}
}

// WithRecipients adds a user directory for confirmation email identity.
func (s *Service) WithRecipients(r RecipientDirectory) *Service {
	s.recipients = r
	return s
}

// Checkout validates the cart, gates on network risk, creates a
// pending order, and registers it with the payment provider.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := traces.StartSpan(ctx, "orders.Checkout", traces.UserID(req.UserID))
	defer span.End()

	if len(req.Items) == 0 {
		metrics.CheckoutsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrEmptyOrder
	}
	if !ValidPaymentMethod(req.PaymentMethod) {
		metrics.CheckoutsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidPaymentMethod
	}

	// Duplicate purchases are rejected before anything is priced.
	for _, item := range req.Items {
		owned, err := s.library.HasPurchased(ctx, req.UserID, item.BookID)
		if err != nil {
			return nil, fmt.Errorf("failed to check purchase history: %w", err)
		}
		if owned {
			metrics.CheckoutsTotal.WithLabelValues("duplicate").Inc()
			title := item.BookID
			if book, err := s.books.Get(ctx, item.BookID); err == nil {
				title = book.Title
			}
			return nil, fmt.Errorf("%w: you have already purchased %q", ErrDuplicatePurchase, title)
		}
	}

	// Price the cart against the catalog and check availability.
	var total float64
	items := make([]OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			metrics.CheckoutsTotal.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: quantity must be positive", ErrEmptyOrder)
		}
		book, err := s.books.Get(ctx, item.BookID)
		if err != nil {
			if errors.Is(err, catalog.ErrBookNotFound) {
				metrics.CheckoutsTotal.WithLabelValues("not_found").Inc()
				return nil, fmt.Errorf("%w: %s", catalog.ErrBookNotFound, item.BookID)
			}
			return nil, fmt.Errorf("failed to load book: %w", err)
		}
		if book.Stock < item.Quantity {
			metrics.CheckoutsTotal.WithLabelValues("out_of_stock").Inc()
			return nil, fmt.Errorf("%w for %q: available %d", ErrInsufficientStock, book.Title, book.Stock)
		}

		total += book.Price * float64(item.Quantity)
		items = append(items, OrderItem{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  item.Quantity,
			UnitPrice: book.Price,
		})
	}

	if !gateway.ValidatePaymentAmount(total) {
		metrics.CheckoutsTotal.WithLabelValues("invalid_amount").Inc()
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidAmount, total)
	}

	// Network risk gate.
	assessment := s.detector.Detect(ctx, req.ClientIP)
	span.SetAttributes(traces.RiskLevel(string(assessment.RiskLevel)))
	if netrisk.ShouldBlockPayment(assessment) {
		metrics.CheckoutsTotal.WithLabelValues("security_block").Inc()
		logging.L(ctx).Warn("checkout blocked by network risk",
			"userId", req.UserID, "ip", req.ClientIP, "risk", assessment.RiskLevel)
		return nil, fmt.Errorf("%w: please disable VPN and try again", ErrSecurityBlock)
	}
	if checks := netrisk.CheckRequest(req.UserAgent); checks.SuspiciousUserAgent {
		metrics.CheckoutsTotal.WithLabelValues("security_block").Inc()
		logging.L(ctx).Warn("checkout blocked by suspicious client",
			"userId", req.UserID, "userAgent", req.UserAgent)
		return nil, fmt.Errorf("%w: automated clients are not allowed", ErrSecurityBlock)
	}

	now := time.Now()
	order := &Order{
		ID:              idgen.WithPrefix("ord_"),
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentGateway:  gateway.Name,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Register with the provider. Transient failures are retried; the
	// pending order survives a final failure so the client can retry
	// payment setup without re-validating the cart.
	amountMinor := int64(math.Round(total * 100))
	var providerOrder *gateway.ProviderOrder
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		var err error
		providerOrder, err = s.provider.CreateOrder(ctx, amountMinor, s.currency,
			"order_"+order.ID, map[string]string{
				"orderId":       order.ID,
				"userId":        req.UserID,
				"paymentMethod": req.PaymentMethod,
			})
		return err
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("%w (order %s kept pending)", gateway.ErrProviderUnavailable, order.ID)
	}

	if err := s.store.SetProviderOrder(ctx, order.ID, providerOrder.ID); err != nil {
		return nil, fmt.Errorf("failed to bind provider order: %w", err)
	}
	order.ProviderOrderID = providerOrder.ID

	metrics.CheckoutsTotal.WithLabelValues("created").Inc()
	metrics.OrderAmount.Observe(total)
	logging.L(ctx).Info("order created",
		"orderId", order.ID, "providerOrderId", providerOrder.ID,
		"amount", total, "items", len(items), "risk", assessment.RiskLevel)

	return &CheckoutResult{
		Order:          order,
		PaymentOptions: gateway.BuildPaymentOptions(s.keyID, providerOrder, req.UserName, req.UserEmail, ""),
		ProcessingFee:  gateway.CalculateProcessingFees(total, feeMethod(req.PaymentMethod)),
		RiskLevel:      assessment.RiskLevel,
	}, nil
}

// feeMethod maps checkout payment methods onto fee schedule rows.
func feeMethod(method string) string {
	switch method {
	case MethodUPI:
		return "upi"
	default:
		return "card"
	}
}

// CompletePayment settles a provider callback: verify the signature,
// transition the order, and apply downstream effects exactly once.
func (s *Service) CompletePayment(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	ctx, span := traces.StartSpan(ctx, "orders.CompletePayment",
		traces.OrderID(req.OrderID), traces.PaymentID(req.PaymentID))
	defer span.End()

	if req.OrderID == "" || req.ProviderOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		metrics.PaymentVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: missing required verification data", ErrVerificationFailed)
	}

	// Serialize settlement per order so the store-level conditional
	// update's downstream effects cannot race a retried callback.
	unlock := s.locks.Lock(req.OrderID)
	defer unlock()

	order, err := s.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// The callback must settle the order its provider order was created
	// for. Orders with no bound provider order never reached the gateway,
	// so no legitimate callback exists for them; resolving through the
	// binding also stops a used callback pair from settling a second
	// internal order.
	bound, err := s.store.FindByProviderOrder(ctx, req.ProviderOrderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			metrics.PaymentVerificationsTotal.WithLabelValues("mismatch").Inc()
			return nil, fmt.Errorf("%w: unknown provider order", ErrVerificationFailed)
		}
		return nil, err
	}
	if bound.ID != order.ID {
		metrics.PaymentVerificationsTotal.WithLabelValues("mismatch").Inc()
		return nil, fmt.Errorf("%w: callback does not match order", ErrVerificationFailed)
	}

	if !s.signer.Verify(req.ProviderOrderID, req.PaymentID, req.Signature) {
		metrics.PaymentVerificationsTotal.WithLabelValues("bad_signature").Inc()
		// Best effort: a failed verification parks the order as failed,
		// but the verification error is returned regardless.
		if err := s.store.MarkFailed(ctx, order.ID); err == nil {
			metrics.OrdersFailedTotal.Inc()
		} else if !errors.Is(err, ErrInvalidStatus) {
			logging.L(ctx).Error("failed to mark order failed",
				"orderId", order.ID, "error", err)
		}
		return nil, ErrVerificationFailed
	}

	alreadyCompleted, err := s.store.CompleteOrder(ctx, order.ID, req.PaymentID)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			metrics.PaymentVerificationsTotal.WithLabelValues("invalid_state").Inc()
			return nil, err
		}
		metrics.PaymentVerificationsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	if alreadyCompleted {
		// Retried callback: settled before, effects already applied.
		metrics.PaymentVerificationsTotal.WithLabelValues("duplicate").Inc()
		return &CompletionResult{
			OrderID:          order.ID,
			PaymentID:        order.PaymentID,
			Verified:         true,
			AlreadyCompleted: true,
		}, nil
	}

	s.applyCompletionEffects(ctx, order, req.PaymentID)

	metrics.PaymentVerificationsTotal.WithLabelValues("verified").Inc()
	metrics.OrdersCompletedTotal.Inc()
	logging.L(ctx).Info("payment completed",
		"orderId", order.ID, "paymentId", req.PaymentID, "amount", order.TotalAmount)

	return &CompletionResult{
		OrderID:   order.ID,
		PaymentID: req.PaymentID,
		Verified:  true,
	}, nil
}

// applyCompletionEffects runs the downstream side effects of a first
// completion. Effects are best-effort per item: the payment is already
// captured, so a failing aggregate is logged rather than rolled back.
func (s *Service) applyCompletionEffects(ctx context.Context, order *Order, paymentID string) {
	mailItems := make([]mailer.LineItem, 0, len(order.Items))

	for _, item := range order.Items {
		revenue := item.UnitPrice * float64(item.Quantity)

		ok, err := s.books.DecrementStock(ctx, item.BookID, item.Quantity)
		if err != nil {
			logging.L(ctx).Error("stock decrement failed",
				"orderId", order.ID, "bookId", item.BookID, "error", err)
		} else if !ok {
			// Oversold between checkout and settlement. The payment is
			// captured; surface for restock instead of failing the order.
			logging.L(ctx).Warn("stock exhausted at completion",
				"orderId", order.ID, "bookId", item.BookID, "quantity", item.Quantity)
		}

		if err := s.books.AddSales(ctx, item.BookID, item.Quantity, revenue); err != nil {
			logging.L(ctx).Error("sales aggregate update failed",
				"orderId", order.ID, "bookId", item.BookID, "error", err)
		}

		if book, err := s.books.Get(ctx, item.BookID); err == nil && book.AuthorID != "" {
			if err := s.authors.AddAuthorSales(ctx, book.AuthorID, item.Quantity, revenue); err != nil {
				logging.L(ctx).Error("author aggregate update failed",
					"orderId", order.ID, "authorId", book.AuthorID, "error", err)
			}
		}

		if err := s.library.Record(ctx, order.UserID, item.BookID, order.ID); err != nil {
			logging.L(ctx).Error("purchase record failed",
				"orderId", order.ID, "bookId", item.BookID, "error", err)
		}

		mailItems = append(mailItems, mailer.LineItem{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	if s.mail != nil {
		msg := mailer.OrderConfirmation{
			OrderID:   order.ID,
			PaymentID: paymentID,
			Amount:    order.TotalAmount,
			Items:     mailItems,
		}
		if s.recipients != nil {
			if buyer, err := s.recipients.Get(ctx, order.UserID); err == nil {
				msg.To = buyer.Email
				msg.Name = buyer.Name()
			}
		}
		_ = s.mail.SendOrderConfirmation(ctx, msg)
	}
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}

// ListByUser returns a user's orders.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByUser(ctx, userID, limit)
}
