package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	defaultCurrency   = "usd"
	defaultSessionTTL = 30 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// StripeSessions is the slice of the Stripe client used for hosted sessions.
type StripeSessions interface {
	CreateCheckoutSession(ctx context.Context, params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripego.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) (*stripego.CheckoutSession, error)
}

// Service opens hosted sessions and records their outcome.
type Service interface {
	CreateCheckoutSession(ctx context.Context, customerID uuid.UUID, input SessionInput) (SessionDTO, error)
	CreateSetupSession(ctx context.Context, customerID uuid.UUID, input SessionInput) (SetupSessionDTO, error)
	GetSession(ctx context.Context, customerID uuid.UUID, sessionID string) (SessionStatusDTO, error)
	GetSetupSession(ctx context.Context, customerID uuid.UUID, sessionID string) (SetupSessionStatusDTO, error)
	Fulfill(ctx context.Context, sessionID, source string) (*models.Order, bool, error)
	Expire(ctx context.Context, sessionID, source string) (bool, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Carts      *cart.Repository
	Orders     *orders.Repository
	Catalog    *catalog.Repository
	Customers  customerLoader
	Stripe     StripeSessions
	Tx         txRunner
	Outbox     outbox.Emitter
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
	TaxRate    decimal.Decimal
	Currency   string
	SuccessURL string
	CancelURL  string
	SessionTTL time.Duration
}

type service struct {
	carts      *cart.Repository
	orders     *orders.Repository
	catalog    *catalog.Repository
	customers  customerLoader
	stripe     StripeSessions
	tx         txRunner
	outbox     outbox.Emitter
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	taxRate    decimal.Decimal
	currency   string
	successURL string
	cancelURL  string
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer loader required")
	case params.Stripe == nil:
		return nil, fmt.Errorf("stripe client required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if params.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	ttl := params.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &service{
		carts:      params.Carts,
		orders:     params.Orders,
		catalog:    params.Catalog,
		customers:  params.Customers,
		stripe:     params.Stripe,
		tx:         params.Tx,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		taxRate:    params.TaxRate,
		currency:   currency,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
		sessionTTL: ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateCheckoutSession prices the active cart, opens a payment session and
// records the order in state open with a snapshot of the lines.
func (s *service) CreateCheckoutSession(ctx context.Context, customerID uuid.UUID, input SessionInput) (SessionDTO, error) {
	successURL, cancelURL, err := s.redirects(input)
	if err != nil {
		return SessionDTO{}, err
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return SessionDTO{}, err
	}

	activeCart, err := s.carts.FindActive(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := s.carts.ListItems(ctx, activeCart.ID)
	if err != nil {
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(items) == 0 {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	snapshot, stock := snapshotLines(items)
	if err := pkgcheckout.ValidateStock(stock); err != nil {
		return SessionDTO{}, err
	}
	priced := make([]pricing.Line, 0, len(snapshot))
	for _, line := range snapshot {
		priced = append(priced, pricing.Line{UnitPriceCents: int64(line.UnitPriceCents), Quantity: line.Quantity})
	}
	totals := pricing.Compute(priced, s.taxRate)

	expiresAt := s.now().Add(s.sessionTTL)
	sess, err := s.stripe.CreateCheckoutSession(ctx, paymentSessionParams(paymentSessionInput{
		customer:   customer,
		cartID:     activeCart.ID,
		lines:      snapshot,
		totals:     totals,
		currency:   s.currency,
		successURL: successURL,
		cancelURL:  cancelURL,
		expiresAt:  expiresAt,
	}))
	if err != nil {
		return SessionDTO{}, stripe.WrapError(err, "create checkout session")
	}
	if sess.ExpiresAt > 0 {
		expiresAt = time.Unix(sess.ExpiresAt, 0).UTC()
	}

	order := &models.Order{
		CustomerID:       customerID,
		CartID:           activeCart.ID,
		SessionID:        sess.ID,
		Status:           enums.CheckoutSessionOpen,
		Currency:         s.currency,
		SubtotalCents:    int(totals.SubtotalCents),
		TaxCents:         int(totals.TaxCents),
		TotalCents:       int(totals.TotalCents),
		SessionExpiresAt: &expiresAt,
		LineItems:        snapshot,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		s.abandonSession(ctx, sess.ID)
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order")
	}

	s.metrics.IncSessionCreated()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id":  sess.ID,
		"order_id":    order.ID.String(),
		"total_cents": totals.TotalCents,
	})
	s.logg.Info(logCtx, "checkout.session.created")

	return SessionDTO{SessionID: sess.ID, URL: sess.URL, ExpiresAt: &expiresAt}, nil
}

// CreateSetupSession opens a hosted session that saves a card for later use.
func (s *service) CreateSetupSession(ctx context.Context, customerID uuid.UUID, input SessionInput) (SetupSessionDTO, error) {
	successURL, cancelURL, err := s.redirects(input)
	if err != nil {
		return SetupSessionDTO{}, err
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return SetupSessionDTO{}, err
	}
	if customer.StripeCustomerID == nil || *customer.StripeCustomerID == "" {
		return SetupSessionDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "customer has no payment profile")
	}
	sess, err := s.stripe.CreateCheckoutSession(ctx, setupSessionParams(customer, successURL, cancelURL))
	if err != nil {
		return SetupSessionDTO{}, stripe.WrapError(err, "create setup session")
	}
	return SetupSessionDTO{SessionID: sess.ID, URL: sess.URL}, nil
}

// GetSession reconciles the order with the provider state and reports it.
func (s *service) GetSession(ctx context.Context, customerID uuid.UUID, sessionID string) (SessionStatusDTO, error) {
	order, err := s.ownedOrder(ctx, customerID, sessionID)
	if err != nil {
		return SessionStatusDTO{}, err
	}
	if order.Status.IsTerminal() {
		return statusFromOrder(order, ""), nil
	}

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return SessionStatusDTO{}, stripe.WrapError(err, "load checkout session")
	}
	paymentStatus := string(sess.PaymentStatus)

	switch {
	case paymentSettled(sess):
		if _, _, err := s.Fulfill(ctx, sessionID, metrics.SourcePoll); err != nil {
			return SessionStatusDTO{}, err
		}
	case sess.Status == stripego.CheckoutSessionStatusExpired:
		if _, err := s.Expire(ctx, sessionID, metrics.SourcePoll); err != nil {
			return SessionStatusDTO{}, err
		}
	case sess.Status == stripego.CheckoutSessionStatusComplete:
		if err := s.orders.MarkCompleted(ctx, sessionID, s.now()); err != nil {
			return SessionStatusDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark session completed")
		}
	default:
		return SessionStatusDTO{SessionID: sessionID, Status: enums.CheckoutSessionOpen, PaymentStatus: paymentStatus}, nil
	}

	order, err = s.ownedOrder(ctx, customerID, sessionID)
	if err != nil {
		return SessionStatusDTO{}, err
	}
	return statusFromOrder(order, paymentStatus), nil
}

// GetSetupSession reports a card-save session owned by the customer.
func (s *service) GetSetupSession(ctx context.Context, customerID uuid.UUID, sessionID string) (SetupSessionStatusDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SetupSessionStatusDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return SetupSessionStatusDTO{}, stripe.WrapError(err, "load setup session")
	}
	if sess.Mode != stripego.CheckoutSessionModeSetup || sess.Metadata[metadataCustomerID] != customerID.String() {
		return SetupSessionStatusDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return SetupSessionStatusDTO{SessionID: sess.ID, Status: string(sess.Status)}, nil
}

// Fulfill records a paid session exactly once. The boolean is false when the
// session was already fulfilled or is unknown, and nothing else changes then.
func (s *service) Fulfill(ctx context.Context, sessionID, source string) (*models.Order, bool, error) {
	var (
		fulfilled *models.Order
		changed   bool
		expired   bool
	)
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		if err := ordersRepo.MarkCompleted(ctx, sessionID, now); err != nil {
			return err
		}
		order, ok, err := ordersRepo.MarkFulfilled(ctx, sessionID, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := ordersRepo.FindBySessionID(ctx, sessionID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			expired = current != nil && current.Status == enums.CheckoutSessionExpired
			return nil
		}

		catalogRepo := s.catalog.WithTx(tx)
		lines := make([]payloads.OrderLine, 0, len(order.LineItems))
		for _, item := range order.LineItems {
			if err := catalogRepo.DecrementStock(ctx, item.VariantID, item.Quantity); err != nil {
				return err
			}
			lines = append(lines, payloads.OrderLine{
				VariantID:      item.VariantID,
				SKU:            item.SKU,
				Quantity:       item.Quantity,
				UnitPriceCents: int64(item.UnitPriceCents),
			})
		}
		if err := s.carts.WithTx(tx).ClearItems(ctx, order.CartID); err != nil {
			return err
		}

		customerID := order.CustomerID
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfilled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			CustomerID:    &customerID,
			Data: payloads.OrderFulfilledEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				SessionID:  order.SessionID,
				Currency:   order.Currency,
				TotalCents: int64(order.TotalCents),
				Lines:      lines,
				PaidAt:     now,
			},
			OccurredAt: now,
		}); err != nil {
			return err
		}
		fulfilled, changed = order, true
		return nil
	})
	if err != nil {
		return nil, false, translate(err, "fulfill order")
	}
	if expired {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"session_id": sessionID,
			"source":     source,
		}), "checkout.order.fulfill_after_expiry")
	}
	if !changed {
		return nil, false, nil
	}

	s.metrics.IncFulfilled(source)
	logCtx := s.logg.WithCustomerID(ctx, fulfilled.CustomerID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"session_id": sessionID,
		"order_id":   fulfilled.ID.String(),
		"source":     source,
	})
	s.logg.Info(logCtx, "checkout.order.fulfilled")
	return fulfilled, true, nil
}

// Expire closes an unpaid order. Fulfilled orders are never touched.
func (s *service) Expire(ctx context.Context, sessionID, source string) (bool, error) {
	var changed bool
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, ok, err := s.orders.WithTx(tx).MarkExpired(ctx, sessionID, now)
		if err != nil || !ok {
			return err
		}
		customerID := order.CustomerID
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			CustomerID:    &customerID,
			Data: payloads.OrderExpiredEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				SessionID:  order.SessionID,
				ExpiredAt:  now,
			},
			OccurredAt: now,
		}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, translate(err, "expire order")
	}
	if changed {
		s.metrics.IncExpired(source)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"session_id": sessionID, "source": source}), "checkout.order.expired")
	}
	return changed, nil
}

func (s *service) redirects(input SessionInput) (string, string, error) {
	successURL := strings.TrimSpace(input.SuccessURL)
	if successURL == "" {
		successURL = s.successURL
	}
	cancelURL := strings.TrimSpace(input.CancelURL)
	if cancelURL == "" {
		cancelURL = s.cancelURL
	}
	if successURL == "" || cancelURL == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "success_url and cancel_url are required")
	}
	return successURL, cancelURL, nil
}

func (s *service) ownedOrder(ctx context.Context, customerID uuid.UUID, sessionID string) (*models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return order, nil
}

// abandonSession expires a provider session whose order could not be stored.
func (s *service) abandonSession(ctx context.Context, sessionID string) {
	if _, err := s.stripe.ExpireCheckoutSession(ctx, sessionID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "session_id", sessionID), "checkout.session.abandon_failed", err)
	}
}

func snapshotLines(items []models.CartItem) ([]models.OrderLineItem, []pkgcheckout.StockValidationInput) {
	lines := make([]models.OrderLineItem, 0, len(items))
	stock := make([]pkgcheckout.StockValidationInput, 0, len(items))
	for _, item := range items {
		line := models.OrderLineItem{VariantID: item.VariantID, Quantity: item.Quantity}
		available := 0
		if v := item.Variant; v != nil {
			line.VariantTitle = v.Title
			line.SKU = v.SKU
			line.UnitPriceCents = v.PriceCents
			if v.Product != nil {
				line.ProductTitle = v.Product.Title
			}
			if v.IsActive && (v.Product == nil || v.Product.IsActive) {
				available = v.InventoryQuantity
			}
		}
		line.LineTotalCents = int(pricing.LineTotal(int64(line.UnitPriceCents), line.Quantity))
		lines = append(lines, line)
		stock = append(stock, pkgcheckout.StockValidationInput{
			VariantID:    item.VariantID,
			ProductTitle: line.ProductTitle,
			Available:    available,
			Quantity:     item.Quantity,
		})
	}
	return lines, stock
}

func statusFromOrder(order *models.Order, paymentStatus string) SessionStatusDTO {
	dto := SessionStatusDTO{SessionID: order.SessionID, Status: order.Status, PaymentStatus: paymentStatus}
	if order.Fulfilled {
		view := orders.FromModel(order)
		dto.Order = &view
		if dto.PaymentStatus == "" {
			dto.PaymentStatus = string(stripego.CheckoutSessionPaymentStatusPaid)
		}
	}
	if dto.PaymentStatus == "" {
		dto.PaymentStatus = string(stripego.CheckoutSessionPaymentStatusUnpaid)
	}
	return dto
}

func translate(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
