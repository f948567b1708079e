package service

import (
	"context"
	"fmt"
	"time"

	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/redisclient"
	"flow-platform/internal/store"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

// CheckoutSaga converts an order into a confirmed, paid order and fans out
// to payments and notifications with no distributed transaction and no
// compensation. The status flip happens before the inventory math: a failure
// after step 2 leaves the order CONFIRMED. That window is deliberate; it is
// surfaced through checkouts_failed_after_confirm_total and WARN logs rather
// than rolled back.
type CheckoutSaga struct {
	store  *store.Store
	cache  Cache
	bus    Publisher
	logger *zap.Logger
}

// NewCheckoutSaga creates a new saga coordinator.
func NewCheckoutSaga(st *store.Store, cache Cache, bus Publisher) *CheckoutSaga {
	return &CheckoutSaga{
		store:  st,
		cache:  cache,
		bus:    bus,
		logger: util.NamedLogger("checkout"),
	}
}

// CheckoutRequest asks to confirm and pay for quantity units of an order.
type CheckoutRequest struct {
	OrderID   int64 `json:"orderId"`
	CompanyID int64 `json:"companyId"`
	Quantity  int   `json:"quantity"`
}

// CheckoutReply is the saga's own result, returned to the caller regardless
// of the downstream payment and notification outcomes.
type CheckoutReply struct {
	OrderID   int64  `json:"orderId"`
	Quantity  int    `json:"quantity"`
	TotalPaid string `json:"totalPaid"`
	Status    string `json:"status"`
}

// Checkout runs the saga steps strictly in order: validate quantity, flip
// status to CONFIRMED (tenant-scoped compare-and-update), sum item
// availability and price, decrement every item by the full requested
// quantity, then publish the notification and payment events unawaited.
func (s *CheckoutSaga) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutReply, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutSaga.Checkout")
	defer span.End()

	if req.Quantity <= 0 {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, domain.ErrInvalidQuantity
	}

	rows, err := s.store.UpdateOrderStatus(ctx, req.OrderID, req.CompanyID, models.OrderStatusConfirmed)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}
	if rows == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, domain.New(domain.CodeNotFound, "order not found")
	}

	// From here on the order is already CONFIRMED and failures are not
	// compensated.
	items, err := s.store.GetOrderItems(ctx, req.OrderID)
	if err != nil {
		return nil, s.failAfterConfirm(ctx, req, "db_error", err)
	}

	totalAvailable := 0
	totalPrice := 0.0
	for _, item := range items {
		totalAvailable += item.Quantity
		totalPrice += item.Subtotal
	}

	if totalAvailable < req.Quantity {
		return nil, s.failAfterConfirm(ctx, req, "insufficient_quantity", domain.ErrInsufficientQuantity)
	}

	// Every item is decremented by the full requested quantity.
	decremented, err := s.store.DecrementItemQuantities(ctx, req.OrderID, req.Quantity)
	if err != nil {
		return nil, s.failAfterConfirm(ctx, req, "db_error", err)
	}
	if decremented == 0 {
		return nil, s.failAfterConfirm(ctx, req, "not_found", domain.New(domain.CodeNotFound, "order not found"))
	}

	s.invalidate(ctx, req.OrderID, req.CompanyID)

	event := &models.CheckoutPaymentEvent{
		OrderItemPrice: fmt.Sprintf("%.2f", totalPrice),
		CompanyID:      req.CompanyID,
		OrderID:        req.OrderID,
		Quantity:       req.Quantity,
		Status:         models.OrderStatusConfirmed,
		Date:           time.Now().UTC(),
	}
	s.publish(ctx, models.PatternOrderConfirmedNotification, event)
	s.publish(ctx, models.PatternCheckoutPaym, event)

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order checked out",
		zap.Int64("order_id", req.OrderID),
		zap.Int("quantity", req.Quantity),
		zap.String("total_paid", event.OrderItemPrice))

	return &CheckoutReply{
		OrderID:   req.OrderID,
		Quantity:  req.Quantity,
		TotalPaid: event.OrderItemPrice,
		Status:    models.OrderStatusConfirmed,
	}, nil
}

// failAfterConfirm reports a saga failure past the CONFIRMED flip. The flip
// is never compensated, so the cached order must be dropped here too or
// readers keep seeing the pre-CONFIRMED state until the entry expires.
func (s *CheckoutSaga) failAfterConfirm(ctx context.Context, req *CheckoutRequest, reason string, err error) error {
	util.CheckoutsFailedTotal.WithLabelValues(reason).Inc()
	util.CheckoutsFailedAfterConfirm.Inc()
	s.invalidate(ctx, req.OrderID, req.CompanyID)
	s.logger.Warn("Checkout failed after order already confirmed",
		zap.Int64("order_id", req.OrderID),
		zap.Int64("company_id", req.CompanyID),
		zap.String("reason", reason),
		zap.Error(err))
	return err
}

// publish is fire-and-forget: the saga returns success to its caller even
// when a downstream publish fails.
func (s *CheckoutSaga) publish(ctx context.Context, pattern string, payload interface{}) {
	if err := s.bus.Publish(ctx, pattern, payload); err != nil {
		s.logger.Error("Failed to publish checkout event",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}

func (s *CheckoutSaga) invalidate(ctx context.Context, orderID, companyID int64) {
	if err := s.cache.Invalidate(ctx, redisclient.OrderKey(orderID, companyID)); err != nil {
		s.logger.Warn("Order cache invalidation failed", zap.Error(err))
	}
}
