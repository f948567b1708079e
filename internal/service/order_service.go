package service

import (
	"context"
	"database/sql"
	"time"

	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/redisclient"
	"flow-platform/internal/store"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

const orderCacheTTL = 2 * time.Minute

// OrderService owns the order/order-item aggregate and its status state
// machine. CONFIRMED is reachable only through the checkout saga.
type OrderService struct {
	store  *store.Store
	cache  Cache
	saga   *CheckoutSaga
	logger *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(st *store.Store, cache Cache, saga *CheckoutSaga) *OrderService {
	return &OrderService{
		store:  st,
		cache:  cache,
		saga:   saga,
		logger: util.NamedLogger("orders"),
	}
}

// CreateOrderRequest carries a new order with its items. TotalAmount is
// supplied by the caller and is not recomputed from the items.
type CreateOrderRequest struct {
	CompanyID   int64              `json:"companyId"`
	CreatedBy   int64              `json:"createdBy"`
	AssignedTo  *int64             `json:"assignedTo,omitempty"`
	Type        string             `json:"type"`
	TotalAmount *float64           `json:"totalAmount"`
	Items       []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one line of a new order.
type OrderItemRequest struct {
	ReferenceName string  `json:"referenceName"`
	Description   string  `json:"description,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
}

// UpdateStatusRequest applies a generic status transition, tenant scoped.
type UpdateStatusRequest struct {
	OrderID   int64  `json:"orderId"`
	CompanyID int64  `json:"companyId"`
	Status    string `json:"status"`
}

// GetOrderRequest is a tenant-scoped order read.
type GetOrderRequest struct {
	OrderID   int64 `json:"orderId"`
	CompanyID int64 `json:"companyId"`
}

// ListOrdersRequest pages through a tenant's orders, newest first.
type ListOrdersRequest struct {
	CompanyID int64 `json:"companyId"`
	Limit     int   `json:"limit"`
	Page      int   `json:"page"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// OrderReply is an order with its items.
type OrderReply struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// Create persists a new order with status CREATED. Each item subtotal is
// quantity multiplied by unit price at creation time.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, domain.Validation("order needs at least one item")
	}
	if req.TotalAmount == nil {
		return nil, domain.Validation("totalAmount is required")
	}
	for _, item := range req.Items {
		if item.Quantity < 0 {
			return nil, domain.Validation("item quantity must not be negative")
		}
		if item.ReferenceName == "" {
			return nil, domain.Validation("item referenceName is required")
		}
	}

	order := &models.Order{
		CompanyID:   req.CompanyID,
		CreatedBy:   req.CreatedBy,
		Type:        req.Type,
		Status:      models.OrderStatusCreated,
		TotalAmount: *req.TotalAmount,
	}
	if req.AssignedTo != nil {
		order.AssignedTo = sql.NullInt64{Int64: *req.AssignedTo, Valid: true}
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			ReferenceName: item.ReferenceName,
			Description:   sql.NullString{String: item.Description, Valid: item.Description != ""},
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Subtotal:      float64(item.Quantity) * item.UnitPrice,
		})
	}

	created, err := s.store.CreateOrderWithItems(ctx, order, items)
	if err != nil {
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("company_id", order.CompanyID))

	return &OrderReply{Order: *order, Items: created}, nil
}

// UpdateStatus applies a transition through the generic update path, which
// refuses to enter CONFIRMED (saga-only) or COMPLETED (policy guard).
func (s *OrderService) UpdateStatus(ctx context.Context, req *UpdateStatusRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	switch req.Status {
	case models.OrderStatusCompleted:
		return nil, domain.New(domain.CodeInvalidTransition, "you cannot edit an order to complete it")
	case models.OrderStatusConfirmed:
		return nil, domain.New(domain.CodeInvalidTransition, "you cannot change the status of a confirmed order")
	case models.OrderStatusCreated, models.OrderStatusInProgress, models.OrderStatusCanceled:
	default:
		return nil, domain.Validation("unknown order status: " + req.Status)
	}

	rows, err := s.store.UpdateOrderStatus(ctx, req.OrderID, req.CompanyID, req.Status)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.New(domain.CodeNotFound, "order not found")
	}

	s.invalidateOrder(ctx, req.OrderID, req.CompanyID)

	order, err := s.store.GetOrder(ctx, req.OrderID, req.CompanyID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get reads an order with its items, tenant scoped, through the cache.
func (s *OrderService) Get(ctx context.Context, req *GetOrderRequest) (*OrderReply, error) {
	var cached OrderReply
	if hit, err := s.cache.GetJSON(ctx, redisclient.OrderKey(req.OrderID, req.CompanyID), &cached); err != nil {
		s.logger.Warn("Order cache read failed", zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	order, err := s.store.GetOrder(ctx, req.OrderID, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.New(domain.CodeNotFound, "order not found")
	}

	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	reply := &OrderReply{Order: *order, Items: items}
	if err := s.cache.SetJSON(ctx, redisclient.OrderKey(req.OrderID, req.CompanyID), reply, orderCacheTTL); err != nil {
		s.logger.Warn("Order cache write failed", zap.Error(err))
	}
	return reply, nil
}

// List pages through a tenant's orders newest first, optionally bounded by
// creation date. The end date is extended to the end of its day.
func (s *OrderService) List(ctx context.Context, req *ListOrdersRequest) ([]models.Order, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	var start, end *time.Time
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, domain.Validation("invalid startDate, expected YYYY-MM-DD")
		}
		start = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, domain.Validation("invalid endDate, expected YYYY-MM-DD")
		}
		eod := t.Add(24*time.Hour - time.Millisecond)
		end = &eod
	}

	return s.store.ListOrders(ctx, req.CompanyID, limit, (page-1)*limit, start, end)
}

// Mount registers the orders patterns on a responder.
func (s *OrderService) Mount(r *transport.Responder) {
	r.Handle(models.PatternCreateOrder, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req CreateOrderRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.Create(ctx, &req)
	})

	r.Handle(models.PatternUpdateOrder, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req UpdateStatusRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.UpdateStatus(ctx, &req)
	})

	r.Handle(models.PatternCheckoutOrder, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req CheckoutRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.saga.Checkout(ctx, &req)
	})

	r.Handle(models.PatternGetOrder, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetOrderRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.Get(ctx, &req)
	})

	r.Handle(models.PatternGetOrders, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req ListOrdersRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.List(ctx, &req)
	})
}

func (s *OrderService) invalidateOrder(ctx context.Context, orderID, companyID int64) {
	if err := s.cache.Invalidate(ctx, redisclient.OrderKey(orderID, companyID)); err != nil {
		s.logger.Warn("Order cache invalidation failed", zap.Error(err))
	}
}
