package service

import (
	"context"
	"strconv"

	"flow-platform/config"
	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/store"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

// PaymentService reacts to checkout-payment events: one immutable payment
// row per checkout attempt, PAID on success and FAILED when persistence
// breaks, always followed by a payment-result notification.
type PaymentService struct {
	store  *store.Store
	bus    Bus
	cfg    config.PaymentsConfig
	logger *zap.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(st *store.Store, bus Bus, cfg config.PaymentsConfig) *PaymentService {
	return &PaymentService{
		store:  st,
		bus:    bus,
		cfg:    cfg,
		logger: util.NamedLogger("payments"),
	}
}

// PaymentReply acknowledges a recorded payment. The reply is always the
// reactor's own confirmation; when invoice generation is enabled its result
// is logged, never substituted for the payment outcome.
type PaymentReply struct {
	Message string `json:"message"`
}

// DocumentReply is the checkout_pdf reply.
type DocumentReply struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
}

// HandleCheckoutPayment records the payment for a confirmed checkout.
func (s *PaymentService) HandleCheckoutPayment(ctx context.Context, ev *models.CheckoutPaymentEvent) (*PaymentReply, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleCheckoutPayment")
	defer span.End()

	amount, err := strconv.ParseFloat(ev.OrderItemPrice, 64)
	if err != nil {
		return nil, domain.Validation("invalid orderItemPrice: " + ev.OrderItemPrice)
	}

	payment := &models.Payment{
		OrderID:   ev.OrderID,
		CompanyID: ev.CompanyID,
		Amount:    amount,
		Currency:  s.cfg.Currency,
		Status:    models.PaymentStatusPaid,
		Provider:  s.cfg.Provider,
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, s.recordFailure(ctx, ev, amount, err)
	}

	util.PaymentsTotal.WithLabelValues(models.PaymentStatusPaid).Inc()
	s.logger.Info("Payment recorded",
		zap.Int64("order_id", ev.OrderID),
		zap.Float64("amount", amount))

	s.notify(ctx, models.PatternPaymentCreatedNotification, ev, models.PaymentStatusPaid)

	if s.cfg.GeneratePDF {
		var doc DocumentReply
		if err := s.bus.Request(ctx, models.PatternCheckoutPDF, ev, &doc); err != nil {
			s.logger.Warn("Invoice generation failed", zap.Error(err))
		} else {
			s.logger.Info("Invoice generated", zap.String("file", doc.FileName))
		}
	}

	return &PaymentReply{Message: "Payment created successfully"}, nil
}

// recordFailure writes the FAILED row for the attempt and reports the
// failure downstream.
func (s *PaymentService) recordFailure(ctx context.Context, ev *models.CheckoutPaymentEvent, amount float64, cause error) error {
	s.logger.Error("Payment persistence failed",
		zap.Int64("order_id", ev.OrderID),
		zap.Error(cause))

	failed := &models.Payment{
		OrderID:   ev.OrderID,
		CompanyID: ev.CompanyID,
		Amount:    amount,
		Currency:  s.cfg.Currency,
		Status:    models.PaymentStatusFailed,
		Provider:  s.cfg.Provider,
	}
	if err := s.store.CreatePayment(ctx, failed); err != nil {
		s.logger.Error("Failed to record FAILED payment row", zap.Error(err))
	}

	util.PaymentsTotal.WithLabelValues(models.PaymentStatusFailed).Inc()
	s.notify(ctx, models.PatternPaymentFailedNotification, ev, models.PaymentStatusFailed)

	return domain.Remote("Payment failed")
}

func (s *PaymentService) notify(ctx context.Context, pattern string, ev *models.CheckoutPaymentEvent, status string) {
	event := &models.PaymentNotificationEvent{
		OrderItemPrice: ev.OrderItemPrice,
		CompanyID:      ev.CompanyID,
		OrderID:        ev.OrderID,
		Currency:       s.cfg.Currency,
		Status:         status,
		Provider:       s.cfg.Provider,
	}
	if err := s.bus.Publish(ctx, pattern, event); err != nil {
		s.logger.Error("Failed to publish payment notification",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}

// Mount registers the payments patterns on a responder.
func (s *PaymentService) Mount(r *transport.Responder) {
	r.Handle(models.PatternCheckoutPaym, func(ctx context.Context, payload []byte) (interface{}, error) {
		var ev models.CheckoutPaymentEvent
		if err := transport.DecodeJSON(payload, &ev); err != nil {
			return nil, err
		}
		return s.HandleCheckoutPayment(ctx, &ev)
	})
}
