package store

import (
	"context"
	"database/sql"
	"fmt"

	"flow-platform/internal/models"
)

// CreatePayment records one payment row per checkout attempt; rows are
// immutable once written.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, company_id, amount, currency, status, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.CompanyID, payment.Amount,
		payment.Currency, payment.Status, payment.Provider)
}

// GetPaymentByOrderID retrieves the latest payment recorded for an order.
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment not found for order: %d", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
