package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flow-platform/internal/models"
)

// CreateOrderWithItems persists an order and its items in one transaction.
// Item subtotals must already be computed by the caller.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) ([]models.OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (company_id, created_by, assigned_to, type, status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, orderQuery,
		order.CompanyID, order.CreatedBy, order.AssignedTo,
		order.Type, order.Status, order.TotalAmount); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, reference_name, description, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	created := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, itemQuery,
			item.OrderID, item.ReferenceName, item.Description,
			item.Quantity, item.UnitPrice, item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrder retrieves an order scoped by (id, companyID).
func (s *Store) GetOrder(ctx context.Context, orderID, companyID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND company_id = $2", orderID, companyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves a page of a tenant's orders, newest first, optionally
// bounded by creation date.
func (s *Store) ListOrders(ctx context.Context, companyID int64, limit, offset int, start, end *time.Time) ([]models.Order, error) {
	query := "SELECT * FROM orders WHERE company_id = $1"
	args := []interface{}{companyID}

	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// UpdateOrderStatus applies a status transition with a single tenant-scoped
// compare-and-update; the returned row count is zero when no order matches
// (id, companyID).
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, companyID int64, status string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3",
		status, orderID, companyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetOrderItems retrieves all items belonging to an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// DecrementItemQuantities subtracts quantity from every item of the order in
// one statement and reports the number of rows touched.
func (s *Store) DecrementItemQuantities(ctx context.Context, orderID int64, quantity int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE order_items SET quantity = quantity - $1 WHERE order_id = $2",
		quantity, orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
