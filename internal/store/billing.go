package store

import (
	"context"
	"database/sql"

	"flow-platform/internal/models"
)

// CreateBilling persists a billing record for an account.
func (s *Store) CreateBilling(ctx context.Context, billing *models.Billing) error {
	query := `
		INSERT INTO billing (account_id, amount, account_type, created_at, expire_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &billing.ID, query,
		billing.AccountID, billing.Amount, billing.AccountType,
		billing.CreatedAt, billing.ExpireAt)
}

// GetBillingByAccountID retrieves the newest billing record for an account,
// or nil when none exists. One active record per account is assumed.
func (s *Store) GetBillingByAccountID(ctx context.Context, accountID int64) (*models.Billing, error) {
	var billing models.Billing
	err := s.db.GetContext(ctx, &billing,
		"SELECT * FROM billing WHERE account_id = $1 ORDER BY created_at DESC LIMIT 1", accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &billing, nil
}
