package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flow-platform/internal/models"

	"github.com/lib/pq"
)

// ErrDuplicateUsername reports a violation of the accounts username
// uniqueness constraint.
var ErrDuplicateUsername = errors.New("username already taken")

// CreateAccount persists a new tenant account. The password must already be
// hashed by the caller.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (username, password, email, company_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, account, query,
		account.Username, account.Password, account.Email, account.CompanyName)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicateUsername
	}
	return err
}

// GetAccountByUsername retrieves an account by its unique username.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account,
		"SELECT * FROM accounts WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountByID retrieves an account by ID.
func (s *Store) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account, "SELECT * FROM accounts WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateUserProfile creates the profile row paired one-to-one with an
// account.
func (s *Store) CreateUserProfile(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (account_id, role, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, profile, query,
		profile.AccountID, profile.Role, profile.Status)
}

// GetUserProfileByAccountID retrieves the profile for an account.
func (s *Store) GetUserProfileByAccountID(ctx context.Context, accountID int64) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.GetContext(ctx, &profile,
		"SELECT * FROM user_profiles WHERE account_id = $1", accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
