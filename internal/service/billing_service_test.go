package service

import (
	"context"
	"testing"
	"time"

	"flow-platform/config"
	"flow-platform/internal/models"
	"flow-platform/internal/redisclient"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialConfig() config.BillingConfig {
	return config.BillingConfig{
		TrialAmount:      2000,
		TrialAccountType: "TRIAL",
		TrialDuration:    30 * 24 * time.Hour,
	}
}

func billingRow(accountID int64, createdAt, expireAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "amount", "account_type", "created_at", "expire_at"}).
		AddRow(int64(1), accountID, 2000.0, "TRIAL", createdAt, expireAt)
}

func TestCreateBillingAppliesTrialDefaults(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewBillingService(st, newFakeCache(), trialConfig())

	mock.ExpectQuery("INSERT INTO billing").
		WithArgs(int64(5), 2000.0, "TRIAL", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	billing, err := svc.CreateBilling(context.Background(), &models.CreateBillingEvent{AccountID: 5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "TRIAL", billing.AccountType)
	assert.Equal(t, 2000.0, billing.Amount)
	assert.Equal(t, 30*24*time.Hour, billing.ExpireAt.Sub(billing.CreatedAt))
}

func TestCreateBillingKeepsExplicitValues(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewBillingService(st, newFakeCache(), trialConfig())

	mock.ExpectQuery("INSERT INTO billing").
		WithArgs(int64(5), 9900.0, "PRO", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	billing, err := svc.CreateBilling(context.Background(), &models.CreateBillingEvent{
		AccountID:   5,
		Amount:      9900,
		AccountType: "PRO",
	})
	require.NoError(t, err)
	assert.Equal(t, "PRO", billing.AccountType)
}

func TestGetBillingActive(t *testing.T) {
	st, mock := newMockStore(t)
	cache := newFakeCache()
	svc := NewBillingService(st, cache, trialConfig())

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM billing WHERE account_id").
		WithArgs(int64(5)).
		WillReturnRows(billingRow(5, now, now.AddDate(0, 0, 30)))

	reply, err := svc.GetBilling(context.Background(), 5)
	require.NoError(t, err)

	billing, ok := reply.Success.(*models.Billing)
	require.True(t, ok)
	assert.Equal(t, int64(5), billing.AccountID)
	assert.Equal(t, "Billing is active", reply.Message)

	// The record lands in the cache for the next lookup.
	assert.Contains(t, cache.entries, redisclient.BillingKey(5))
}

func TestGetBillingExpiredReportsFalse(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewBillingService(st, newFakeCache(), trialConfig())

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM billing WHERE account_id").
		WithArgs(int64(5)).
		WillReturnRows(billingRow(5, now, now.Add(-time.Hour)))

	reply, err := svc.GetBilling(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, false, reply.Success)
}

func TestGetBillingBoundaryCountsAsExpired(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewBillingService(st, newFakeCache(), trialConfig())

	// createdAt equal to expireAt is expired; the comparison matches the
	// token guard's.
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM billing WHERE account_id").
		WithArgs(int64(5)).
		WillReturnRows(billingRow(5, now, now))

	reply, err := svc.GetBilling(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, false, reply.Success)
}

func TestGetBillingMissingReportsFalse(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewBillingService(st, newFakeCache(), trialConfig())

	mock.ExpectQuery("SELECT (.+) FROM billing WHERE account_id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "account_type", "created_at", "expire_at"}))

	reply, err := svc.GetBilling(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, false, reply.Success)
}

func TestGetBillingServedFromCache(t *testing.T) {
	st, mock := newMockStore(t)
	cache := newFakeCache()
	svc := NewBillingService(st, cache, trialConfig())

	now := time.Now().UTC()
	require.NoError(t, cache.SetJSON(context.Background(), redisclient.BillingKey(5), &models.Billing{
		ID:        1,
		AccountID: 5,
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, 0, 30),
	}, time.Minute))

	reply, err := svc.GetBilling(context.Background(), 5)
	require.NoError(t, err)
	assert.NotEqual(t, false, reply.Success)

	// No database round trip on a cache hit.
	assert.NoError(t, mock.ExpectationsWereMet())
}
