package store

import (
	"context"
	"testing"
	"time"

	"flow-platform/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreateAccountMapsDuplicateUsername(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("alice", "hashed", "alice@example.com", "Acme").
		WillReturnError(&pq.Error{Code: "23505"})

	err := st.CreateAccount(context.Background(), &models.Account{
		Username:    "alice",
		Password:    "hashed",
		Email:       "alice@example.com",
		CompanyName: "Acme",
	})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestGetAccountByUsernameMissing(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "email", "company_name", "created_at"}))

	account, err := st.GetAccountByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestGetOrderMissingReturnsNil(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "created_by", "assigned_to", "type", "status", "total_amount", "created_at", "updated_at"}))

	order, err := st.GetOrder(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestUpdateOrderStatusReportsRowsAffected(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusCanceled, int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusCanceled, int64(7), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := st.UpdateOrderStatus(context.Background(), 7, 2, models.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Same order id, wrong tenant.
	rows, err = st.UpdateOrderStatus(context.Background(), 7, 99, models.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestListOrdersBuildsDateBounds(t *testing.T) {
	st, mock := newTestStore(t)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE company_id = \$1 AND created_at >= \$2 AND created_at <= \$3 ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(int64(2), start, end, 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "created_by", "assigned_to", "type", "status", "total_amount", "created_at", "updated_at"}))

	orders, err := st.ListOrders(context.Background(), 2, 10, 20, &start, &end)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderWithItemsRollsBackOnItemFailure(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := st.CreateOrderWithItems(context.Background(),
		&models.Order{CompanyID: 2, CreatedBy: 3, Type: models.OrderTypeSale, Status: models.OrderStatusCreated, TotalAmount: 100},
		[]models.OrderItem{{ReferenceName: "widget", Quantity: 1, UnitPrice: 100, Subtotal: 100}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementItemQuantitiesTouchesEveryItem(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec("UPDATE order_items SET quantity").
		WithArgs(3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rows, err := st.DecrementItemQuantities(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
}

func TestGetBillingByAccountIDMissing(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM billing WHERE account_id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "account_type", "created_at", "expire_at"}))

	billing, err := st.GetBillingByAccountID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, billing)
}
