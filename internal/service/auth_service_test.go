package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/token"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCodec() *token.Codec {
	return token.NewCodec("test-secret", time.Hour)
}

func accountRow(t *testing.T, id int64, username, password string) *sqlmock.Rows {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "username", "password", "email", "company_name", "created_at"}).
		AddRow(id, username, string(hashed), username+"@example.com", "Acme", time.Now())
}

func activeBillingReply() map[string]interface{} {
	now := time.Now().UTC()
	return map[string]interface{}{
		"success": map[string]interface{}{
			"id":          int64(1),
			"account_id":  int64(1),
			"amount":      2000.0,
			"accountType": "TRIAL",
			"createdAt":   now,
			"expireAt":    now.AddDate(0, 0, 30),
		},
	}
}

func TestLoginUnknownUsername(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	svc := NewAuthService(st, bus, testCodec(), bcrypt.MinCost)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "ghost", Password: "whatever"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.Equal(t, []string{models.PatternLoginFailedNotification}, bus.publishedPatterns())
}

func TestLoginWrongPassword(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	svc := NewAuthService(st, bus, testCodec(), bcrypt.MinCost)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("alice").
		WillReturnRows(accountRow(t, 1, "alice", "correct-horse"))

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "wrong"})

	// Indistinguishable from an unknown username.
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Empty(t, bus.requests, "no downstream lookup before the password check")
}

func TestLoginInactiveProfile(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	bus.replies[models.PatternGetUser] = RoleStatusReply{UserID: 9, Role: "ADMIN", Status: models.UserStatusInactive}
	svc := NewAuthService(st, bus, testCodec(), bcrypt.MinCost)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("alice").
		WillReturnRows(accountRow(t, 1, "alice", "correct-horse"))

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)

	// The login notification is published before the status gate resolves,
	// so a rejected login still records one.
	patterns := bus.publishedPatterns()
	require.Len(t, patterns, 2)
	assert.Equal(t, models.PatternLoginNotification, patterns[0])
	assert.Equal(t, models.PatternLoginFailedNotification, patterns[1])
}

func TestLoginExpiredSubscription(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	bus.replies[models.PatternGetUser] = RoleStatusReply{UserID: 9, Role: "ADMIN", Status: models.UserStatusActive}
	bus.replies[models.PatternGetBilling] = map[string]interface{}{"success": false}
	svc := NewAuthService(st, bus, testCodec(), bcrypt.MinCost)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("alice").
		WillReturnRows(accountRow(t, 1, "alice", "correct-horse"))

	reply, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrSubscriptionExpired)
	assert.Nil(t, reply, "no token on an expired subscription")
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	bus.replies[models.PatternGetUser] = RoleStatusReply{UserID: 9, Role: "ADMIN", Status: models.UserStatusActive}
	bus.replies[models.PatternGetBilling] = activeBillingReply()
	codec := testCodec()
	svc := NewAuthService(st, bus, codec, bcrypt.MinCost)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("alice").
		WillReturnRows(accountRow(t, 1, "alice", "correct-horse"))

	reply, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "correct-horse", IP: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Token)

	claims, err := codec.Verify(reply.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.AccountID)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, models.UserStatusActive, claims.Status)
	assert.Equal(t, "TRIAL", claims.AccountType)
	assert.False(t, claims.BillingExpired())

	assert.Equal(t, []string{models.PatternLoginNotification}, bus.publishedPatterns())
}

func TestRegisterValidation(t *testing.T) {
	st, _ := newMockStore(t)
	svc := NewAuthService(st, newFakeBus(), testCodec(), bcrypt.MinCost)

	for _, req := range []*RegisterRequest{
		{Email: "a@b.c", Password: "pw"},
		{Username: "alice", Password: "pw"},
		{Username: "alice", Email: "a@b.c"},
	} {
		_, err := svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestRegisterFansOutCompanionEvents(t *testing.T) {
	st, mock := newMockStore(t)
	bus := newFakeBus()
	svc := NewAuthService(st, bus, testCodec(), bcrypt.MinCost)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("alice", sqlmock.AnyArg(), "alice@example.com", "Acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), time.Now()))

	reply, err := svc.Register(context.Background(), &RegisterRequest{
		Username:    "alice",
		Email:       "alice@example.com",
		Password:    "correct-horse",
		CompanyName: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", reply.Message)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{
		models.PatternRegisterNotification,
		models.PatternCreateUser,
		models.PatternCreateBilling,
	}, bus.publishedPatterns())
}
