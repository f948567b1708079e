package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flow-platform/config"
	"flow-platform/internal/domain"
	"flow-platform/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		CookieName: "flowToken",
	}
}

func guardedRouter(t *testing.T, allowedRoles ...string) (*gin.Engine, *token.Codec) {
	t.Helper()
	cfg := testAuthConfig()
	codec := token.NewCodec(cfg.Secret, cfg.TokenTTL)
	h := NewHandler(nil, codec, cfg)

	router := gin.New()
	router.GET("/protected", h.authGuard(allowedRoles...), func(c *gin.Context) {
		claims := mustClaims(c)
		c.JSON(http.StatusOK, gin.H{"accountId": claims.AccountID, "role": claims.Role})
	})
	return router, codec
}

func signedToken(t *testing.T, codec *token.Codec, role string, billingExpired bool) string {
	t.Helper()
	now := time.Now().UTC()
	expireAt := now.AddDate(0, 0, 30)
	if billingExpired {
		expireAt = now.Add(-time.Hour)
	}
	signed, err := codec.Sign(token.Claims{
		AccountID: 1,
		UserID:    9,
		Role:      role,
		Status:    "ACTIVE",
		CreatedAt: now,
		ExpireAt:  expireAt,
	})
	require.NoError(t, err)
	return signed
}

func doGuarded(router *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "flowToken", Value: cookie})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthGuardMissingCookie(t *testing.T) {
	router, _ := guardedRouter(t)

	rec := doGuarded(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Token not found", env.Message)
	assert.False(t, env.Timestamp.IsZero())
}

func TestAuthGuardRejectsInvalidToken(t *testing.T) {
	router, _ := guardedRouter(t)

	rec := doGuarded(router, "garbage.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGuardRejectsForeignSignature(t *testing.T) {
	router, _ := guardedRouter(t)

	other := token.NewCodec("other-secret", time.Hour)
	signed, err := other.Sign(token.Claims{AccountID: 1, Role: "ADMIN"})
	require.NoError(t, err)

	rec := doGuarded(router, signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGuardRejectsExpiredBillingSnapshot(t *testing.T) {
	router, codec := guardedRouter(t)

	// The token itself is still valid; the frozen billing snapshot is not.
	rec := doGuarded(router, signedToken(t, codec, "ADMIN", true))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Subscription expired", env.Message)
}

func TestAuthGuardRoleAllowList(t *testing.T) {
	router, codec := guardedRouter(t, "ADMIN", "PRO")

	rec := doGuarded(router, signedToken(t, codec, "VIEWER", false))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGuarded(router, signedToken(t, codec, "PRO", false))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGuardNoAllowListAdmitsAnyRole(t *testing.T) {
	router, codec := guardedRouter(t)

	rec := doGuarded(router, signedToken(t, codec, "VIEWER", false))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGuardExposesClaims(t *testing.T) {
	router, codec := guardedRouter(t)

	rec := doGuarded(router, signedToken(t, codec, "ADMIN", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccountID int64  `json:"accountId"`
		Role      string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.AccountID)
	assert.Equal(t, "ADMIN", body.Role)
}

func TestStatusForMapping(t *testing.T) {
	cases := map[string]int{
		domain.CodeValidation:           http.StatusBadRequest,
		domain.CodeInvalidQuantity:      http.StatusBadRequest,
		domain.CodeNotFound:             http.StatusNotFound,
		domain.CodeInvalidTransition:    http.StatusConflict,
		domain.CodeInsufficientQuantity: http.StatusConflict,
		domain.CodeInvalidCredentials:   http.StatusUnauthorized,
		domain.CodeAccountNotActive:     http.StatusForbidden,
		domain.CodeSubscriptionExpired:  http.StatusForbidden,
		domain.CodeRemoteTimeout:        http.StatusGatewayTimeout,
		domain.CodeRemoteUnavailable:    http.StatusServiceUnavailable,
		domain.CodeRemoteError:          http.StatusBadGateway,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), code)
	}
}
