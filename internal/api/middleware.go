package api

import (
	"net/http"
	"strconv"
	"time"

	"flow-platform/internal/domain"
	"flow-platform/internal/token"
	"flow-platform/internal/util"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// authGuard verifies the capability token cookie: signature, token expiry,
// the frozen billing snapshot re-check (createdAt vs expireAt, no live
// lookup) and, when the route declares one, an explicit role allow-list.
func (h *Handler) authGuard(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(h.auth.CookieName)
		if err != nil || tokenString == "" {
			abortError(c, http.StatusUnauthorized, "Token not found")
			return
		}

		claims, err := h.codec.Verify(tokenString)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Token not found")
			return
		}

		if claims.BillingExpired() {
			abortError(c, http.StatusForbidden, "Subscription expired")
			return
		}

		if len(allowedRoles) > 0 && !roleAllowed(claims.Role, allowedRoles) {
			abortError(c, http.StatusForbidden, "Insufficient role")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// mustClaims returns the claims set by authGuard; guarded routes only.
func mustClaims(c *gin.Context) *token.Claims {
	return c.MustGet(claimsKey).(*token.Claims)
}

// errorEnvelope is the gateway's JSON error surface.
type errorEnvelope struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func newEnvelope(message string) errorEnvelope {
	return errorEnvelope{Status: "error", Message: message, Timestamp: time.Now().UTC()}
}

// writeError maps a taxonomy error onto an HTTP status and the error
// envelope.
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(domain.CodeOf(err)), newEnvelope(domain.MessageOf(err)))
}

func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, newEnvelope(message))
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, newEnvelope(message))
}

func statusFor(code string) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidQuantity:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidTransition, domain.CodeInsufficientQuantity:
		return http.StatusConflict
	case domain.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case domain.CodeAccountNotActive, domain.CodeSubscriptionExpired:
		return http.StatusForbidden
	case domain.CodeRemoteTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeRemoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
