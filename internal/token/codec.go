package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "flow-auth"

// ErrInvalidToken indicates the token failed signature or claims validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the capability token payload: a frozen snapshot of the
// role/status/billing state at issuance time. It carries no server-side
// session; every guard trusts it until the token's own expiry.
type Claims struct {
	AccountID   int64     `json:"accountId"`
	UserID      int64     `json:"userId"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	AccountType string    `json:"accountType"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpireAt    time.Time `json:"expireAt"`
	jwt.RegisteredClaims
}

// BillingExpired applies the frozen billing snapshot re-check. The
// comparison basis (createdAt vs expireAt) intentionally matches the billing
// service's own check.
func (c *Claims) BillingExpired() bool {
	return !c.CreatedAt.Before(c.ExpireAt)
}

// Codec signs and verifies capability tokens with HMAC-SHA256.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec. ttl is the fixed token validity window,
// independent of the embedded billing expiry.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given snapshot.
func (c *Codec) Sign(claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		ID:        uuid.NewString(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(c.secret)
}

// Verify checks the signature, algorithm and token expiry, returning the
// embedded claims.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
