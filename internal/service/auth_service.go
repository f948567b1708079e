package service

import (
	"bytes"
	"context"
	"encoding/json"

	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/store"
	"flow-platform/internal/token"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns registration and the login gate: credentials, profile
// status and billing expiry chained into one token-issuance decision.
type AuthService struct {
	store      *store.Store
	bus        Bus
	codec      *token.Codec
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(st *store.Store, bus Bus, codec *token.Codec, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		store:      st,
		bus:        bus,
		codec:      codec,
		bcryptCost: bcryptCost,
		logger:     util.NamedLogger("auth"),
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

// LoginRequest is the login payload; IP is attached by the gateway.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IP       string `json:"ip,omitempty"`
}

// AuthReply carries the gateway-facing result of register and login.
type AuthReply struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// GetUserRequest asks the users service for a role/status pair.
type GetUserRequest struct {
	AccountID int64 `json:"accountId"`
}

// RoleStatusReply is the users service get-user reply.
type RoleStatusReply struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// GetBillingRequest asks the billing service for the account's record.
type GetBillingRequest struct {
	AccountID int64 `json:"accountId"`
}

// BillingLookupReply decodes the billing service {success: record | false}
// shape.
type BillingLookupReply struct {
	Success json.RawMessage `json:"success"`
}

// Record returns the billing record, or false when the lookup reported an
// absent or expired subscription.
func (r *BillingLookupReply) Record() (*models.Billing, bool) {
	trimmed := bytes.TrimSpace(r.Success)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	var billing models.Billing
	if err := json.Unmarshal(trimmed, &billing); err != nil {
		return nil, false
	}
	return &billing, true
}

// AccountProfileReply is the account-profile reply consumed by the users and
// documents services.
type AccountProfileReply struct {
	Query struct {
		CompanyName string `json:"company_name"`
		Email       string `json:"email"`
		Username    string `json:"username"`
	} `json:"query"`
}

// Register creates the tenant account and fans out the profile and billing
// creation events. The companion records are created out-of-band; the reply
// does not wait for them.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthReply, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	if req.Username == "" || req.Password == "" || req.Email == "" {
		return nil, domain.Validation("username, email and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:    req.Username,
		Password:    string(hashed),
		Email:       req.Email,
		CompanyName: req.CompanyName,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if err == store.ErrDuplicateUsername {
			return nil, domain.Validation("username already taken")
		}
		return nil, err
	}

	util.RegistrationsTotal.Inc()
	s.logger.Info("Account registered", zap.Int64("account_id", account.ID))

	s.publish(ctx, models.PatternRegisterNotification, &models.RegisterNotificationEvent{
		Username:    account.Username,
		Email:       account.Email,
		CompanyName: account.CompanyName,
	})
	s.publish(ctx, models.PatternCreateUser, &GetUserRequest{AccountID: account.ID})
	s.publish(ctx, models.PatternCreateBilling, &models.CreateBillingEvent{AccountID: account.ID})

	return &AuthReply{Message: "User registered successfully"}, nil
}

// Login runs the gate pipeline. Unknown username and wrong password collapse
// into the same InvalidCredentials so callers cannot probe for accounts. The
// login notification is published before the status and billing checks
// resolve, so a login later rejected for expired billing still records a
// succeeded notification.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthReply, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	account, err := s.store.GetAccountByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.rejectLogin(ctx, 0, req.Username, "unknown_username")
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		s.rejectLogin(ctx, account.ID, account.Username, "wrong_password")
		return nil, domain.ErrInvalidCredentials
	}

	var roleStatus RoleStatusReply
	if err := s.bus.Request(ctx, models.PatternGetUser, &GetUserRequest{AccountID: account.ID}, &roleStatus); err != nil {
		s.rejectLogin(ctx, account.ID, account.Username, "profile_lookup_failed")
		return nil, err
	}

	s.publish(ctx, models.PatternLoginNotification, &models.LoginNotificationEvent{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		IP:        req.IP,
	})

	if roleStatus.Status != models.UserStatusActive {
		s.rejectLogin(ctx, account.ID, account.Username, "not_active")
		return nil, domain.ErrAccountNotActive
	}

	var billingReply BillingLookupReply
	if err := s.bus.Request(ctx, models.PatternGetBilling, &GetBillingRequest{AccountID: account.ID}, &billingReply); err != nil {
		s.rejectLogin(ctx, account.ID, account.Username, "billing_lookup_failed")
		return nil, err
	}

	billing, active := billingReply.Record()
	if !active {
		s.rejectLogin(ctx, account.ID, account.Username, "subscription_expired")
		return nil, domain.ErrSubscriptionExpired
	}

	signed, err := s.codec.Sign(token.Claims{
		AccountID:   account.ID,
		UserID:      roleStatus.UserID,
		Role:        roleStatus.Role,
		Status:      roleStatus.Status,
		AccountType: billing.AccountType,
		CreatedAt:   billing.CreatedAt,
		ExpireAt:    billing.ExpireAt,
	})
	if err != nil {
		return nil, err
	}

	util.LoginsTotal.Inc()
	s.logger.Info("Login succeeded", zap.Int64("account_id", account.ID))

	return &AuthReply{Message: "User logged in successfully", Token: signed}, nil
}

// AccountProfile answers the account identity lookup used by the users and
// documents services.
func (s *AuthService) AccountProfile(ctx context.Context, accountID int64) (*AccountProfileReply, error) {
	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var reply AccountProfileReply
	reply.Query.CompanyName = account.CompanyName
	reply.Query.Email = account.Email
	reply.Query.Username = account.Username
	return &reply, nil
}

// Mount registers the auth patterns on a responder.
func (s *AuthService) Mount(r *transport.Responder) {
	r.Handle(models.PatternRegister, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req RegisterRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.Register(ctx, &req)
	})

	r.Handle(models.PatternLogin, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req LoginRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.Login(ctx, &req)
	})

	r.Handle(models.PatternAccountProfile, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetUserRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.AccountProfile(ctx, req.AccountID)
	})
}

func (s *AuthService) rejectLogin(ctx context.Context, accountID int64, username, reason string) {
	util.LoginsFailedTotal.WithLabelValues(reason).Inc()
	s.publish(ctx, models.PatternLoginFailedNotification, &models.LoginFailedNotificationEvent{
		AccountID: accountID,
		Username:  username,
		Reason:    reason,
	})
}

func (s *AuthService) publish(ctx context.Context, pattern string, payload interface{}) {
	if err := s.bus.Publish(ctx, pattern, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}
