package service

import (
	"context"
	"time"

	"flow-platform/internal/domain"
	"flow-platform/internal/models"
	"flow-platform/internal/redisclient"
	"flow-platform/internal/store"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

const profileCacheTTL = 5 * time.Minute

// UserService owns the role/status profile created alongside each account.
type UserService struct {
	store  *store.Store
	cache  Cache
	bus    Bus
	logger *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(st *store.Store, cache Cache, bus Bus) *UserService {
	return &UserService{
		store:  st,
		cache:  cache,
		bus:    bus,
		logger: util.NamedLogger("users"),
	}
}

// UserProfileReply merges the profile's role/status with the account
// identity fields.
type UserProfileReply struct {
	Role        string `json:"role"`
	Status      string `json:"status"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
}

// CreateUser creates the profile row for a freshly registered account with
// the default role and status. Consumed fire-and-forget, so duplicate
// deliveries surface as constraint errors in the log rather than replies.
func (s *UserService) CreateUser(ctx context.Context, accountID int64) (*models.UserProfile, error) {
	profile := &models.UserProfile{
		AccountID: accountID,
		Role:      models.DefaultUserRole,
		Status:    models.UserStatusActive,
	}
	if err := s.store.CreateUserProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("User profile created", zap.Int64("account_id", accountID))
	return profile, nil
}

// GetUser returns the role/status pair for the login gate, read through the
// cache.
func (s *UserService) GetUser(ctx context.Context, accountID int64) (*RoleStatusReply, error) {
	var cached RoleStatusReply
	if hit, err := s.cache.GetJSON(ctx, redisclient.ProfileKey(accountID), &cached); err != nil {
		s.logger.Warn("Profile cache read failed", zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	profile, err := s.store.GetUserProfileByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.New(domain.CodeNotFound, "user profile not found")
	}

	reply := &RoleStatusReply{UserID: profile.ID, Role: profile.Role, Status: profile.Status}
	if err := s.cache.SetJSON(ctx, redisclient.ProfileKey(accountID), reply, profileCacheTTL); err != nil {
		s.logger.Warn("Profile cache write failed", zap.Error(err))
	}
	return reply, nil
}

// UserProfile answers the merged profile view, enriching role/status with
// the account identity fetched back from the auth service.
func (s *UserService) UserProfile(ctx context.Context, accountID int64) (*UserProfileReply, error) {
	roleStatus, err := s.GetUser(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var account AccountProfileReply
	if err := s.bus.Request(ctx, models.PatternAccountProfile, &GetUserRequest{AccountID: accountID}, &account); err != nil {
		return nil, err
	}

	return &UserProfileReply{
		Role:        roleStatus.Role,
		Status:      roleStatus.Status,
		CompanyName: account.Query.CompanyName,
		Email:       account.Query.Email,
		Username:    account.Query.Username,
	}, nil
}

// Mount registers the users patterns on a responder.
func (s *UserService) Mount(r *transport.Responder) {
	r.Handle(models.PatternCreateUser, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetUserRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.CreateUser(ctx, req.AccountID)
	})

	r.Handle(models.PatternGetUser, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetUserRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.GetUser(ctx, req.AccountID)
	})

	r.Handle(models.PatternUserProfile, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetUserRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.UserProfile(ctx, req.AccountID)
	})
}
