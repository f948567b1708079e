package service

import (
	"context"
	"time"

	"flow-platform/config"
	"flow-platform/internal/models"
	"flow-platform/internal/redisclient"
	"flow-platform/internal/store"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

const billingCacheTTL = time.Minute

// BillingService owns the subscription record consulted by the login gate.
type BillingService struct {
	store  *store.Store
	cache  Cache
	cfg    config.BillingConfig
	logger *zap.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(st *store.Store, cache Cache, cfg config.BillingConfig) *BillingService {
	return &BillingService{
		store:  st,
		cache:  cache,
		cfg:    cfg,
		logger: util.NamedLogger("billing"),
	}
}

// GetBillingReply is the wire shape of a billing lookup: the record on
// success, literal false when the record is absent or expired.
type GetBillingReply struct {
	Success interface{} `json:"success"`
	Message string      `json:"message,omitempty"`
}

// CreateBilling seeds the billing record created alongside registration,
// falling back to the trial defaults when the event carries no amount or
// account type.
func (s *BillingService) CreateBilling(ctx context.Context, ev *models.CreateBillingEvent) (*models.Billing, error) {
	amount := ev.Amount
	if amount == 0 {
		amount = s.cfg.TrialAmount
	}
	accountType := ev.AccountType
	if accountType == "" {
		accountType = s.cfg.TrialAccountType
	}

	now := time.Now().UTC()
	billing := &models.Billing{
		AccountID:   ev.AccountID,
		Amount:      amount,
		AccountType: accountType,
		CreatedAt:   now,
		ExpireAt:    now.Add(s.cfg.TrialDuration),
	}
	if err := s.store.CreateBilling(ctx, billing); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, redisclient.BillingKey(ev.AccountID)); err != nil {
		s.logger.Warn("Billing cache invalidation failed", zap.Error(err))
	}

	s.logger.Info("Billing record created",
		zap.Int64("account_id", ev.AccountID),
		zap.String("account_type", accountType))
	return billing, nil
}

// GetBilling looks up the account's billing record and applies the expiry
// check. The comparison is createdAt >= expireAt, deliberately kept
// identical to the capability-token guard's re-check.
func (s *BillingService) GetBilling(ctx context.Context, accountID int64) (*GetBillingReply, error) {
	var cached models.Billing
	hit, err := s.cache.GetJSON(ctx, redisclient.BillingKey(accountID), &cached)
	if err != nil {
		s.logger.Warn("Billing cache read failed", zap.Error(err))
	}

	var billing *models.Billing
	if hit {
		billing = &cached
	} else {
		billing, err = s.store.GetBillingByAccountID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if billing != nil {
			if err := s.cache.SetJSON(ctx, redisclient.BillingKey(accountID), billing, billingCacheTTL); err != nil {
				s.logger.Warn("Billing cache write failed", zap.Error(err))
			}
		}
	}

	if billing == nil {
		return &GetBillingReply{Success: false}, nil
	}

	if !billing.CreatedAt.Before(billing.ExpireAt) {
		s.logger.Info("Billing expired", zap.Int64("account_id", accountID))
		return &GetBillingReply{Success: false}, nil
	}

	return &GetBillingReply{Success: billing, Message: "Billing is active"}, nil
}

// Mount registers the billing patterns on a responder.
func (s *BillingService) Mount(r *transport.Responder) {
	r.Handle(models.PatternCreateBilling, func(ctx context.Context, payload []byte) (interface{}, error) {
		var ev models.CreateBillingEvent
		if err := transport.DecodeJSON(payload, &ev); err != nil {
			return nil, err
		}
		return s.CreateBilling(ctx, &ev)
	})

	r.Handle(models.PatternGetBilling, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req GetBillingRequest
		if err := transport.DecodeJSON(payload, &req); err != nil {
			return nil, err
		}
		return s.GetBilling(ctx, req.AccountID)
	})
}
