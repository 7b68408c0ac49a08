package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"tutorslot/internal/logger"
	"tutorslot/internal/metrics"

	"github.com/google/uuid"
)

var ErrInvalidCount = errors.New("count must be positive")

type Service interface {
	Grant(ctx context.Context, accountID uuid.UUID, spec GrantSpec) (*CreditGrant, error)
	Consume(ctx context.Context, accountID uuid.UUID, count int) error
	Restore(ctx context.Context, accountID uuid.UUID, count int) error
	RedeemCode(ctx context.Context, accountID uuid.UUID, code string) (*CreditGrant, error)
	Adjust(ctx context.Context, accountID uuid.UUID, delta int, memo string, expiresInDays int) (*CreditGrant, error)
	ActiveBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error)
	ListGrants(ctx context.Context, accountID uuid.UUID) ([]CreditGrant, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*CreditGrant, error)
	CreateCoupon(ctx context.Context, code string, credits int) (*Coupon, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) Grant(ctx context.Context, accountID uuid.UUID, spec GrantSpec) (*CreditGrant, error) {
	if spec.Credits <= 0 {
		return nil, ErrInvalidCount
	}

	grant, err := s.repo.Grant(ctx, accountID, spec)
	if err != nil {
		return nil, err
	}

	metrics.RecordGrant(string(grant.Source), string(grant.Product))
	logger.Info("credit grant created",
		"grant_id", grant.ID.String(),
		"account_id", accountID.String(),
		"source", string(grant.Source),
		"credits", grant.Total,
	)

	return grant, nil
}

func (s *service) Consume(ctx context.Context, accountID uuid.UUID, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}

	if err := s.repo.Consume(ctx, accountID, count, s.now()); err != nil {
		return err
	}

	metrics.RecordConsume(count)
	return nil
}

func (s *service) Restore(ctx context.Context, accountID uuid.UUID, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}

	if err := s.repo.Restore(ctx, accountID, count, s.now()); err != nil {
		return err
	}

	metrics.RecordRestore(count)
	return nil
}

// NormalizeCouponCode strips whitespace and upper-cases the code so retries
// with different casing hit the same redemption record.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) RedeemCode(ctx context.Context, accountID uuid.UUID, code string) (*CreditGrant, error) {
	normalized := NormalizeCouponCode(code)

	coupon, err := s.repo.GetCoupon(ctx, normalized)
	if err != nil {
		return nil, err
	}

	grant, err := s.repo.RedeemCoupon(ctx, accountID, normalized, coupon.Credits, s.now())
	if err != nil {
		if errors.Is(err, ErrCouponAlreadyRedeemed) {
			metrics.RecordCouponRedemption("duplicate")
		}
		return nil, err
	}

	metrics.RecordCouponRedemption("redeemed")
	logger.Info("coupon redeemed",
		"account_id", accountID.String(),
		"code", normalized,
		"credits", coupon.Credits,
	)

	return grant, nil
}

func (s *service) Adjust(ctx context.Context, accountID uuid.UUID, delta int, memo string, expiresInDays int) (*CreditGrant, error) {
	if delta == 0 {
		return nil, ErrInvalidCount
	}

	if delta < 0 {
		if err := s.repo.Consume(ctx, accountID, -delta, s.now()); err != nil {
			return nil, err
		}
		metrics.RecordConsume(-delta)
		logger.Info("credits adjusted down",
			"account_id", accountID.String(),
			"delta", delta,
			"memo", memo,
		)
		return nil, nil
	}

	if expiresInDays <= 0 {
		expiresInDays = DefaultAdjustValidityDays
	}

	return s.Grant(ctx, accountID, GrantSpec{
		Source:    SourceAdmin,
		Product:   ProductCustom,
		Credits:   delta,
		ExpiresAt: s.now().AddDate(0, 0, expiresInDays),
		Memo:      memo,
	})
}

func (s *service) ActiveBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error) {
	return s.repo.ActiveBalance(ctx, accountID, s.now())
}

func (s *service) ListGrants(ctx context.Context, accountID uuid.UUID) ([]CreditGrant, error) {
	return s.repo.ListGrants(ctx, accountID)
}

func (s *service) GetGrant(ctx context.Context, id uuid.UUID) (*CreditGrant, error) {
	return s.repo.GetGrant(ctx, id)
}

func (s *service) CreateCoupon(ctx context.Context, code string, credits int) (*Coupon, error) {
	if credits <= 0 {
		return nil, ErrInvalidCount
	}
	return s.repo.CreateCoupon(ctx, NormalizeCouponCode(code), credits)
}
