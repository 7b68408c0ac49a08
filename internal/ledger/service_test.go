package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tutorslot/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockLedgerRepo struct{ mock.Mock }

func (m *MockLedgerRepo) Grant(ctx context.Context, accountID uuid.UUID, spec GrantSpec) (*CreditGrant, error) {
	args := m.Called(ctx, accountID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditGrant), args.Error(1)
}

func (m *MockLedgerRepo) Consume(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error {
	return m.Called(ctx, accountID, count, now).Error(0)
}

func (m *MockLedgerRepo) Restore(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error {
	return m.Called(ctx, accountID, count, now).Error(0)
}

func (m *MockLedgerRepo) ConsumeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error {
	return m.Called(ctx, tx, accountID, count, now).Error(0)
}

func (m *MockLedgerRepo) RestoreTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error {
	return m.Called(ctx, tx, accountID, count, now).Error(0)
}

func (m *MockLedgerRepo) RedeemCoupon(ctx context.Context, accountID uuid.UUID, code string, credits int, now time.Time) (*CreditGrant, error) {
	args := m.Called(ctx, accountID, code, credits, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditGrant), args.Error(1)
}

func (m *MockLedgerRepo) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockLedgerRepo) CreateCoupon(ctx context.Context, code string, credits int) (*Coupon, error) {
	args := m.Called(ctx, code, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockLedgerRepo) ActiveBalance(ctx context.Context, accountID uuid.UUID, now time.Time) (*Balance, error) {
	args := m.Called(ctx, accountID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Balance), args.Error(1)
}

func (m *MockLedgerRepo) ListGrants(ctx context.Context, accountID uuid.UUID) ([]CreditGrant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CreditGrant), args.Error(1)
}

func (m *MockLedgerRepo) ListActiveGrants(ctx context.Context, accountID uuid.UUID, now time.Time) ([]CreditGrant, error) {
	args := m.Called(ctx, accountID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CreditGrant), args.Error(1)
}

func (m *MockLedgerRepo) GetGrant(ctx context.Context, id uuid.UUID) (*CreditGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditGrant), args.Error(1)
}

func fixedNowService(repo Repository, now time.Time) *service {
	return &service{
		repo: repo,
		now:  func() time.Time { return now },
	}
}

func TestServiceGrant_RejectsNonPositive(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo)

	_, err := svc.Grant(context.Background(), uuid.New(), GrantSpec{Credits: 0})
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = svc.Grant(context.Background(), uuid.New(), GrantSpec{Credits: -3})
	assert.ErrorIs(t, err, ErrInvalidCount)

	repo.AssertNotCalled(t, "Grant")
}

func TestServiceConsume_PassesClock(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	repo.On("Consume", mock.Anything, accountID, 2, now).Return(nil)

	err := svc.Consume(context.Background(), accountID, 2)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestServiceRedeemCode_NormalizesAndResolvesValue(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	grant := &CreditGrant{ID: uuid.New(), AccountID: accountID, Source: SourceCoupon, Total: 5, Remaining: 5}

	repo.On("GetCoupon", mock.Anything, "WELCOME5").Return(&Coupon{Code: "WELCOME5", Credits: 5, Active: true}, nil)
	repo.On("RedeemCoupon", mock.Anything, accountID, "WELCOME5", 5, now).Return(grant, nil)

	got, err := svc.RedeemCode(context.Background(), accountID, "  welcome5 ")
	assert.NoError(t, err)
	assert.Equal(t, grant.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestServiceRedeemCode_UnknownCoupon(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo)

	repo.On("GetCoupon", mock.Anything, "NOPE").Return(nil, ErrCouponNotFound)

	_, err := svc.RedeemCode(context.Background(), uuid.New(), "nope")
	assert.ErrorIs(t, err, ErrCouponNotFound)
	repo.AssertNotCalled(t, "RedeemCoupon")
}

func TestServiceRedeemCode_Duplicate(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	repo.On("GetCoupon", mock.Anything, "WELCOME5").Return(&Coupon{Code: "WELCOME5", Credits: 5, Active: true}, nil)
	repo.On("RedeemCoupon", mock.Anything, accountID, "WELCOME5", 5, now).Return(nil, ErrCouponAlreadyRedeemed)

	_, err := svc.RedeemCode(context.Background(), accountID, "WELCOME5")
	assert.ErrorIs(t, err, ErrCouponAlreadyRedeemed)
}

func TestServiceAdjust_NegativeDeltaConsumes(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	repo.On("Consume", mock.Anything, accountID, 2, now).Return(nil)

	grant, err := svc.Adjust(context.Background(), accountID, -2, "billing correction", 0)
	assert.NoError(t, err)
	assert.Nil(t, grant)
	repo.AssertExpectations(t)
}

func TestServiceAdjust_PositiveDeltaGrants(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	expected := GrantSpec{
		Source:    SourceAdmin,
		Product:   ProductCustom,
		Credits:   3,
		ExpiresAt: now.AddDate(0, 0, DefaultAdjustValidityDays),
		Memo:      "goodwill",
	}
	grant := &CreditGrant{ID: uuid.New(), AccountID: accountID, Source: SourceAdmin, Product: ProductCustom, Total: 3, Remaining: 3}
	repo.On("Grant", mock.Anything, accountID, expected).Return(grant, nil)

	got, err := svc.Adjust(context.Background(), accountID, 3, "goodwill", 0)
	assert.NoError(t, err)
	assert.Equal(t, grant.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestServiceAdjust_ZeroDelta(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo)

	_, err := svc.Adjust(context.Background(), uuid.New(), 0, "noop", 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestServiceAdjust_InsufficientBubblesUp(t *testing.T) {
	repo := new(MockLedgerRepo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := fixedNowService(repo, now)

	accountID := uuid.New()
	repo.On("Consume", mock.Anything, accountID, 5, now).Return(ErrInsufficientCredits)

	_, err := svc.Adjust(context.Background(), accountID, -5, "correction", 0)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestServiceGetGrant_NotFoundBubblesUp(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo)

	grantID := uuid.New()
	repo.On("GetGrant", mock.Anything, grantID).Return(nil, ErrGrantNotFound)

	_, err := svc.GetGrant(context.Background(), grantID)
	assert.ErrorIs(t, err, ErrGrantNotFound)
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "WELCOME5", NormalizeCouponCode(" welcome5\t"))
	assert.Equal(t, "ABC", NormalizeCouponCode("abc"))
}

func TestServiceCreateCoupon_RejectsNonPositive(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := NewService(repo)

	_, err := svc.CreateCoupon(context.Background(), "FREE", 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
	repo.AssertNotCalled(t, "CreateCoupon")
}
