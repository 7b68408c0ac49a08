package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorslot/internal/account"
	"tutorslot/internal/ledger"
	"tutorslot/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

type MockAccountRepo struct{ mock.Mock }
type MockLedgerService struct{ mock.Mock }

func (m *MockAccountRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*account.Account, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerService) Grant(ctx context.Context, accountID uuid.UUID, spec ledger.GrantSpec) (*ledger.CreditGrant, error) {
	args := m.Called(ctx, accountID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CreditGrant), args.Error(1)
}

func (m *MockLedgerService) Consume(ctx context.Context, accountID uuid.UUID, count int) error {
	return m.Called(ctx, accountID, count).Error(0)
}

func (m *MockLedgerService) Restore(ctx context.Context, accountID uuid.UUID, count int) error {
	return m.Called(ctx, accountID, count).Error(0)
}

func (m *MockLedgerService) RedeemCode(ctx context.Context, accountID uuid.UUID, code string) (*ledger.CreditGrant, error) {
	args := m.Called(ctx, accountID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CreditGrant), args.Error(1)
}

func (m *MockLedgerService) Adjust(ctx context.Context, accountID uuid.UUID, delta int, memo string, expiresInDays int) (*ledger.CreditGrant, error) {
	args := m.Called(ctx, accountID, delta, memo, expiresInDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CreditGrant), args.Error(1)
}

func (m *MockLedgerService) ActiveBalance(ctx context.Context, accountID uuid.UUID) (*ledger.Balance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

func (m *MockLedgerService) ListGrants(ctx context.Context, accountID uuid.UUID) ([]ledger.CreditGrant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.CreditGrant), args.Error(1)
}

func (m *MockLedgerService) GetGrant(ctx context.Context, id uuid.UUID) (*ledger.CreditGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CreditGrant), args.Error(1)
}

func (m *MockLedgerService) CreateCoupon(ctx context.Context, code string, credits int) (*ledger.Coupon, error) {
	args := m.Called(ctx, code, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Coupon), args.Error(1)
}

func setupWebhookRouter(accountRepo *MockAccountRepo, ledgerService *MockLedgerService, secret string) *gin.Engine {
	router := gin.New()
	handler := NewHandler(accountRepo, ledgerService, secret)
	router.POST("/webhooks/payment", handler.HandlePurchase)
	return router
}

func purchaseBody(t *testing.T, email, key string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(ConfirmedPurchase{
		Email:          email,
		Product:        "monthly",
		Credits:        8,
		IdempotencyKey: key,
		ExpiresAt:      time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestHandlePurchase_WrongSecret(t *testing.T) {
	router := setupWebhookRouter(new(MockAccountRepo), new(MockLedgerService), "hook-secret")

	req := httptest.NewRequest("POST", "/webhooks/payment", purchaseBody(t, "dana@example.com", "cs_1"))
	req.Header.Set(secretHeader, "wrong")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlePurchase_NoConfiguredSecretRejectsAll(t *testing.T) {
	router := setupWebhookRouter(new(MockAccountRepo), new(MockLedgerService), "")

	req := httptest.NewRequest("POST", "/webhooks/payment", purchaseBody(t, "dana@example.com", "cs_1"))
	req.Header.Set(secretHeader, "")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlePurchase_UnknownAccount(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	ledgerService := new(MockLedgerService)
	router := setupWebhookRouter(accountRepo, ledgerService, "hook-secret")

	accountRepo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, account.ErrAccountNotFound)

	req := httptest.NewRequest("POST", "/webhooks/payment", purchaseBody(t, "nobody@example.com", "cs_1"))
	req.Header.Set(secretHeader, "hook-secret")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	ledgerService.AssertNotCalled(t, "Grant")
}

func TestHandlePurchase_GrantsCredits(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	ledgerService := new(MockLedgerService)
	router := setupWebhookRouter(accountRepo, ledgerService, "hook-secret")

	accountID := uuid.New()
	accountRepo.On("FindByEmail", mock.Anything, "dana@example.com").
		Return(&account.Account{ID: accountID, Email: "dana@example.com"}, nil)
	ledgerService.On("Grant", mock.Anything, accountID, mock.MatchedBy(func(spec ledger.GrantSpec) bool {
		return spec.Source == ledger.SourcePayment &&
			spec.Product == ledger.ProductMonthly &&
			spec.Credits == 8 &&
			spec.OriginKey == "cs_1"
	})).Return(&ledger.CreditGrant{ID: uuid.New(), AccountID: accountID, Total: 8, Remaining: 8}, nil)

	req := httptest.NewRequest("POST", "/webhooks/payment", purchaseBody(t, "dana@example.com", "cs_1"))
	req.Header.Set(secretHeader, "hook-secret")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ledgerService.AssertExpectations(t)
}

func TestHandlePurchase_ReplayedDeliveryStillOK(t *testing.T) {
	accountRepo := new(MockAccountRepo)
	ledgerService := new(MockLedgerService)
	router := setupWebhookRouter(accountRepo, ledgerService, "hook-secret")

	accountID := uuid.New()
	grant := &ledger.CreditGrant{ID: uuid.New(), AccountID: accountID, Total: 8, Remaining: 8}
	accountRepo.On("FindByEmail", mock.Anything, "dana@example.com").
		Return(&account.Account{ID: accountID, Email: "dana@example.com"}, nil)
	ledgerService.On("Grant", mock.Anything, accountID, mock.Anything).Return(grant, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/webhooks/payment", purchaseBody(t, "dana@example.com", "cs_1"))
		req.Header.Set(secretHeader, "hook-secret")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var got ledger.CreditGrant
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, grant.ID, got.ID)
	}
}

func TestHandlePurchase_BadPayload(t *testing.T) {
	router := setupWebhookRouter(new(MockAccountRepo), new(MockLedgerService), "hook-secret")

	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewBufferString(`{"email":"not-an-email"}`))
	req.Header.Set(secretHeader, "hook-secret")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
