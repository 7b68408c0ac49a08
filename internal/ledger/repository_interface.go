package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Grant(ctx context.Context, accountID uuid.UUID, spec GrantSpec) (*CreditGrant, error)
	Consume(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error
	Restore(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error

	// ConsumeTx and RestoreTx run inside a caller-owned transaction so a
	// debit or refund can commit atomically with a booking state change.
	ConsumeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error
	RestoreTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error

	RedeemCoupon(ctx context.Context, accountID uuid.UUID, code string, credits int, now time.Time) (*CreditGrant, error)
	GetCoupon(ctx context.Context, code string) (*Coupon, error)
	CreateCoupon(ctx context.Context, code string, credits int) (*Coupon, error)

	ActiveBalance(ctx context.Context, accountID uuid.UUID, now time.Time) (*Balance, error)
	ListGrants(ctx context.Context, accountID uuid.UUID) ([]CreditGrant, error)
	ListActiveGrants(ctx context.Context, accountID uuid.UUID, now time.Time) ([]CreditGrant, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*CreditGrant, error)
}
