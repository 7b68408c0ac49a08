package ledger

import (
	"time"

	"github.com/google/uuid"
)

type GrantSource string
type GrantProduct string

const (
	SourcePayment GrantSource = "payment"
	SourceAdmin   GrantSource = "admin"
	SourceCoupon  GrantSource = "coupon"

	ProductTrial   GrantProduct = "trial"
	ProductSingle  GrantProduct = "single"
	ProductMonthly GrantProduct = "monthly"
	ProductCustom  GrantProduct = "custom"
)

const (
	// RestoreFallbackValidity is how long a fresh grant created by a
	// restoration lives when no existing grant has headroom left.
	RestoreFallbackValidity = 30 * 24 * time.Hour

	// DefaultAdjustValidityDays bounds administrative credit corrections.
	DefaultAdjustValidityDays = 30

	// couponValidityYears makes coupon grants effectively non-expiring.
	couponValidityYears = 100
)

// CreditGrant is one batch of purchased or awarded session credits.
// Total is immutable after creation; Remaining moves only through
// consume/restore and never exceeds Total.
type CreditGrant struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	AccountID   uuid.UUID    `db:"account_id" json:"account_id"`
	Source      GrantSource  `db:"source" json:"source"`
	Product     GrantProduct `db:"product" json:"product"`
	Total       int          `db:"total" json:"total"`
	Remaining   int          `db:"remaining" json:"remaining"`
	PurchasedAt time.Time    `db:"purchased_at" json:"purchased_at"`
	ExpiresAt   time.Time    `db:"expires_at" json:"expires_at"`
	OriginKey   *string      `db:"origin_key" json:"origin_key,omitempty"`
	Memo        *string      `db:"memo" json:"memo,omitempty"`
}

// Active reports whether the grant still has spendable credits.
func (g *CreditGrant) Active(now time.Time) bool {
	return g.Remaining > 0 && g.ExpiresAt.After(now)
}

// GrantSpec describes a grant to be created.
type GrantSpec struct {
	Source    GrantSource
	Product   GrantProduct
	Credits   int
	ExpiresAt time.Time
	// OriginKey is the caller-supplied idempotency key. A retried external
	// event with the same key returns the original grant instead of
	// creating a duplicate.
	OriginKey string
	Memo      string
}

type CouponRedemption struct {
	AccountID  uuid.UUID `db:"account_id" json:"account_id"`
	Code       string    `db:"code" json:"code"`
	RedeemedAt time.Time `db:"redeemed_at" json:"redeemed_at"`
}

type Coupon struct {
	Code      string    `db:"code" json:"code"`
	Credits   int       `db:"credits" json:"credits"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Balance struct {
	Remaining  int        `db:"remaining" json:"remaining"`
	NextExpiry *time.Time `db:"next_expiry" json:"next_expiry,omitempty"`
}

type RedeemCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type CreateCouponRequest struct {
	Code    string `json:"code" binding:"required"`
	Credits int    `json:"credits" binding:"required,min=1"`
}

type AdjustRequest struct {
	Delta         int    `json:"delta" binding:"required"`
	Memo          string `json:"memo" binding:"required"`
	ExpiresInDays int    `json:"expires_in_days" binding:"omitempty,min=1"`
}
