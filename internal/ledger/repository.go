package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const grantColumns = `id, account_id, source, product, total, remaining, purchased_at, expires_at, origin_key, memo`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Grant creates a new credit batch. When the spec carries an origin key and a
// grant with that key already exists for the account, the existing grant is
// returned unchanged, whatever its product: payment webhooks are delivered
// at-least-once, trial purchases included. Trial uniqueness itself is a
// partial index, so only a genuinely new trial grant can trip it.
func (r *repository) Grant(ctx context.Context, accountID uuid.UUID, spec GrantSpec) (*CreditGrant, error) {
	grant := &CreditGrant{}

	if spec.OriginKey != "" {
		err := r.db.GetContext(ctx, grant,
			`SELECT `+grantColumns+` FROM credit_grants WHERE account_id = $1 AND origin_key = $2`,
			accountID, spec.OriginKey,
		)
		if err == nil {
			return grant, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	var originKey, memo *string
	if spec.OriginKey != "" {
		originKey = &spec.OriginKey
	}
	if spec.Memo != "" {
		memo = &spec.Memo
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO credit_grants (account_id, source, product, total, remaining, expires_at, origin_key, memo)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
		ON CONFLICT (account_id, origin_key) WHERE origin_key IS NOT NULL DO NOTHING
		RETURNING `+grantColumns,
		accountID, spec.Source, spec.Product, spec.Credits, spec.ExpiresAt, originKey, memo,
	).StructScan(grant)

	if errors.Is(err, sql.ErrNoRows) && spec.OriginKey != "" {
		// Lost a race with a concurrent delivery of the same event. Hand back
		// the grant the winner made.
		err = r.db.GetContext(ctx, grant,
			`SELECT `+grantColumns+` FROM credit_grants WHERE account_id = $1 AND origin_key = $2`,
			accountID, spec.OriginKey,
		)
	}
	if err != nil {
		return nil, translateGrant(err)
	}

	return grant, nil
}

func (r *repository) Consume(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.ConsumeTx(ctx, tx, accountID, count, now); err != nil {
		return err
	}

	return translateConcurrency(tx.Commit())
}

// ConsumeTx debits count credits soonest-expiring-first across the account's
// active grants. The grants are locked for the duration of the transaction so
// two concurrent debits cannot both observe the same balance. The debit is
// all-or-nothing: on insufficient balance no grant is touched.
func (r *repository) ConsumeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error {
	var grants []CreditGrant
	err := tx.SelectContext(ctx, &grants, `
		SELECT `+grantColumns+`
		FROM credit_grants
		WHERE account_id = $1 AND remaining > 0 AND expires_at > $2
		ORDER BY expires_at ASC, id ASC
		FOR UPDATE
	`, accountID, now)
	if err != nil {
		return translateConcurrency(err)
	}

	available := 0
	for _, g := range grants {
		available += g.Remaining
	}
	if available < count {
		return ErrInsufficientCredits
	}

	left := count
	for _, g := range grants {
		if left == 0 {
			break
		}
		debit := g.Remaining
		if debit > left {
			debit = left
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE credit_grants SET remaining = remaining - $1 WHERE id = $2`,
			debit, g.ID,
		)
		if err != nil {
			return translateConcurrency(err)
		}
		left -= debit
	}

	return nil
}

func (r *repository) Restore(ctx context.Context, accountID uuid.UUID, count int, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.RestoreTx(ctx, tx, accountID, count, now); err != nil {
		return err
	}

	return translateConcurrency(tx.Commit())
}

// RestoreTx credits count units back, preferring the soonest-expiring
// unexpired grant with headroom so the customer's effective expiry stays
// unchanged. Whatever cannot be placed lands in a fresh administrative grant:
// a cancellation refund is never silently dropped.
func (r *repository) RestoreTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, count int, now time.Time) error {
	var grants []CreditGrant
	err := tx.SelectContext(ctx, &grants, `
		SELECT `+grantColumns+`
		FROM credit_grants
		WHERE account_id = $1 AND expires_at > $2 AND remaining < total
		ORDER BY expires_at ASC, id ASC
		FOR UPDATE
	`, accountID, now)
	if err != nil {
		return translateConcurrency(err)
	}

	left := count
	for _, g := range grants {
		if left == 0 {
			break
		}
		headroom := g.Total - g.Remaining
		credit := headroom
		if credit > left {
			credit = left
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE credit_grants SET remaining = remaining + $1 WHERE id = $2`,
			credit, g.ID,
		)
		if err != nil {
			return translateConcurrency(err)
		}
		left -= credit
	}

	if left > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credit_grants (account_id, source, product, total, remaining, expires_at, memo)
			VALUES ($1, 'admin', 'custom', $2, $2, $3, 'restoration overflow')
		`, accountID, left, now.Add(RestoreFallbackValidity))
		if err != nil {
			return translateConcurrency(err)
		}
	}

	return nil
}

// RedeemCoupon records the redemption and creates the granted credits as one
// atomic unit. The (account_id, code) primary key settles retries and races:
// exactly one caller wins, every other attempt gets ErrCouponAlreadyRedeemed.
func (r *repository) RedeemCoupon(ctx context.Context, accountID uuid.UUID, code string, credits int, now time.Time) (*CreditGrant, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO coupon_redemptions (account_id, code)
		VALUES ($1, $2)
		ON CONFLICT (account_id, code) DO NOTHING
	`, accountID, code)
	if err != nil {
		return nil, translateConcurrency(err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		return nil, ErrCouponAlreadyRedeemed
	}

	grant := &CreditGrant{}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO credit_grants (account_id, source, product, total, remaining, expires_at, memo)
		VALUES ($1, 'coupon', 'custom', $2, $2, $3, $4)
		RETURNING `+grantColumns,
		accountID, credits, now.AddDate(couponValidityYears, 0, 0), "coupon "+code,
	).StructScan(grant)
	if err != nil {
		return nil, translateConcurrency(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConcurrency(err)
	}

	return grant, nil
}

func (r *repository) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	coupon := &Coupon{}
	err := r.db.GetContext(ctx, coupon,
		`SELECT code, credits, active, created_at FROM coupons WHERE code = $1 AND active`,
		code,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *repository) CreateCoupon(ctx context.Context, code string, credits int) (*Coupon, error) {
	coupon := &Coupon{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO coupons (code, credits)
		VALUES ($1, $2)
		RETURNING code, credits, active, created_at
	`, code, credits).StructScan(coupon)
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *repository) ActiveBalance(ctx context.Context, accountID uuid.UUID, now time.Time) (*Balance, error) {
	balance := &Balance{}
	err := r.db.GetContext(ctx, balance, `
		SELECT COALESCE(SUM(remaining), 0) AS remaining, MIN(expires_at) AS next_expiry
		FROM credit_grants
		WHERE account_id = $1 AND remaining > 0 AND expires_at > $2
	`, accountID, now)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (r *repository) ListGrants(ctx context.Context, accountID uuid.UUID) ([]CreditGrant, error) {
	var grants []CreditGrant
	err := r.db.SelectContext(ctx, &grants, `
		SELECT `+grantColumns+`
		FROM credit_grants
		WHERE account_id = $1
		ORDER BY expires_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) ListActiveGrants(ctx context.Context, accountID uuid.UUID, now time.Time) ([]CreditGrant, error) {
	var grants []CreditGrant
	err := r.db.SelectContext(ctx, &grants, `
		SELECT `+grantColumns+`
		FROM credit_grants
		WHERE account_id = $1 AND remaining > 0 AND expires_at > $2
		ORDER BY expires_at ASC, id ASC
	`, accountID, now)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) GetGrant(ctx context.Context, id uuid.UUID) (*CreditGrant, error) {
	grant := &CreditGrant{}
	err := r.db.GetContext(ctx, grant,
		`SELECT `+grantColumns+` FROM credit_grants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}
