package ledger

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrCouponAlreadyRedeemed  = errors.New("coupon already redeemed")
	ErrCouponNotFound         = errors.New("coupon not found")
	ErrGrantNotFound          = errors.New("grant not found")
	ErrTrialAlreadyGranted    = errors.New("trial credits already granted for account")
	ErrConcurrentModification = errors.New("concurrent modification rejected")
)

// translateConcurrency maps serialization and deadlock failures to the
// typed error callers are told to retry on.
// translateGrant maps grant insert failures to their typed errors. A unique
// violation on the trial partial index means the account already used its
// once-per-account trial offer.
func translateGrant(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "credit_grants_trial_uq" {
		return ErrTrialAlreadyGranted
	}
	return translateConcurrency(err)
}

func translateConcurrency(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrConcurrentModification
		}
	}
	return err
}
