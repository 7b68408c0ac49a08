package payment

import "time"

// ConfirmedPurchase is the payload the external payment processor delivers
// once a checkout completes. IdempotencyKey is the processor's session id;
// re-deliveries with the same key must not create a second grant.
type ConfirmedPurchase struct {
	Email          string    `json:"email" binding:"required,email"`
	Product        string    `json:"product" binding:"required,oneof=trial single monthly custom"`
	Credits        int       `json:"credits" binding:"required,min=1"`
	IdempotencyKey string    `json:"idempotency_key" binding:"required"`
	ExpiresAt      time.Time `json:"expires_at" binding:"required"`
}
