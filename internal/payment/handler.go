package payment

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"tutorslot/internal/account"
	"tutorslot/internal/ledger"
	"tutorslot/internal/logger"

	"github.com/gin-gonic/gin"
)

const secretHeader = "X-Webhook-Secret"

type Handler struct {
	accountRepo   account.Repository
	ledgerService ledger.Service
	webhookSecret string
}

func NewHandler(accountRepo account.Repository, ledgerService ledger.Service, webhookSecret string) *Handler {
	return &Handler{
		accountRepo:   accountRepo,
		ledgerService: ledgerService,
		webhookSecret: webhookSecret,
	}
}

// HandlePurchase godoc
// @Summary      Payment processor webhook
// @Description  Grants credits for a confirmed purchase. Safe to deliver more than once.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header    string             true  "Shared webhook secret"
// @Param        request           body      ConfirmedPurchase  true  "Confirmed purchase event"
// @Success      200               {object}  ledger.CreditGrant
// @Failure      400               {object}  gin.H
// @Failure      401               {object}  gin.H
// @Failure      404               {object}  gin.H
// @Failure      409               {object}  gin.H
// @Failure      500               {object}  gin.H
// @Router       /webhooks/payment [post]
func (h *Handler) HandlePurchase(c *gin.Context) {
	secret := c.GetHeader(secretHeader)
	if h.webhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var event ConfirmedPurchase
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := h.accountRepo.FindByEmail(c.Request.Context(), event.Email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve account"})
		return
	}

	grant, err := h.ledgerService.Grant(c.Request.Context(), acct.ID, ledger.GrantSpec{
		Source:    ledger.SourcePayment,
		Product:   ledger.GrantProduct(event.Product),
		Credits:   event.Credits,
		ExpiresAt: event.ExpiresAt,
		OriginKey: event.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrTrialAlreadyGranted) {
			c.JSON(http.StatusConflict, gin.H{"error": "trial already granted"})
			return
		}
		logger.Error("payment webhook grant failed",
			"email", event.Email,
			"idempotency_key", event.IdempotencyKey,
			"error", err.Error(),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant credits"})
		return
	}

	c.JSON(http.StatusOK, grant)
}
