package ledger

import (
	"errors"
	"net/http"

	"tutorslot/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetBalance godoc
// @Summary      Get active credit balance
// @Description  Returns the remaining credits and the next expiry across the account's active grants.
// @Tags         credits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Balance
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /credits [get]
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	balance, err := h.service.ActiveBalance(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, balance)
}

// ListGrants godoc
// @Summary      List credit grants
// @Description  Returns every grant on the account, expired ones included, sorted by expiry.
// @Tags         credits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   CreditGrant
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /credits/grants [get]
func (h *Handler) ListGrants(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	grants, err := h.service.ListGrants(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load grants"})
		return
	}

	c.JSON(http.StatusOK, grants)
}

// RedeemCoupon godoc
// @Summary      Redeem a coupon code
// @Description  Redeems the code once per account and credits its value as a new grant.
// @Tags         credits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      RedeemCouponRequest  true  "Coupon code"
// @Success      201      {object}  CreditGrant
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /credits/coupon [post]
func (h *Handler) RedeemCoupon(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
		return
	}

	var req RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grant, err := h.service.RedeemCode(c.Request.Context(), accountID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrCouponNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
		case errors.Is(err, ErrCouponAlreadyRedeemed):
			c.JSON(http.StatusConflict, gin.H{"error": "coupon already redeemed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to redeem coupon"})
		}
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// GetGrant godoc
// @Summary      Look up a credit grant
// @Description  Administrative lookup of a single grant by id, for support and dispute handling.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        grantID  path      string  true  "Grant ID"
// @Success      200      {object}  CreditGrant
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/grants/{grantID} [get]
func (h *Handler) GetGrant(c *gin.Context) {
	grantID, err := uuid.Parse(c.Param("grantID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant ID"})
		return
	}

	grant, err := h.service.GetGrant(c.Request.Context(), grantID)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "grant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load grant"})
		return
	}

	c.JSON(http.StatusOK, grant)
}

// Adjust godoc
// @Summary      Adjust account credits
// @Description  Administrative correction. Positive delta grants a short-lived batch; negative delta consumes.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        accountID  path      string         true  "Account ID"
// @Param        request    body      AdjustRequest  true  "Adjustment"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /admin/accounts/{accountID}/credits [post]
func (h *Handler) Adjust(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grant, err := h.service.Adjust(c.Request.Context(), accountID, req.Delta, req.Memo, req.ExpiresInDays)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientCredits):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient credits"})
		case errors.Is(err, ErrInvalidCount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "delta must be non-zero"})
		case errors.Is(err, ErrConcurrentModification):
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to adjust credits"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"delta": req.Delta, "grant": grant})
}

// CreateCoupon godoc
// @Summary      Create a coupon code
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateCouponRequest  true  "Coupon"
// @Success      201      {object}  Coupon
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/coupons [post]
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), req.Code, req.Credits)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create coupon"})
		return
	}

	c.JSON(http.StatusCreated, coupon)
}
