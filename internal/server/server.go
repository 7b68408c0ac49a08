package server

import (
	"context"
	"net/http"

	"tutorslot/internal/account"
	"tutorslot/internal/auth"
	"tutorslot/internal/booking"
	"tutorslot/internal/clock"
	"tutorslot/internal/config"
	"tutorslot/internal/email"
	"tutorslot/internal/entitlement"
	"tutorslot/internal/ledger"
	"tutorslot/internal/payment"
	"tutorslot/internal/slot"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, cfg *config.Config, clk *clock.Clock, emailService *email.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())

	accountRepo := account.NewRepository(db)
	slotRepo := slot.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	bookingRepo := booking.NewRepository(db, ledgerRepo)

	accountService := account.NewService(accountRepo, cfg.JWTSecret)
	ledgerService := ledger.NewService(ledgerRepo)
	bookingService := booking.NewService(bookingRepo, slotRepo, accountRepo, clk, emailService)
	entitlementService := entitlement.NewService(ledgerRepo, bookingRepo, clk)

	accountHandler := account.NewHandler(accountService)
	slotHandler := slot.NewHandler(slotRepo, clk)
	ledgerHandler := ledger.NewHandler(ledgerService)
	bookingHandler := booking.NewHandler(bookingService)
	entitlementHandler := entitlement.NewHandler(entitlementService)
	paymentHandler := payment.NewHandler(accountRepo, ledgerService, cfg.PaymentWebhookSecret)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", accountHandler.Register)
		public.POST("/login", accountHandler.Login)
		public.POST("/refresh", accountHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", accountHandler.GetMe)
		protected.GET("/slots", slotHandler.ListSlots)
		protected.GET("/slots/:slotID", slotHandler.GetSlot)
		protected.POST("/slots/:slotID/book", bookingHandler.Confirm)
		protected.GET("/bookings", bookingHandler.ListMine)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)
		protected.GET("/bookings/:bookingID/access", entitlementHandler.BookingAccess)
		protected.GET("/entitlements", entitlementHandler.Summarize)
		protected.GET("/credits", ledgerHandler.GetBalance)
		protected.GET("/credits/grants", ledgerHandler.ListGrants)
		protected.POST("/credits/coupon", ledgerHandler.RedeemCoupon)
	}

	adminMiddleware := auth.RequireRole(account.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/slots", slotHandler.CreateSlot)
		admin.GET("/slots/:slotID/bookings", bookingHandler.ListBySlot)
		admin.POST("/slots/:slotID/remind", bookingHandler.RemindSlot)
		admin.POST("/bookings/:bookingID/no-show", bookingHandler.MarkNoShow)
		admin.POST("/accounts/:accountID/credits", ledgerHandler.Adjust)
		admin.GET("/grants/:grantID", ledgerHandler.GetGrant)
		admin.POST("/coupons", ledgerHandler.CreateCoupon)
	}

	router.POST("/webhooks/payment", paymentHandler.HandlePurchase)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(emailService))

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
