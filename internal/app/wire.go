package app

import (
	"log/slog"

	"github.com/fitgrid/platform/internal/auth"
	"github.com/fitgrid/platform/internal/gateway"
	"github.com/fitgrid/platform/internal/handler"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/fitgrid/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool        *pgxpool.Pool
	JWTMgr      *auth.JWTManager
	Logger      *slog.Logger
	Rails       *gateway.Registry
	CORSOrigins string
}

// Services groups the assembled service layer so binaries can reuse it for
// background workers without re-wiring.
type Services struct {
	Issuer      *service.Issuer
	Reconciler  *service.Reconciler
	Credentials *service.CredentialAdmin
	TxRepo      repository.TransactionRepository
	OutboxRepo  repository.OutboxRepository
}

// NewServices assembles the repositories and services.
func NewServices(deps RouterDeps) *Services {
	txRepo := repository.NewTransactionRepository()
	logRepo := repository.NewWebhookLogRepository()
	credsRepo := repository.NewCredentialRepository()
	outboxRepo := repository.NewOutboxRepository()

	return &Services{
		Issuer:      service.NewIssuer(deps.Pool, deps.Rails, txRepo, credsRepo, deps.Logger),
		Reconciler:  service.NewReconciler(deps.Pool, txRepo, logRepo, outboxRepo, deps.Logger),
		Credentials: service.NewCredentialAdmin(deps.Pool, credsRepo, deps.Logger),
		TxRepo:      txRepo,
		OutboxRepo:  outboxRepo,
	}
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps, svcs *Services) chi.Router {
	pool := deps.Pool
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Handlers
	paymentHandler := handler.NewPaymentHandler(svcs.Issuer)
	webhookHandler := handler.NewWebhookHandler(svcs.Reconciler, logger)
	adminHandler := handler.NewAdminHandler(svcs.Credentials, svcs.Reconciler)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Gateway callbacks (no auth, raw body)
	r.Post("/webhooks/gateway", webhookHandler.HandleGatewayWebhook)

	// Tenant service routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateService(jwtMgr))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/reference", paymentHandler.IssueReference)
			r.Post("/push", paymentHandler.IssuePush)
			r.Get("/", paymentHandler.ListPayments)
			r.Get("/{id}", paymentHandler.GetPayment)
		})
	})

	// Operator routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.Route("/tenants/{tenantID}/credentials", func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))
			r.Put("/", adminHandler.UpsertCredentials)
			r.Get("/{rail}", adminHandler.GetCredentials)
		})

		r.Get("/webhooks/unmatched", adminHandler.ListUnmatchedWebhooks)
	})

	return r
}
