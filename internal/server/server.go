package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/cashtrackr/internal/access"
	"github.com/dukerupert/cashtrackr/internal/account"
	"github.com/dukerupert/cashtrackr/internal/handler"
	"github.com/dukerupert/cashtrackr/internal/middleware"
	"github.com/dukerupert/cashtrackr/internal/respond"
	"github.com/dukerupert/cashtrackr/internal/store"
	"github.com/dukerupert/cashtrackr/internal/validation"
	ws "github.com/dukerupert/cashtrackr/internal/websocket"
)

// Options tunes the HTTP surface.
type Options struct {
	RateLimit  int
	RateWindow time.Duration

	// TrustProxy keys the rate limiter on CF-Connecting-IP/X-Forwarded-For.
	// Leave it off unless a proxy in front rewrites those headers.
	TrustProxy bool

	// WSOrigins lists host patterns allowed to open cross-origin websockets.
	WSOrigins []string
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	guard       *access.Guard
	authH       *handler.AuthHandler
	budgetH     *handler.BudgetHandler
	expenseH    *handler.ExpenseHandler
	wsH         *ws.Handler
	rateLimiter *middleware.RateLimiter
	clientIP    func(*http.Request) string
	logger      *slog.Logger
}

func New(db *sql.DB, accounts *account.Service, tokens access.TokenVerifier, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	v := validation.New()
	httpLogger := logger.With("component", "http")

	userStore := store.NewUserStore(db)
	budgetStore := store.NewBudgetStore(db)
	expenseStore := store.NewExpenseStore(db)

	clientIP := middleware.RemoteIP
	if opts.TrustProxy {
		clientIP = middleware.RealIP
	}

	return &Server{
		db:          db,
		hub:         hub,
		guard:       access.NewGuard(tokens, userStore, budgetStore, expenseStore),
		authH:       handler.NewAuthHandler(accounts, v, httpLogger),
		budgetH:     handler.NewBudgetHandler(budgetStore, expenseStore, hub, v, httpLogger),
		expenseH:    handler.NewExpenseHandler(expenseStore, hub, v, httpLogger),
		wsH:         ws.NewHandler(hub, opts.WSOrigins, logger.With("component", "websocket")),
		rateLimiter: middleware.NewRateLimiter(opts.RateLimit, opts.RateWindow),
		clientIP:    clientIP,
		logger:      logger,
	}
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	authMux := http.NewServeMux()
	s.registerAuthRoutes(authMux)
	rateLimit := middleware.RateLimit(s.rateLimiter, s.clientIP)
	mux.Handle("/api/auth/", rateLimit(authMux))

	s.registerBudgetRoutes(mux)

	userOnly := middleware.Authorize(s.logger, s.guard.UserPipeline()...)
	mux.Handle("GET /api/ws", middleware.TokenFromQuery(userOnly(s.wsH.Connect)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) registerAuthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/create-account", s.authH.CreateAccount)
	mux.HandleFunc("POST /api/auth/confirm-account", s.authH.ConfirmAccount)
	mux.HandleFunc("POST /api/auth/login", s.authH.Login)
	mux.HandleFunc("POST /api/auth/forgot-password", s.authH.ForgotPassword)
	mux.HandleFunc("POST /api/auth/validate-token", s.authH.ValidateToken)
	mux.HandleFunc("POST /api/auth/reset-password/{token}", s.authH.ResetPassword)

	authed := middleware.Authorize(s.logger, s.guard.UserPipeline()...)
	mux.Handle("GET /api/auth/user", authed(s.authH.User))
	mux.Handle("PUT /api/auth/user", authed(s.authH.UpdateProfile))
	mux.Handle("POST /api/auth/update-password", authed(s.authH.UpdatePassword))
	mux.Handle("POST /api/auth/check-password", authed(s.authH.CheckPassword))
}

func (s *Server) registerBudgetRoutes(mux *http.ServeMux) {
	user := middleware.Authorize(s.logger, s.guard.UserPipeline()...)
	budget := middleware.Authorize(s.logger, s.guard.BudgetPipeline()...)
	expense := middleware.Authorize(s.logger, s.guard.ExpensePipeline()...)

	mux.Handle("GET /api/budgets", user(s.budgetH.List))
	mux.Handle("GET /api/budgets/{$}", user(s.budgetH.List))
	mux.Handle("POST /api/budgets", user(s.budgetH.Create))
	mux.Handle("POST /api/budgets/{$}", user(s.budgetH.Create))
	mux.Handle("GET /api/budgets/{budgetId}", budget(s.budgetH.Get))
	mux.Handle("PUT /api/budgets/{budgetId}", budget(s.budgetH.Update))
	mux.Handle("DELETE /api/budgets/{budgetId}", budget(s.budgetH.Delete))

	mux.Handle("GET /api/budgets/{budgetId}/expenses", budget(s.expenseH.List))
	mux.Handle("GET /api/budgets/{budgetId}/expenses/{$}", budget(s.expenseH.List))
	mux.Handle("POST /api/budgets/{budgetId}/expenses", budget(s.expenseH.Create))
	mux.Handle("POST /api/budgets/{budgetId}/expenses/{$}", budget(s.expenseH.Create))
	mux.Handle("GET /api/budgets/{budgetId}/expenses/{expenseId}", expense(s.expenseH.Get))
	mux.Handle("PUT /api/budgets/{budgetId}/expenses/{expenseId}", expense(s.expenseH.Update))
	mux.Handle("DELETE /api/budgets/{budgetId}/expenses/{expenseId}", expense(s.expenseH.Delete))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	respond.JSON(w, code, map[string]string{"status": status})
}
