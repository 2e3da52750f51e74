package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/cashtrackr/internal/access"
	"github.com/dukerupert/cashtrackr/internal/respond"
)

// ScopedHandlerFunc is a handler that receives the entities resolved for
// its request.
type ScopedHandlerFunc func(w http.ResponseWriter, r *http.Request, scope access.Scope)

// Authorize runs the gates against the request and calls next with the
// resulting scope. A failing gate writes its error and next never runs.
func Authorize(logger *slog.Logger, gates ...access.Gate) func(ScopedHandlerFunc) http.Handler {
	return func(next ScopedHandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := access.Request{
				Authorization: r.Header.Get("Authorization"),
				BudgetID:      r.PathValue("budgetId"),
				ExpenseID:     r.PathValue("expenseId"),
			}
			scope, err := access.Run(r.Context(), req, gates...)
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}
			next(w, r, scope)
		})
	}
}

// TokenFromQuery copies a ?token= query parameter into the Authorization
// header when the header is absent. Browsers cannot set headers on
// websocket handshakes.
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}
