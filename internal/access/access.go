// Package access resolves and authorizes the entities a request touches.
//
// A request passes through an ordered list of gates. Each gate reads the
// Scope built so far, adds what it resolves and hands the result to the
// next one. The first failing gate ends the run.
package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/cashtrackr/internal/apperr"
	"github.com/dukerupert/cashtrackr/internal/credential"
	"github.com/dukerupert/cashtrackr/internal/model"
)

var (
	ErrNoAuthorization  = apperr.New(apperr.KindUnauthorized, http.StatusUnauthorized, "No Autorizado")
	ErrInvalidToken     = apperr.New(apperr.KindInvalidToken, http.StatusUnauthorized, "Token no válido")
	ErrInvalidID        = apperr.New(apperr.KindValidation, http.StatusBadRequest, "ID no válido")
	ErrBudgetNotFound   = apperr.New(apperr.KindNotFound, http.StatusNotFound, "Presupuesto no encontrado")
	ErrBudgetForbidden  = apperr.New(apperr.KindForbidden, http.StatusUnauthorized, "Acción no válida")
	ErrExpenseNotFound  = apperr.New(apperr.KindNotFound, http.StatusNotFound, "Gasto no encontrado")
	ErrExpenseForbidden = apperr.New(apperr.KindForbidden, http.StatusForbidden, "Acción no Válida")
)

// Request is the slice of an HTTP request the gates look at.
type Request struct {
	Authorization string
	BudgetID      string
	ExpenseID     string
}

// Scope accumulates what the gates have resolved.
type Scope struct {
	User    *model.Profile
	Budget  *model.Budget
	Expense *model.Expense
}

type Gate func(ctx context.Context, req Request, scope Scope) (Scope, error)

// Run applies the gates in order and returns the final scope.
func Run(ctx context.Context, req Request, gates ...Gate) (Scope, error) {
	var scope Scope
	for _, gate := range gates {
		var err error
		scope, err = gate(ctx, req, scope)
		if err != nil {
			return Scope{}, err
		}
	}
	return scope, nil
}

type TokenVerifier interface {
	Verify(token string) (*credential.Claims, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type BudgetFinder interface {
	GetByID(ctx context.Context, id int64) (*model.Budget, error)
}

type ExpenseFinder interface {
	GetByID(ctx context.Context, id int64) (*model.Expense, error)
}

// Guard holds what the gates need to resolve entities.
type Guard struct {
	tokens   TokenVerifier
	users    UserFinder
	budgets  BudgetFinder
	expenses ExpenseFinder
}

func NewGuard(tokens TokenVerifier, users UserFinder, budgets BudgetFinder, expenses ExpenseFinder) *Guard {
	return &Guard{tokens: tokens, users: users, budgets: budgets, expenses: expenses}
}

func (g *Guard) UserPipeline() []Gate {
	return []Gate{g.Authenticate}
}

func (g *Guard) BudgetPipeline() []Gate {
	return []Gate{g.Authenticate, g.ResolveBudget, CheckBudgetOwnership}
}

func (g *Guard) ExpensePipeline() []Gate {
	return append(g.BudgetPipeline(), g.ResolveExpense, CheckExpenseMembership)
}

// Authenticate verifies the bearer JWT and loads the user it names.
func (g *Guard) Authenticate(ctx context.Context, req Request, scope Scope) (Scope, error) {
	if req.Authorization == "" {
		return scope, ErrNoAuthorization
	}
	token, ok := bearerToken(req.Authorization)
	if !ok {
		return scope, ErrInvalidToken
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return scope, ErrInvalidToken
	}

	user, err := g.users.GetByID(ctx, claims.ID)
	if err != nil {
		return scope, apperr.Internal(fmt.Errorf("authenticate: %w", err))
	}
	if user == nil {
		return scope, ErrInvalidToken
	}

	profile := user.Profile()
	scope.User = &profile
	return scope, nil
}

func (g *Guard) ResolveBudget(ctx context.Context, req Request, scope Scope) (Scope, error) {
	id, err := parseID("budgetId", req.BudgetID)
	if err != nil {
		return scope, err
	}
	budget, err := g.budgets.GetByID(ctx, id)
	if err != nil {
		return scope, apperr.Internal(fmt.Errorf("resolve budget: %w", err))
	}
	if budget == nil {
		return scope, ErrBudgetNotFound
	}
	scope.Budget = budget
	return scope, nil
}

func CheckBudgetOwnership(_ context.Context, _ Request, scope Scope) (Scope, error) {
	if scope.User == nil || scope.Budget == nil {
		return scope, apperr.Internal(errors.New("budget ownership checked before resolution"))
	}
	if scope.Budget.UserID != scope.User.ID {
		return scope, ErrBudgetForbidden
	}
	return scope, nil
}

func (g *Guard) ResolveExpense(ctx context.Context, req Request, scope Scope) (Scope, error) {
	id, err := parseID("expenseId", req.ExpenseID)
	if err != nil {
		return scope, err
	}
	expense, err := g.expenses.GetByID(ctx, id)
	if err != nil {
		return scope, apperr.Internal(fmt.Errorf("resolve expense: %w", err))
	}
	if expense == nil {
		return scope, ErrExpenseNotFound
	}
	scope.Expense = expense
	return scope, nil
}

func CheckExpenseMembership(_ context.Context, _ Request, scope Scope) (Scope, error) {
	if scope.Budget == nil || scope.Expense == nil {
		return scope, apperr.Internal(errors.New("expense membership checked before resolution"))
	}
	if scope.Expense.BudgetID != scope.Budget.ID {
		return scope, ErrExpenseForbidden
	}
	return scope, nil
}

// bearerToken extracts the credential from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		e := *ErrInvalidID
		e.Fields = []apperr.FieldError{{Field: field, Msg: ErrInvalidID.Message}}
		return 0, &e
	}
	return id, nil
}
