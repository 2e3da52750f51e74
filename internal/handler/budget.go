package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/cashtrackr/internal/access"
	"github.com/dukerupert/cashtrackr/internal/apperr"
	"github.com/dukerupert/cashtrackr/internal/model"
	"github.com/dukerupert/cashtrackr/internal/respond"
	"github.com/dukerupert/cashtrackr/internal/store"
	"github.com/dukerupert/cashtrackr/internal/validation"
	"github.com/dukerupert/cashtrackr/internal/websocket"
)

type BudgetHandler struct {
	budgets   *store.BudgetStore
	expenses  *store.ExpenseStore
	hub       *websocket.Hub
	validator *validation.Validator
	logger    *slog.Logger
}

func NewBudgetHandler(bs *store.BudgetStore, es *store.ExpenseStore, hub *websocket.Hub, v *validation.Validator, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{budgets: bs, expenses: es, hub: hub, validator: v, logger: logger}
}

func (h *BudgetHandler) broadcast(userID int64, action string, id int64) {
	if h.hub != nil {
		h.hub.BroadcastToUser(userID, websocket.NewMessage("budget", action, id, nil))
	}
}

type budgetRequest struct {
	Name   string `json:"name" validate:"required" msg:"El nombre del presupuesto es obligatorio"`
	Amount amount `json:"amount" validate:"required,numeric,finite,positive" msg:"required=La cantidad del presupuesto es obligatoria|numeric=Cantidad no válida|finite=Cantidad no válida|positive=El Presupuesto debe ser mayor a 0"`
}

func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	budgets, err := h.budgets.ListByUser(r.Context(), scope.User.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if budgets == nil {
		budgets = []model.Budget{}
	}
	respond.JSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req budgetRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	amt, err := req.Amount.Float()
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Internal(err))
		return
	}

	budget, err := h.budgets.Create(r.Context(), scope.User.ID, req.Name, amt)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope.User.ID, "created", budget.ID)
	respond.Message(w, http.StatusCreated, "Presupuesto creado correctamente")
}

// Get returns the budget with its expenses.
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	expenses, err := h.expenses.ListByBudget(r.Context(), scope.Budget.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	respond.JSON(w, http.StatusOK, model.BudgetDetail{Budget: *scope.Budget, Expenses: expenses})
}

func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req budgetRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	amt, err := req.Amount.Float()
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Internal(err))
		return
	}

	if _, err := h.budgets.Update(r.Context(), scope.Budget.ID, req.Name, amt); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope.User.ID, "updated", scope.Budget.ID)
	respond.Message(w, http.StatusOK, "Presupuesto actualizado correctamente")
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	if err := h.budgets.Delete(r.Context(), scope.Budget.ID); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope.User.ID, "deleted", scope.Budget.ID)
	respond.Message(w, http.StatusOK, "Presupuesto eliminado")
}
