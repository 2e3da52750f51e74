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

type ExpenseHandler struct {
	expenses  *store.ExpenseStore
	hub       *websocket.Hub
	validator *validation.Validator
	logger    *slog.Logger
}

func NewExpenseHandler(es *store.ExpenseStore, hub *websocket.Hub, v *validation.Validator, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenses: es, hub: hub, validator: v, logger: logger}
}

func (h *ExpenseHandler) broadcast(scope access.Scope, action string, id int64) {
	if h.hub != nil {
		msg := websocket.NewMessage("expense", action, id, map[string]any{"budget_id": scope.Budget.ID})
		h.hub.BroadcastToUser(scope.User.ID, msg)
	}
}

type expenseRequest struct {
	Name   string `json:"name" validate:"required" msg:"El nombre del gasto es obligatorio"`
	Amount amount `json:"amount" validate:"required,numeric,finite,positive" msg:"required=La cantidad del gasto es obligatoria|numeric=Cantidad no válida|finite=Cantidad no válida|positive=El gasto debe ser mayor a 0"`
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	expenses, err := h.expenses.ListByBudget(r.Context(), scope.Budget.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	respond.JSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req expenseRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	amt, err := req.Amount.Float()
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Internal(err))
		return
	}

	expense, err := h.expenses.Create(r.Context(), scope.Budget.ID, req.Name, amt)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope, "created", expense.ID)
	respond.Message(w, http.StatusCreated, "Gasto creado correctamente")
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	respond.JSON(w, http.StatusOK, scope.Expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req expenseRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	amt, err := req.Amount.Float()
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Internal(err))
		return
	}

	if _, err := h.expenses.Update(r.Context(), scope.Expense.ID, req.Name, amt); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope, "updated", scope.Expense.ID)
	respond.Message(w, http.StatusOK, "Gasto actualizado correctamente")
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	if err := h.expenses.Delete(r.Context(), scope.Expense.ID); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.broadcast(scope, "deleted", scope.Expense.ID)
	respond.Message(w, http.StatusOK, "Gasto eliminado correctamente")
}
