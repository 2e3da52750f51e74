package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/cashtrackr/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func scanExpense(scanner interface{ Scan(...any) error }) (*model.Expense, error) {
	var e model.Expense
	err := scanner.Scan(&e.ID, &e.Name, &e.Amount, &e.BudgetID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const expenseCols = `id, name, amount, budget_id, created_at, updated_at`

func (s *ExpenseStore) Create(ctx context.Context, budgetID int64, name string, amount float64) (*model.Expense, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (name, amount, budget_id) VALUES (?, ?, ?)`,
		name, amount, budgetID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ExpenseStore) GetByID(ctx context.Context, id int64) (*model.Expense, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListByBudget returns the budget's expenses in insertion order.
func (s *ExpenseStore) ListByBudget(ctx context.Context, budgetID int64) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE budget_id = ? ORDER BY id`,
		budgetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *ExpenseStore) Update(ctx context.Context, id int64, name string, amount float64) (*model.Expense, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount = ? WHERE id = ?`,
		name, amount, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ExpenseStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
