package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/cashtrackr/internal/model"
)

type BudgetStore struct {
	db *sql.DB
}

func NewBudgetStore(db *sql.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func scanBudget(scanner interface{ Scan(...any) error }) (*model.Budget, error) {
	var b model.Budget
	err := scanner.Scan(&b.ID, &b.Name, &b.Amount, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const budgetCols = `id, name, amount, user_id, created_at, updated_at`

func (s *BudgetStore) Create(ctx context.Context, userID int64, name string, amount float64) (*model.Budget, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (name, amount, user_id) VALUES (?, ?, ?)`,
		name, amount, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BudgetStore) GetByID(ctx context.Context, id int64) (*model.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// ListByUser returns the user's budgets, newest first.
func (s *BudgetStore) ListByUser(ctx context.Context, userID int64) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetCols+` FROM budgets WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// Update overwrites the mutable fields. The owner never changes.
func (s *BudgetStore) Update(ctx context.Context, id int64, name string, amount float64) (*model.Budget, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET name = ?, amount = ? WHERE id = ?`,
		name, amount, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the budget; its expenses go with it via ON DELETE CASCADE.
func (s *BudgetStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}
