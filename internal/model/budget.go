package model

import "time"

type Budget struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BudgetDetail is a budget together with its expenses.
type BudgetDetail struct {
	Budget
	Expenses []Expense `json:"expenses"`
}
