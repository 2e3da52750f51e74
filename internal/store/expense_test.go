package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseCRUD(t *testing.T) {
	_, s := setupBudgetTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, s.users, "ana@example.com", "")
	b, err := s.budgets.Create(ctx, owner, "Home", 500)
	require.NoError(t, err)

	e, err := s.expenses.Create(ctx, b.ID, "Rent", 300)
	require.NoError(t, err)
	assert.Equal(t, b.ID, e.BudgetID)
	assert.Equal(t, "Rent", e.Name)

	updated, err := s.expenses.Update(ctx, e.ID, "Rent (June)", 320)
	require.NoError(t, err)
	assert.Equal(t, "Rent (June)", updated.Name)
	assert.Equal(t, 320.0, updated.Amount)
	assert.Equal(t, b.ID, updated.BudgetID)

	require.NoError(t, s.expenses.Delete(ctx, e.ID))
	gone, err := s.expenses.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestExpenseRequiresExistingBudget(t *testing.T) {
	_, s := setupBudgetTestDB(t)

	_, err := s.expenses.Create(context.Background(), 999, "Orphan", 10)
	assert.Error(t, err, "foreign key should reject unknown budget")
}

func TestExpenseListByBudget(t *testing.T) {
	_, s := setupBudgetTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, s.users, "ana@example.com", "")
	home, err := s.budgets.Create(ctx, owner, "Home", 500)
	require.NoError(t, err)
	trip, err := s.budgets.Create(ctx, owner, "Trip", 900)
	require.NoError(t, err)

	for _, name := range []string{"Rent", "Power", "Water"} {
		_, err := s.expenses.Create(ctx, home.ID, name, 10)
		require.NoError(t, err)
	}
	_, err = s.expenses.Create(ctx, trip.ID, "Hotel", 400)
	require.NoError(t, err)

	list, err := s.expenses.ListByBudget(ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Rent", list[0].Name)
	assert.Equal(t, "Water", list[2].Name)
}
