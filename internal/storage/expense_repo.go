package storage

import (
	"context"
	"fmt"

	"watchdog/internal/models"

	"github.com/google/uuid"
)

// ExpenseRepo is the LLM cost ledger. Core pipeline code treats it as a
// logging sink, never as control state.
type ExpenseRepo struct {
	db *DB
}

func NewExpenseRepo(db *DB) *ExpenseRepo {
	return &ExpenseRepo{db: db}
}

func (r *ExpenseRepo) Insert(ctx context.Context, e models.Expense) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO expenses (id, service, model, operation, input_tokens, output_tokens, cost_usd, document_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''))`,
		uuid.NewString(), e.Service, e.Model, e.Operation, e.InputTokens, e.OutputTokens, e.CostUSD, e.DocumentID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

type CostTotals struct {
	TotalUSD     float64 `json:"total_usd"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
}

func (r *ExpenseRepo) Totals(ctx context.Context) (CostTotals, error) {
	var t CostTotals
	err := r.db.Pool.QueryRow(ctx, `
SELECT COALESCE(SUM(cost_usd), 0), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
FROM expenses`).Scan(&t.TotalUSD, &t.InputTokens, &t.OutputTokens)
	if err != nil {
		return CostTotals{}, fmt.Errorf("sum expenses: %w", err)
	}
	return t, nil
}
