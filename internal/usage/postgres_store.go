package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LogUsage(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO usage_logs (
			tenant_id, session_id, model, pool, plan,
			input_tokens, output_tokens, total_tokens,
			input_cost, output_cost, total_cost,
			latency_ms, success, usage_missing
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		entry.TenantID, entry.SessionID, entry.Model, entry.Pool, entry.Plan,
		entry.InputTokens, entry.OutputTokens, entry.TotalTokens,
		entry.InputCost, entry.OutputCost, entry.TotalCost,
		entry.LatencyMs, entry.Success, entry.UsageMissing,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetUsageByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*Entry, error) {
	query := `
		SELECT id, tenant_id, session_id, model, pool, plan,
		       input_tokens, output_tokens, total_tokens,
		       input_cost, output_cost, total_cost,
		       latency_ms, success, usage_missing, created_at
		FROM usage_logs
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage logs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.SessionID, &e.Model, &e.Pool, &e.Plan,
			&e.InputTokens, &e.OutputTokens, &e.TotalTokens,
			&e.InputCost, &e.OutputCost, &e.TotalCost,
			&e.LatencyMs, &e.Success, &e.UsageMissing, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return entries, nil
}

func (s *PostgresStore) GetTotalCostByTenant(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(total_cost), 0)
		FROM usage_logs
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
	`
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, query, tenantID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get total cost: %w", err)
	}

	return total, nil
}
