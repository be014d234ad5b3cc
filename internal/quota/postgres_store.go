package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vireoai/convo-gateway/internal/tenant"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetSubscription(ctx context.Context, tenantID string) (*tenant.Subscription, error) {
	query := `
		SELECT tenant_id, plan, messages_today, last_message_date
		FROM tenant_subscriptions
		WHERE tenant_id = $1
	`

	var sub tenant.Subscription
	var plan string
	err := s.db.QueryRow(ctx, query, tenantID).Scan(
		&sub.TenantID, &plan, &sub.MessagesToday, &sub.LastMessageDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	sub.Plan = tenant.ParsePlan(plan)

	return &sub, nil
}

// ReserveFree runs the check-and-increment as a single conditional upsert so
// concurrent requests from one tenant can never both take the last unit. The
// WHERE guard makes the UPDATE a no-op once today's count is at the limit;
// zero rows back means the allowance is spent.
func (s *PostgresStore) ReserveFree(ctx context.Context, tenantID string, limit int) (int, error) {
	query := `
		INSERT INTO tenant_subscriptions (tenant_id, plan, messages_today, last_message_date)
		VALUES ($1, 'free', 1, CURRENT_DATE)
		ON CONFLICT (tenant_id) DO UPDATE SET
			messages_today = CASE
				WHEN tenant_subscriptions.last_message_date < CURRENT_DATE THEN 1
				ELSE tenant_subscriptions.messages_today + 1
			END,
			last_message_date = CURRENT_DATE
		WHERE tenant_subscriptions.messages_today < $2
		   OR tenant_subscriptions.last_message_date < CURRENT_DATE
		RETURNING messages_today
	`

	var count int
	err := s.db.QueryRow(ctx, query, tenantID, limit).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLimitReached
		}
		return 0, fmt.Errorf("failed to reserve quota: %w", err)
	}

	return count, nil
}
