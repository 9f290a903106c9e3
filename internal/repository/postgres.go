package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/maildash/assistant-gateway/internal/cost"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	client_hash TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	cost_usd DOUBLE PRECISION NOT NULL,
	cached BOOLEAN NOT NULL DEFAULT FALSE,
	latency_ms BIGINT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records (created_at);
`

type PostgresUsageRepository struct {
	db *sql.DB
}

func NewPostgresUsageRepository(databaseURL string) (*PostgresUsageRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresUsageRepository{db: db}, nil
}

func (r *PostgresUsageRepository) Record(ctx context.Context, record cost.UsageRecord) error {
	query := `
		INSERT INTO usage_records (id, client_hash, provider, model, prompt_tokens, completion_tokens, cost_usd, cached, latency_ms, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.ClientHash,
		record.Provider,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		record.CostUSD,
		record.Cached,
		record.LatencyMs,
		record.Status,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *PostgresUsageRepository) Usage(ctx context.Context, since time.Time) ([]cost.UsageRecord, error) {
	query := `
		SELECT id, client_hash, provider, model, prompt_tokens, completion_tokens, cost_usd, cached, latency_ms, status, created_at
		FROM usage_records
		WHERE created_at > $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close()

	var records []cost.UsageRecord
	for rows.Next() {
		var record cost.UsageRecord
		err := rows.Scan(
			&record.ID,
			&record.ClientHash,
			&record.Provider,
			&record.Model,
			&record.PromptTokens,
			&record.CompletionTokens,
			&record.CostUSD,
			&record.Cached,
			&record.LatencyMs,
			&record.Status,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *PostgresUsageRepository) TotalCost(ctx context.Context, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage_records
		WHERE created_at > $1
	`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("query total cost: %w", err)
	}
	return total, nil
}

func (r *PostgresUsageRepository) Close() error {
	return r.db.Close()
}
