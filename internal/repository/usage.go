// Package repository persists usage records. Postgres in production,
// in-memory for development and tests.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/maildash/assistant-gateway/internal/cost"
)

type UsageRepository interface {
	Record(ctx context.Context, record cost.UsageRecord) error
	Usage(ctx context.Context, since time.Time) ([]cost.UsageRecord, error)
	TotalCost(ctx context.Context, since time.Time) (float64, error)
}

type InMemoryUsageRepository struct {
	mu      sync.RWMutex
	records []cost.UsageRecord
}

func NewInMemoryUsageRepository() *InMemoryUsageRepository {
	return &InMemoryUsageRepository{}
}

func (r *InMemoryUsageRepository) Record(ctx context.Context, record cost.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *InMemoryUsageRepository) Usage(ctx context.Context, since time.Time) ([]cost.UsageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []cost.UsageRecord
	for _, rec := range r.records {
		if rec.Timestamp.After(since) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (r *InMemoryUsageRepository) TotalCost(ctx context.Context, since time.Time) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, rec := range r.records {
		if rec.Timestamp.After(since) {
			total += rec.CostUSD
		}
	}
	return total, nil
}
