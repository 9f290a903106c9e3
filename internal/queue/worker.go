package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/maildash/assistant-gateway/internal/repository"
)

const receiveBatch = 10

// Worker drains the usage queue into the repository. Run blocks until the
// context is cancelled, then performs one final drain so records published
// during shutdown still land.
type Worker struct {
	queue    Queue
	repo     repository.UsageRepository
	interval time.Duration
}

func NewWorker(q Queue, repo repository.UsageRepository, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{queue: q, repo: repo, interval: interval}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.drain(ctx)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.drain(drainCtx)
			cancel()
			return
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		records, err := w.queue.Receive(ctx, receiveBatch)
		if err != nil {
			slog.Warn("usage queue receive failed", "error", err)
			return
		}
		if len(records) == 0 {
			return
		}

		for _, record := range records {
			if err := w.repo.Record(ctx, record); err != nil {
				slog.Warn("usage record store failed", "id", record.ID, "error", err)
			}
		}
	}
}
