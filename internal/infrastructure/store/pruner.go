package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/foodlens/backend/internal/domain"
)

// PrunerConfig holds configuration for the report pruner
type PrunerConfig struct {
	// Schedule is a cron spec or descriptor such as "@daily" or "0 3 * * *"
	Schedule  string
	Retention time.Duration
	Logger    *slog.Logger
}

// Pruner periodically deletes reports older than the retention window
type Pruner struct {
	cron      *cron.Cron
	store     domain.ReportStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	started bool
}

// NewPruner creates a pruner; call Start to begin running on schedule
func NewPruner(store domain.ReportStore, config PrunerConfig) (*Pruner, error) {
	schedule := config.Schedule
	if schedule == "" {
		schedule = "@daily"
	}

	retention := config.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		cron:      cron.New(),
		store:     store,
		retention: retention,
		logger:    logger.With("component", "pruner"),
		now:       time.Now,
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("add cron job %q: %w", schedule, err)
	}
	return p, nil
}

// RunOnce prunes immediately and returns the number of reports removed
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	removed, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	p.logger.Info("pruned reports", "removed", removed, "cutoff", cutoff.Format(time.RFC3339))
	return removed, nil
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("scheduled prune failed", "error", err)
	}
}

// Start begins the schedule
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.cron.Start()
		p.started = true
	}
}

// Stop halts the schedule and waits for a running prune to finish
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		<-p.cron.Stop().Done()
		p.started = false
	}
}
