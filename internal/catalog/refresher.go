package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultRefreshSchedule = "@every 10m"

// Refresher periodically invalidates and re-warms a CachedStore.
type Refresher struct {
	cron   *cron.Cron
	store  *CachedStore
	spec   string
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewRefresher(store *CachedStore, spec string, logger *zap.Logger) *Refresher {
	if spec == "" {
		spec = DefaultRefreshSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		cron:   cron.New(),
		store:  store,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the refresh job and warms the cache once right away.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	r.cron.Start()
	r.logger.Info("catalog refresher started", zap.String("schedule", r.spec))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Refresh(ctx)
	}()

	return nil
}

// Stop halts the schedule and waits for running refreshes, including the
// initial warm, to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.wg.Wait()
	r.logger.Info("catalog refresher stopped")
}

// Refresh runs one invalidate+warm cycle. Errors are logged only.
func (r *Refresher) Refresh(ctx context.Context) {
	if err := r.store.Invalidate(ctx); err != nil {
		r.logger.Warn("catalog invalidate failed", zap.Error(err))
	}
	if err := r.store.Warm(ctx); err != nil {
		r.logger.Warn("catalog warm failed", zap.Error(err))
		return
	}
	r.logger.Debug("catalog cache warmed")
}
