package versioning

import (
	"context"
	"fmt"
	"time"

	"character-sync/core/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (m *Manager) cleanupLoop(ctx context.Context, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	backoff := retry.FixedPolicy(m.cfg.CleanupBackoff)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := m.Cleanup(ctx)
		if ctx.Err() != nil {
			return
		}
		m.recorder.IncCleanupRun(err == nil)
		if err == nil {
			continue
		}
		m.logger.Warn("Version cleanup failed, backing off",
			zap.Duration("backoff", m.cfg.CleanupBackoff),
			zap.Error(err))
		if backoff.Sleep(ctx, 1) != nil {
			return
		}
	}
}

// Cleanup trims every ledger to the retention window once. Entities are
// processed in parallel up to CleanupWorkers; evictions are archived.
func (m *Manager) Cleanup(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.CleanupWorkers)

	for _, id := range m.store.EntityIDs() {
		g.Go(func() error {
			return m.trimEntity(gctx, id)
		})
	}
	return g.Wait()
}

func (m *Manager) trimEntity(ctx context.Context, id uuid.UUID) error {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return err
	}
	evicted := m.store.Trim(id)
	unlock()

	if len(evicted) == 0 {
		return nil
	}
	m.recorder.AddEvictions(len(evicted))
	if m.archiver == nil {
		return nil
	}
	if err := m.archiver.Archive(ctx, evicted); err != nil {
		return fmt.Errorf("failed to archive %d versions of %s: %w", len(evicted), id, err)
	}
	return nil
}
