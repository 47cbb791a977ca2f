// Package rescorer keeps persisted score runs current. When work-item
// attributes change upstream, affected runs are flagged stale; the rescorer
// periodically refetches those items from the tracker and scores them again
// against the run's session weights, producing a fresh run (records are
// never mutated in place).
package rescorer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
	"github.com/MikeSquared-Agency/QVF/internal/tracker"
)

type Rescorer struct {
	store   store.Store
	events  events.Client
	tracker tracker.Client
	scorer  *scoring.Scorer
	tick    time.Duration
	logger  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, e events.Client, t tracker.Client, sc *scoring.Scorer, tick time.Duration, logger *slog.Logger) *Rescorer {
	return &Rescorer{
		store:   s,
		events:  e,
		tracker: t,
		scorer:  sc,
		tick:    tick,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

func (r *Rescorer) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.rescoreLoop(ctx)
}

func (r *Rescorer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// SetupSubscriptions registers the NATS subscription that marks runs stale
// when the tracker reports a work-item change.
func (r *Rescorer) SetupSubscriptions() {
	if r.events == nil {
		return
	}
	_ = r.events.Subscribe(events.SubjectWorkItemUpdated, func(_ string, data []byte) {
		var evt events.WorkItemUpdatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			r.logger.Warn("invalid work item event", "error", err)
			return
		}
		if evt.ItemID == "" {
			return
		}
		n, err := r.store.MarkRunsStaleByItem(context.Background(), evt.ItemID)
		if err != nil {
			r.logger.Error("failed to flag stale runs", "item_id", evt.ItemID, "error", err)
			return
		}
		if n > 0 {
			r.logger.Info("flagged stale runs", "item_id", evt.ItemID, "runs", n)
		}
	})
}

func (r *Rescorer) rescoreLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ProcessStaleRuns(ctx)
		}
	}
}

// ProcessStaleRuns re-scores every stale run once. Exported so the admin
// rescore endpoint and tests can trigger a pass synchronously.
func (r *Rescorer) ProcessStaleRuns(ctx context.Context) {
	stale := true
	runs, err := r.store.ListScoreRuns(ctx, store.RunFilter{Stale: &stale})
	if err != nil {
		r.logger.Error("failed to list stale runs", "error", err)
		return
	}

	for _, run := range runs {
		if err := r.rescoreRun(ctx, run); err != nil {
			r.logger.Error("failed to rescore run", "run_id", run.ID, "error", err)
		}
	}
}

func (r *Rescorer) rescoreRun(ctx context.Context, run *store.ScoreRun) error {
	sess, err := r.store.GetSession(ctx, run.SessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.Status != store.StatusAccepted {
		// The session was revised since the run; leave the run flagged so a
		// human can decide, but log it rather than re-scoring with weights
		// that are no longer accepted.
		r.logger.Warn("skipping stale run without accepted session", "run_id", run.ID, "session_id", run.SessionID)
		return nil
	}

	items, err := r.tracker.GetWorkItems(ctx, run.ItemIDs())
	if err != nil {
		return err
	}

	records, skipped, err := r.scorer.ScoreWorkItems(items, sess.WeightsByCriterion(), sess.Criteria)
	if err != nil {
		return err
	}

	fresh := &store.ScoreRun{
		SessionID: run.SessionID,
		Source:    "rescorer",
		Records:   records,
		Skipped:   skipped,
		Summary:   scoring.Summarize(records),
	}
	if err := r.store.CreateScoreRun(ctx, fresh); err != nil {
		return err
	}
	if err := r.store.MarkRunStale(ctx, run.ID, false); err != nil {
		return err
	}

	if r.events != nil {
		_ = r.events.Publish(events.SubjectRunRescored(fresh.ID.String()), events.RunScoredEvent{
			RunID:     fresh.ID.String(),
			SessionID: fresh.SessionID.String(),
			Items:     len(records),
			Skipped:   len(skipped),
			Timestamp: time.Now().UTC(),
		})
	}

	r.logger.Info("rescored run", "stale_run", run.ID, "fresh_run", fresh.ID, "items", len(records))
	return nil
}
