package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// ErrInvalidOrchestratorConfig indicates an unusable orchestrator configuration.
var ErrInvalidOrchestratorConfig = errors.New("catalogsync: invalid orchestrator configuration")

// OrchestratorConfig holds run-level parameters.
type OrchestratorConfig struct {
	// Mode selects the sub-operations the run performs.
	Mode syncrun.Mode
	// Workers is the fixed worker pool size.
	Workers int
	// MaxDetails bounds the per-entity outcome log kept in the summary.
	MaxDetails int
	// ReporterBuffer is the progress channel buffer size.
	ReporterBuffer int
}

// DefaultOrchestratorConfig returns orchestrator defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Mode:           syncrun.ModeFull,
		Workers:        4,
		MaxDetails:     1000,
		ReporterBuffer: 256,
	}
}

// Validate validates the configuration.
func (c OrchestratorConfig) Validate() error {
	if !c.Mode.IsValid() {
		return ErrInvalidOrchestratorConfig
	}
	if c.Workers <= 0 || c.Workers > 64 {
		return ErrInvalidOrchestratorConfig
	}
	if c.MaxDetails <= 0 {
		return ErrInvalidOrchestratorConfig
	}
	return nil
}

// Orchestrator drives one synchronization run: it snapshots the destination
// catalog, loads the source records, dispatches reconciliation tasks to a
// fixed worker pool, and aggregates the results into a summary. Cancellation
// is cooperative: the flag is checked between tasks, in-flight tasks run to
// completion, and no new task is dispatched once the flag is set.
type Orchestrator struct {
	source catalog.SourceCatalog
	dest   catalog.DestinationCatalog
	exec   *retry.Executor
	cfg    OrchestratorConfig
	rcfg   ReconcilerConfig
	logger *zap.Logger

	runID     uuid.UUID
	state     atomic.Value // syncrun.State
	cancelled atomic.Bool
	stats     *syncrun.Stats
	reporter  *syncrun.Reporter

	detailsMu sync.Mutex
	details   []syncrun.Outcome
}

// NewOrchestrator creates an Orchestrator for one run.
func NewOrchestrator(
	source catalog.SourceCatalog,
	dest catalog.DestinationCatalog,
	exec *retry.Executor,
	cfg OrchestratorConfig,
	rcfg ReconcilerConfig,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := rcfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		source:   source,
		dest:     dest,
		exec:     exec,
		cfg:      cfg,
		rcfg:     rcfg,
		logger:   logger,
		runID:    uuid.New(),
		stats:    syncrun.NewStats(0),
		reporter: syncrun.NewReporter(cfg.ReporterBuffer),
	}
	o.state.Store(syncrun.StateInit)
	return o, nil
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() uuid.UUID {
	return o.runID
}

// State returns the current run state.
func (o *Orchestrator) State() syncrun.State {
	return o.state.Load().(syncrun.State)
}

// Stats returns the current counter snapshot.
func (o *Orchestrator) Stats() syncrun.StatsSnapshot {
	return o.stats.Snapshot()
}

// Events returns the progress stream. Closed when the run finishes.
func (o *Orchestrator) Events() <-chan syncrun.ProgressEvent {
	return o.reporter.Events()
}

// Cancel sets the set-once cancellation flag. In-flight tasks finish; no new
// task starts.
func (o *Orchestrator) Cancel() {
	if o.cancelled.CompareAndSwap(false, true) {
		o.logger.Info("run cancellation requested", zap.String("run_id", o.runID.String()))
	}
}

// Run executes the synchronization and always returns a summary covering the
// entities processed so far, even when it also returns a run-level error.
func (o *Orchestrator) Run(ctx context.Context) (*syncrun.Summary, error) {
	started := time.Now()
	defer o.reporter.Close()

	o.transition(syncrun.StateLoadingDestination, "building destination snapshot")
	index, err := o.buildIndex(ctx)
	if err != nil {
		return o.finishFatal(started, fmt.Errorf("load destination catalog: %w", err))
	}
	o.logger.Info("destination snapshot ready",
		zap.String("run_id", o.runID.String()),
		zap.Int("keys", index.Len()),
	)

	o.transition(syncrun.StateLoadingSource, "loading source records")
	records, err := o.loadSource(ctx)
	if err != nil {
		return o.finishFatal(started, fmt.Errorf("load source catalog: %w", err))
	}

	o.stats.SetTotal(len(records))
	o.logger.Info("source records loaded",
		zap.String("run_id", o.runID.String()),
		zap.Int("records", len(records)),
		zap.String("mode", o.cfg.Mode.String()),
	)

	reconciler, err := NewReconciler(o.source, o.dest, index, o.exec, o.rcfg, o.logger)
	if err != nil {
		return o.finishFatal(started, err)
	}

	o.transition(syncrun.StateDispatching, "dispatching tasks")
	var fatal atomic.Value
	workers := pool.New().WithMaxGoroutines(o.cfg.Workers)
	for _, rec := range records {
		if o.cancelled.Load() {
			break
		}
		if fatal.Load() != nil {
			break
		}
		rec := rec
		workers.Go(func() {
			outcome, err := reconciler.Process(ctx, rec, o.cfg.Mode)
			o.record(outcome)
			if err != nil {
				// Run-fatal: stop dispatching, let in-flight tasks finish.
				fatal.CompareAndSwap(nil, err)
				o.Cancel()
			}
		})
	}
	workers.Wait()

	o.transition(syncrun.StateAggregating, "aggregating results")
	if err, ok := fatal.Load().(error); ok && err != nil {
		return o.finish(started, syncrun.StateFailed, err), err
	}
	if o.cancelled.Load() {
		return o.finish(started, syncrun.StateCancelled, nil), nil
	}
	return o.finish(started, syncrun.StateComplete, nil), nil
}

func (o *Orchestrator) buildIndex(ctx context.Context) (*Index, error) {
	return BuildPacedIndex(ctx, o.dest, o.exec)
}

func (o *Orchestrator) loadSource(ctx context.Context) ([]catalog.SourceRecord, error) {
	records, err := loadSourceRecords(ctx, o.source, o.exec)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// record folds one task outcome into stats and the bounded detail log, and
// publishes a progress event.
func (o *Orchestrator) record(outcome syncrun.Outcome) {
	o.stats.Record(outcome.Status)

	o.detailsMu.Lock()
	if len(o.details) < o.cfg.MaxDetails {
		o.details = append(o.details, outcome)
	}
	o.detailsMu.Unlock()

	snap := o.stats.Snapshot()
	o.reporter.Publish(syncrun.ProgressEvent{
		Message: outcome.Key + ": " + outcome.Status.String(),
		Percent: snap.Percent(),
		Stats:   snap,
	})
}

func (o *Orchestrator) transition(state syncrun.State, message string) {
	o.state.Store(state)
	snap := o.stats.Snapshot()
	o.reporter.Publish(syncrun.ProgressEvent{
		Message: message,
		Percent: snap.Percent(),
		Stats:   snap,
	})
	o.logger.Debug("run state changed",
		zap.String("run_id", o.runID.String()),
		zap.String("state", state.String()),
	)
}

func (o *Orchestrator) finish(started time.Time, state syncrun.State, runErr error) *syncrun.Summary {
	o.state.Store(state)

	o.detailsMu.Lock()
	details := make([]syncrun.Outcome, len(o.details))
	copy(details, o.details)
	o.detailsMu.Unlock()

	summary := &syncrun.Summary{
		RunID:           o.runID,
		Mode:            o.cfg.Mode,
		State:           state,
		Stats:           o.stats.Snapshot(),
		DurationSeconds: time.Since(started).Seconds(),
		Details:         details,
		FinishedAt:      time.Now(),
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	o.logger.Info("run finished",
		zap.String("run_id", o.runID.String()),
		zap.String("state", state.String()),
		zap.Int("processed", summary.Stats.Processed),
		zap.Int("created", summary.Stats.Created),
		zap.Int("updated", summary.Stats.Updated),
		zap.Int("failed", summary.Stats.Failed),
		zap.Int("skipped", summary.Stats.Skipped),
		zap.Float64("duration_seconds", summary.DurationSeconds),
	)
	return summary
}

func (o *Orchestrator) finishFatal(started time.Time, err error) (*syncrun.Summary, error) {
	return o.finish(started, syncrun.StateFailed, err), err
}

// pacedDestination routes the index build's listing calls through the retry
// executor so snapshotting honors the shared rate budget like every other
// remote call.
type pacedDestination struct {
	catalog.DestinationCatalog
	exec *retry.Executor
}

func (p *pacedDestination) ListProducts(ctx context.Context, cursor string) (catalog.DestinationPage, error) {
	return retry.DoValue(ctx, p.exec, "storefront.list_products", func(ctx context.Context) (catalog.DestinationPage, error) {
		return p.DestinationCatalog.ListProducts(ctx, cursor)
	})
}
