package catalogsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

var (
	// ErrRunNotFound indicates the requested run is unknown to the registry.
	ErrRunNotFound = errors.New("catalogsync: run not found")
	// ErrRunActive indicates a run is already executing.
	ErrRunActive = errors.New("catalogsync: a run is already active")
	// ErrRunFinished indicates the run already reached a terminal state.
	ErrRunFinished = errors.New("catalogsync: run already finished")
)

// RunHandle tracks one run from start to terminal state and retains its
// summary afterwards.
type RunHandle struct {
	orch *Orchestrator

	mu        sync.Mutex
	summary   *syncrun.Summary
	startedAt time.Time
	done      chan struct{}
}

// ID returns the run identifier.
func (h *RunHandle) ID() uuid.UUID {
	return h.orch.RunID()
}

// Done is closed when the run reaches a terminal state.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Events returns the run's progress stream.
func (h *RunHandle) Events() <-chan syncrun.ProgressEvent {
	return h.orch.Events()
}

// Cancel requests cooperative cancellation.
func (h *RunHandle) Cancel() {
	h.orch.Cancel()
}

// Status returns the current run view: live state and counters while the run
// executes, the retained summary once it finished.
func (h *RunHandle) Status() RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := RunStatus{
		RunID:     h.orch.RunID(),
		Mode:      h.orch.cfg.Mode,
		State:     h.orch.State(),
		Stats:     h.orch.Stats(),
		StartedAt: h.startedAt,
	}
	if h.summary != nil {
		st.State = h.summary.State
		st.Stats = h.summary.Stats
		st.Summary = h.summary
	}
	return st
}

// RunStatus is the externally visible view of a run.
type RunStatus struct {
	RunID     uuid.UUID             `json:"run_id"`
	Mode      syncrun.Mode          `json:"mode"`
	State     syncrun.State         `json:"state"`
	Stats     syncrun.StatsSnapshot `json:"stats"`
	StartedAt time.Time             `json:"started_at"`
	Summary   *syncrun.Summary      `json:"summary,omitempty"`
}

// Service starts synchronization runs and keeps a bounded history of finished
// ones. At most one run or whole-catalog refresh executes at a time: the
// source and storefront share a single rate budget, and overlapping runs
// would race on the same entities.
type Service struct {
	source catalog.SourceCatalog
	dest   catalog.DestinationCatalog
	exec   *retry.Executor
	ocfg   OrchestratorConfig
	rcfg   ReconcilerConfig
	logger *zap.Logger

	mu         sync.Mutex
	active     *RunHandle
	refreshing bool
	history    map[uuid.UUID]*RunHandle
	order      []uuid.UUID
	maxHistory int
}

// NewService creates a run service. maxHistory bounds retained finished runs.
func NewService(
	source catalog.SourceCatalog,
	dest catalog.DestinationCatalog,
	exec *retry.Executor,
	ocfg OrchestratorConfig,
	rcfg ReconcilerConfig,
	maxHistory int,
	logger *zap.Logger,
) *Service {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:     source,
		dest:       dest,
		exec:       exec,
		ocfg:       ocfg,
		rcfg:       rcfg,
		logger:     logger,
		history:    make(map[uuid.UUID]*RunHandle),
		maxHistory: maxHistory,
	}
}

// Start launches a run in the given mode. It returns ErrRunActive while a
// previous run or a catalog refresh is still executing.
func (s *Service) Start(ctx context.Context, mode syncrun.Mode, workers int) (*RunHandle, error) {
	cfg := s.ocfg
	cfg.Mode = mode
	if workers > 0 {
		cfg.Workers = workers
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil || s.refreshing {
		return nil, ErrRunActive
	}

	orch, err := NewOrchestrator(s.source, s.dest, s.exec, cfg, s.rcfg, s.logger)
	if err != nil {
		return nil, err
	}
	handle := &RunHandle{
		orch:      orch,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.active = handle
	s.remember(handle)

	go s.execute(ctx, handle)
	return handle, nil
}

func (s *Service) execute(ctx context.Context, handle *RunHandle) {
	summary, err := handle.orch.Run(ctx)
	if err != nil {
		s.logger.Error("sync run failed",
			zap.String("run_id", handle.ID().String()),
			zap.Error(err),
		)
	}

	handle.mu.Lock()
	handle.summary = summary
	handle.mu.Unlock()
	close(handle.done)

	s.mu.Lock()
	if s.active == handle {
		s.active = nil
	}
	s.mu.Unlock()
}

// remember appends the handle to history and evicts the oldest finished run
// beyond the retention bound. Caller holds s.mu.
func (s *Service) remember(handle *RunHandle) {
	s.history[handle.ID()] = handle
	s.order = append(s.order, handle.ID())
	for len(s.order) > s.maxHistory {
		oldest := s.history[s.order[0]]
		if oldest == s.active {
			break
		}
		delete(s.history, s.order[0])
		s.order = s.order[1:]
	}
}

// Get returns the handle for a known run.
func (s *Service) Get(id uuid.UUID) (*RunHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.history[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return handle, nil
}

// Cancel requests cancellation of a running run.
func (s *Service) Cancel(id uuid.UUID) error {
	handle, err := s.Get(id)
	if err != nil {
		return err
	}
	if handle.orch.State().Terminal() {
		return ErrRunFinished
	}
	handle.Cancel()
	return nil
}

// List returns statuses of all retained runs, most recent first.
func (s *Service) List() []RunStatus {
	s.mu.Lock()
	handles := make([]*RunHandle, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if h, ok := s.history[s.order[i]]; ok {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	statuses := make([]RunStatus, 0, len(handles))
	for _, h := range handles {
		statuses = append(statuses, h.Status())
	}
	return statuses
}
