package syncrun

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Per-Entity Outcomes
// ---------------------------------------------------------------------------

// OutcomeStatus is the per-entity result of a reconciliation task.
type OutcomeStatus string

const (
	// OutcomeCreated indicates the entity was created on the storefront.
	OutcomeCreated OutcomeStatus = "created"
	// OutcomeUpdated indicates the entity was updated on the storefront.
	OutcomeUpdated OutcomeStatus = "updated"
	// OutcomeFailed indicates the entity's task failed.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped indicates no action was applicable.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// IsValid returns true if the status is valid.
func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeCreated, OutcomeUpdated, OutcomeFailed, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of OutcomeStatus.
func (s OutcomeStatus) String() string {
	return string(s)
}

// Outcome records what happened to one entity during a run.
type Outcome struct {
	// Key is the entity's match key.
	Key string `json:"key"`
	// Status is the per-entity result.
	Status OutcomeStatus `json:"status"`
	// Detail carries a human-readable explanation, mainly for failures and
	// skips.
	Detail string `json:"detail,omitempty"`
}

// ---------------------------------------------------------------------------
// Run States and Summary
// ---------------------------------------------------------------------------

// State is the lifecycle state of an orchestrator run.
type State string

const (
	StateInit               State = "INIT"
	StateLoadingDestination State = "LOADING_DESTINATION"
	StateLoadingSource      State = "LOADING_SOURCE"
	StateDispatching        State = "DISPATCHING"
	StateAggregating        State = "AGGREGATING"
	StateComplete           State = "COMPLETE"
	StateCancelled          State = "CANCELLED"
	StateFailed             State = "FAILED"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of State.
func (s State) String() string {
	return string(s)
}

// Summary is the final report of a run. It is produced even when most
// entities failed; only a run-level error prevents unprocessed entities from
// appearing in it.
type Summary struct {
	// RunID identifies the run.
	RunID uuid.UUID `json:"run_id"`
	// Mode is the sync mode the run executed with.
	Mode Mode `json:"mode"`
	// State is the final run state.
	State State `json:"state"`
	// Stats are the final counters.
	Stats StatsSnapshot `json:"stats"`
	// DurationSeconds is the wall-clock run duration.
	DurationSeconds float64 `json:"duration_seconds"`
	// Details is the bounded per-entity outcome log.
	Details []Outcome `json:"details"`
	// Error is the run-level error message, empty unless State is FAILED.
	Error string `json:"error,omitempty"`
	// FinishedAt is when the run reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`
}

// ---------------------------------------------------------------------------
// Progress Reporting
// ---------------------------------------------------------------------------

// ProgressEvent is one progress observation pushed to run listeners.
type ProgressEvent struct {
	// Message describes the run phase or last outcome.
	Message string `json:"message"`
	// Percent is run completion in [0, 100].
	Percent float64 `json:"percent"`
	// Stats is the counter snapshot at emission time.
	Stats StatsSnapshot `json:"stats"`
}

// Reporter fans progress events out to a buffered channel. Sends never
// block: the consumer is untrusted and possibly slow, so when the buffer is
// full the oldest event is dropped in favor of the newest. Workers therefore
// can never be stalled by a listener.
type Reporter struct {
	mu     sync.Mutex
	events chan ProgressEvent
	closed bool
}

// NewReporter creates a Reporter with the given buffer size.
func NewReporter(buffer int) *Reporter {
	if buffer <= 0 {
		buffer = 64
	}
	return &Reporter{events: make(chan ProgressEvent, buffer)}
}

// Events returns the receive side of the progress stream. The channel is
// closed when the run finishes.
func (r *Reporter) Events() <-chan ProgressEvent {
	return r.events
}

// Publish pushes an event without blocking. When the buffer is full the
// oldest buffered event is evicted so listeners always converge on the most
// recent state.
func (r *Reporter) Publish(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for {
		select {
		case r.events <- ev:
			return
		default:
		}
		select {
		case <-r.events:
		default:
		}
	}
}

// Close ends the stream. Safe to call once per run.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.events)
}
