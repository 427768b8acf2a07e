// Package reconcile maps the lifecycle of asynchronous tasks onto the guest store.
//
// Each task goes Idle -> Pending -> Fulfilled|Rejected -> Idle. The store is
// written only when a task is fulfilled; a rejected task leaves it untouched
// and records its error instead.
//
// Reset starts a new generation. Tasks begun in an earlier generation still
// run to completion, but their mutations and errors are dropped.
package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"wedding-invites/internal/models"
	"wedding-invites/internal/store"
)

// Task performs one operation against a collaborator. The returned mutation is
// applied only when err is nil.
type Task func(ctx context.Context) (store.Mutation, error)

// Listener is notified after every phase change with the resulting snapshot.
type Listener func(Phase, store.State)

// ErrStale is returned by DoAt when the state was reset before the task
// could start.
var ErrStale = errors.New("reconcile: state was reset")

type Reconciler struct {
	mu        sync.RWMutex
	gen       uint64
	state     store.State
	phase     Phase
	inFlight  int
	lastErr   error
	lastOp    Op
	listeners []Listener
	log       zerolog.Logger
}

// New creates a reconciler owning state.
func New(state store.State, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		state: state,
		phase: Idle{},
		log:   log.With().Str("component", "reconciler").Logger(),
	}
}

// Do runs task, committing its mutation on success. The task's error is
// returned unchanged.
func (r *Reconciler) Do(ctx context.Context, op Op, task Task) error {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()
	return r.DoAt(ctx, gen, op, task)
}

// DoAt is Do for a task validated against the snapshot of generation gen, as
// returned by Current. If the state has been reset since, the task does not
// run and ErrStale is returned.
func (r *Reconciler) DoAt(ctx context.Context, gen uint64, op Op, task Task) error {
	if !r.begin(gen, op) {
		return ErrStale
	}

	m, err := task(ctx)

	r.settle(gen, op, m, err)
	return err
}

func (r *Reconciler) begin(gen uint64, op Op) bool {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return false
	}
	r.inFlight++
	r.lastErr = nil
	r.lastOp = op
	r.phase = Pending{Op: op, InFlight: r.inFlight}
	phase, state, listeners := r.phase, r.state, r.listeners
	r.mu.Unlock()

	r.log.Debug().Str("op", string(op)).Msg("task pending")
	notify(listeners, phase, state)
	return true
}

func (r *Reconciler) settle(gen uint64, op Op, m store.Mutation, err error) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		r.log.Debug().Err(err).Str("op", string(op)).Msg("dropping result of a reset state")
		return
	}
	r.inFlight--
	if err != nil {
		r.lastErr = err
		r.lastOp = op
	} else {
		r.state = store.Apply(r.state, m)
	}

	switch {
	case r.inFlight > 0:
		r.phase = Pending{Op: r.lastOp, InFlight: r.inFlight}
	case r.lastErr != nil:
		r.phase = Rejected{Op: r.lastOp, Err: r.lastErr}
	default:
		r.phase = Idle{}
	}
	phase, state, listeners := r.phase, r.state, r.listeners
	r.mu.Unlock()

	if err != nil {
		r.log.Warn().Err(err).Str("op", string(op)).Msg("task rejected")
	} else {
		r.log.Debug().Str("op", string(op)).Msg("task fulfilled")
	}
	notify(listeners, phase, state)
}

// Reset replaces the owned state, e.g. when the active event changes, and
// returns the phase to Idle. Tasks still in flight no longer count.
func (r *Reconciler) Reset(state store.State) {
	r.mu.Lock()
	r.gen++
	r.state = state
	r.inFlight = 0
	r.lastErr = nil
	r.phase = Idle{}
	phase, listeners := r.phase, r.listeners
	r.mu.Unlock()

	notify(listeners, phase, state)
}

// Dismiss clears a Rejected phase.
func (r *Reconciler) Dismiss() {
	r.mu.Lock()
	if _, ok := r.phase.(Rejected); ok {
		r.phase = Idle{}
		r.lastErr = nil
	}
	r.mu.Unlock()
}

// Subscribe registers fn for phase changes.
func (r *Reconciler) Subscribe(fn Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Current returns the last committed state with its generation, for use with
// DoAt.
func (r *Reconciler) Current() (store.State, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.gen
}

// Snapshot returns the last committed state
func (r *Reconciler) Snapshot() store.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Reconciler) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// Guest looks up a guest in the current snapshot
func (r *Reconciler) Guest(id string) (models.Guest, bool) {
	return r.Snapshot().Guest(id)
}

func notify(listeners []Listener, phase Phase, state store.State) {
	for _, fn := range listeners {
		fn(phase, state)
	}
}
