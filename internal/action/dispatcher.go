package action

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/jsonapistore/internal/state"
)

// Dispatcher owns a current State and applies actions to it from a single
// goroutine.
//
// Thread-safety model:
//   - Dispatch, State and Seq: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// A failing action is reported to the error handler and skipped; the
// state stays at the last successful action.
type Dispatcher struct {
	reducer *Reducer
	queue   *queue
	logger  *slog.Logger
	onError func(Action, error)
	onApply func(Action, state.State)

	mu      sync.RWMutex
	current state.State
	seq     int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInitialState sets the state the first action is applied to.
func WithInitialState(s state.State) DispatcherOption {
	return func(d *Dispatcher) {
		d.current = s
	}
}

// WithErrorHandler is called from the Run goroutine for every action that
// fails.
func WithErrorHandler(fn func(Action, error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// WithApplyHook is called from the Run goroutine after every action that
// succeeds, with the state it produced.
func WithApplyHook(fn func(Action, state.State)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onApply = fn
	}
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher around r.
func NewDispatcher(r *Reducer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		reducer: r,
		queue:   newQueue(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch submits a for the Run loop. Returns false after Stop.
func (d *Dispatcher) Dispatch(a Action) bool {
	return d.queue.enqueue(a)
}

// State returns the current state.
func (d *Dispatcher) State() state.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Seq returns the number of actions applied successfully.
func (d *Dispatcher) Seq() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.seq
}

// Run applies queued actions in FIFO order until ctx is cancelled or Stop
// is called and the queue has drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("dispatcher starting")

	for {
		if a, ok := d.queue.tryDequeue(); ok {
			d.apply(a)
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Debug("dispatcher stopping: context cancelled")
			d.queue.close()
			return ctx.Err()
		case <-d.queue.wait():
			// A closed signal channel fires immediately; stop once drained.
			if d.queue.len() == 0 && d.stopped() {
				d.logger.Debug("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns after applying what is already
// queued.
func (d *Dispatcher) Stop() {
	d.queue.close()
}

func (d *Dispatcher) stopped() bool {
	d.queue.mu.Lock()
	defer d.queue.mu.Unlock()
	return d.queue.closed
}

func (d *Dispatcher) apply(a Action) {
	next, err := d.reducer.Reduce(d.State(), a)
	if err != nil {
		d.logger.Error("action failed", "type", a.Type, "error", err)
		if d.onError != nil {
			d.onError(a, err)
		}
		return
	}

	d.mu.Lock()
	d.current = next
	d.seq++
	d.mu.Unlock()

	if d.onApply != nil {
		d.onApply(a, next)
	}
}
