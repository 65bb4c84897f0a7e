// Package autosave debounces builder-side schema persistence. Every mutation
// (re)starts a fixed-delay timer; when it expires the full schema snapshot is
// handed to the persister. At most one persistence call is ever in flight per
// scheduler, and mutations arriving mid-flight coalesce into exactly one
// follow-up call once the in-flight one resolves.
package autosave

import (
	"context"
	"log"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// DefaultDelay matches the builder's save-after-inactivity window.
const DefaultDelay = 2 * time.Second

// Persister is the external persistence collaborator (the form store).
type Persister interface {
	Save(ctx context.Context, form schema.Form) error
}

// PersisterFunc adapts a function into a Persister.
type PersisterFunc func(ctx context.Context, form schema.Form) error

// Save delegates to the underlying function.
func (fn PersisterFunc) Save(ctx context.Context, form schema.Form) error {
	return fn(ctx, form)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelay overrides the debounce window.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger used for persistence failures, which are logged
// and retried on the next debounce cycle, never surfaced to the builder.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler owns the debounce state machine for one form. All state lives in
// the run loop goroutine; callers interact through channels only.
type Scheduler struct {
	persist Persister
	delay   time.Duration
	logger  *log.Logger

	notifyCh chan schema.Form
	flushCh  chan chan error
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler starts a scheduler for one builder session. Callers must
// Close it when the session ends.
func NewScheduler(persist Persister, options ...Option) *Scheduler {
	s := &Scheduler{
		persist:  persist,
		delay:    DefaultDelay,
		logger:   log.Default(),
		notifyCh: make(chan schema.Form),
		flushCh:  make(chan chan error),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	go s.run()
	return s
}

// Notify records a schema mutation. The snapshot replaces any pending one
// and restarts the debounce timer; only the latest schema state is ever
// persisted.
func (s *Scheduler) Notify(form schema.Form) {
	select {
	case s.notifyCh <- form.Clone():
	case <-s.doneCh:
	}
}

// Flush persists the pending snapshot immediately, bypassing the debounce
// window. Used before publish so the stored schema is current. A flush with
// nothing pending is a no-op.
func (s *Scheduler) Flush() error {
	reply := make(chan error, 1)
	select {
	case s.flushCh <- reply:
		return <-reply
	case <-s.doneCh:
		return nil
	}
}

// Close stops the scheduler. Pending unsaved state is flushed first.
func (s *Scheduler) Close() error {
	err := s.Flush()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	return err
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	timer := time.NewTimer(s.delay)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	var pending *schema.Form
	inFlight := false
	dirty := false
	saveDone := make(chan error, 1)

	rearm := func() {
		if timerArmed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.delay)
		timerArmed = true
	}

	startSave := func() {
		form := *pending
		inFlight = true
		dirty = false
		go func() {
			saveDone <- s.persist.Save(context.Background(), form)
		}()
	}

	for {
		select {
		case form := <-s.notifyCh:
			pending = &form
			if inFlight {
				// Captured: one follow-up call fires after the
				// in-flight save resolves.
				dirty = true
				continue
			}
			rearm()

		case <-timer.C:
			timerArmed = false
			if pending == nil || inFlight {
				continue
			}
			startSave()

		case err := <-saveDone:
			inFlight = false
			if err != nil {
				s.logger.Printf("autosave: persist failed, will retry: %v", err)
				rearm()
				continue
			}
			if dirty {
				startSave()
				continue
			}
			pending = nil

		case reply := <-s.flushCh:
			if inFlight {
				if err := <-saveDone; err != nil {
					s.logger.Printf("autosave: persist failed during flush: %v", err)
				}
				inFlight = false
			}
			if pending == nil {
				reply <- nil
				continue
			}
			err := s.persist.Save(context.Background(), *pending)
			if err == nil {
				pending = nil
				dirty = false
			}
			reply <- err

		case <-s.stopCh:
			if timerArmed {
				timer.Stop()
			}
			if inFlight {
				<-saveDone
			}
			return
		}
	}
}
