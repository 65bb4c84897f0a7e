package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

type capturePersister struct {
	mu    sync.Mutex
	saves []schema.Form
	errs  []error
	block chan struct{}
}

func (p *capturePersister) Save(_ context.Context, form schema.Form) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, form)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *capturePersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func (p *capturePersister) last() schema.Form {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves[len(p.saves)-1]
}

func formTitled(title string) schema.Form {
	return schema.Form{ID: "f1", Title: title}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestScheduler_CoalescesBurstIntoOneSave(t *testing.T) {
	p := &capturePersister{}
	s := NewScheduler(p, WithDelay(50*time.Millisecond))
	defer s.Close()

	s.Notify(formTitled("one"))
	s.Notify(formTitled("two"))
	s.Notify(formTitled("three"))

	waitFor(t, func() bool { return p.count() == 1 })
	if got := p.last().Title; got != "three" {
		t.Fatalf("expected latest snapshot, got %q", got)
	}

	// No trailing extra save.
	time.Sleep(120 * time.Millisecond)
	if p.count() != 1 {
		t.Fatalf("expected exactly 1 save, got %d", p.count())
	}
}

func TestScheduler_MutationDuringSaveCoalesces(t *testing.T) {
	p := &capturePersister{block: make(chan struct{})}
	s := NewScheduler(p, WithDelay(10*time.Millisecond))
	defer s.Close()

	s.Notify(formTitled("first"))
	time.Sleep(30 * time.Millisecond) // timer fires, save blocks

	// Two mutations while the save is in flight coalesce into one follow-up.
	s.Notify(formTitled("second"))
	s.Notify(formTitled("third"))
	close(p.block)

	waitFor(t, func() bool { return p.count() == 2 })
	if got := p.last().Title; got != "third" {
		t.Fatalf("expected follow-up with latest snapshot, got %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if p.count() != 2 {
		t.Fatalf("expected exactly 2 saves, got %d", p.count())
	}
}

func TestScheduler_FlushSavesImmediately(t *testing.T) {
	p := &capturePersister{}
	s := NewScheduler(p, WithDelay(time.Hour))
	defer s.Close()

	s.Notify(formTitled("draft"))
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("expected 1 save after flush, got %d", p.count())
	}

	// Nothing pending: flush is a no-op.
	if err := s.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("flush with nothing pending saved anyway")
	}
}

func TestScheduler_RetriesAfterFailure(t *testing.T) {
	p := &capturePersister{errs: []error{errors.New("disk full")}}
	s := NewScheduler(p, WithDelay(20*time.Millisecond))
	defer s.Close()

	s.Notify(formTitled("keep-me"))
	waitFor(t, func() bool { return p.count() == 2 })
	if got := p.last().Title; got != "keep-me" {
		t.Fatalf("retry lost snapshot: %q", got)
	}
}

func TestScheduler_CloseFlushesPending(t *testing.T) {
	p := &capturePersister{}
	s := NewScheduler(p, WithDelay(time.Hour))

	s.Notify(formTitled("pending"))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("pending snapshot not flushed on close, saves=%d", p.count())
	}

	// Notify after close must not panic or deadlock.
	s.Notify(formTitled("late"))
}
