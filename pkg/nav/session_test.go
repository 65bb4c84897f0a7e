package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-formflow/pkg/logic"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func navForm() schema.Form {
	return schema.Form{
		ID: "f1",
		Blocks: []schema.Block{
			{ID: "a", Type: schema.BlockShortText, Question: "A?", Required: true},
			{ID: "b", Type: schema.BlockShortText, Question: "B?"},
			{ID: "c", Type: schema.BlockShortText, Question: "C?"},
		},
		LogicRules: []schema.LogicRule{{
			ID: "show-b",
			Conditions: []schema.Condition{
				{BlockID: "a", Operator: schema.OpNotEquals, Value: "yes"},
			},
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "b"}},
		}},
	}
}

func newNavSession(form schema.Form) *Session {
	return NewSession(form, response.NewStore(form), logic.New())
}

type stubSink struct {
	id    string
	err   error
	calls int
	data  map[string]any
}

func (s *stubSink) Submit(_ context.Context, _ string, data map[string]any) (string, error) {
	s.calls++
	s.data = data
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func TestNewSession_EmptyFormStartsCompleted(t *testing.T) {
	s := newNavSession(schema.Form{ID: "empty"})
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
	if _, _, ok := s.Current(); ok {
		t.Fatalf("completed session has no current block")
	}
}

func TestNewSession_AllHiddenStartsCompleted(t *testing.T) {
	form := schema.Form{
		ID:     "f",
		Blocks: []schema.Block{{ID: "a", Type: schema.BlockShortText}},
		LogicRules: []schema.LogicRule{{
			ID: "hide-always",
			Conditions: []schema.Condition{
				{BlockID: "a", Operator: schema.OpIsEmpty},
			},
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "a"}},
		}},
	}
	s := newNavSession(form)
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
}

func TestAdvance_RequiredGate(t *testing.T) {
	s := newNavSession(navForm())

	err := s.Advance()
	var validation ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validation.BlockID != "a" {
		t.Fatalf("unexpected block: %s", validation.BlockID)
	}

	block, idx, ok := s.Current()
	if !ok || block.ID != "a" || idx != 0 {
		t.Fatalf("session moved despite rejected advance: %+v %d %v", block, idx, ok)
	}

	if err := s.Answer("a", "no"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance after answering: %v", err)
	}
}

func TestAdvance_RejectedRelocationKeepsFrontier(t *testing.T) {
	// Answering "done" hides the current block, so the advance must relocate
	// to the first visible block. That block is required and unanswered, so
	// the advance is rejected and must not mark the relocation target visited.
	form := schema.Form{
		ID: "f1",
		Blocks: []schema.Block{
			{ID: "a", Type: schema.BlockShortText, Question: "A?"},
			{ID: "b", Type: schema.BlockNumber, Question: "B?", Required: true},
		},
		LogicRules: []schema.LogicRule{{
			ID: "hide-a-when-done",
			Conditions: []schema.Condition{
				{BlockID: "a", Operator: schema.OpEquals, Value: "done"},
			},
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "a"}},
		}},
	}
	s := newNavSession(form)
	if err := s.Answer("a", "done"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	err := s.Advance()
	var validation ValidationError
	if !errors.As(err, &validation) || validation.BlockID != "b" {
		t.Fatalf("expected ValidationError for b, got %v", err)
	}

	// The effective sequence is now [b]; b was never visited, so a jump to it
	// must still be rejected after the failed advance.
	var jump InvalidJumpError
	if err := s.Jump(0); !errors.As(err, &jump) {
		t.Fatalf("rejected advance grew the visited frontier: %v", err)
	}

	if err := s.Answer("b", 3); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance after answering: %v", err)
	}
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
}

func TestAdvance_AnswerChangesVisibility(t *testing.T) {
	s := newNavSession(navForm())

	// a=yes keeps b visible (rule hides b when a != yes).
	if err := s.Answer("a", "yes"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	block, _, _ := s.Current()
	if block.ID != "b" {
		t.Fatalf("expected b, got %s", block.ID)
	}

	// Changing the answer hides b; the frontier follows block ids.
	if err := s.Answer("a", "no"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	block, _, _ = s.Current()
	if block.ID != "c" {
		t.Fatalf("expected c after b hidden, got %s", block.ID)
	}
}

func TestAdvance_CompletesAtLastBlock(t *testing.T) {
	s := newNavSession(navForm())
	if err := s.Answer("a", "no"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	// Effective sequence is [a, c].
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to c: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance past c: %v", err)
	}
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
	if err := s.Advance(); err == nil {
		t.Fatalf("advance after completion should fail")
	}
}

func TestRetreat(t *testing.T) {
	s := newNavSession(navForm())
	if err := s.Answer("a", "yes"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if err := s.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	block, idx, _ := s.Current()
	if block.ID != "a" || idx != 0 {
		t.Fatalf("expected a at 0, got %s at %d", block.ID, idx)
	}

	// Clamped at the first block, even unanswered.
	s.Responses().Clear("a")
	if err := s.Retreat(); err != nil {
		t.Fatalf("retreat at start: %v", err)
	}
	block, _, _ = s.Current()
	if block.ID != "a" {
		t.Fatalf("expected a, got %s", block.ID)
	}
}

func TestRetreat_FromCompleted(t *testing.T) {
	s := newNavSession(navForm())
	if err := s.Answer("a", "no"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := s.Retreat(); err != nil {
		t.Fatalf("retreat from completed: %v", err)
	}
	if s.Status() != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", s.Status())
	}
	block, _, _ := s.Current()
	if block.ID != "c" {
		t.Fatalf("expected c, got %s", block.ID)
	}
}

func TestJump(t *testing.T) {
	s := newNavSession(navForm())
	if err := s.Answer("a", "yes"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Backward to a visited step is allowed.
	if err := s.Jump(0); err != nil {
		t.Fatalf("jump back: %v", err)
	}
	block, _, _ := s.Current()
	if block.ID != "a" {
		t.Fatalf("expected a, got %s", block.ID)
	}

	// Forward past the frontier is not.
	err := s.Jump(2)
	var invalid InvalidJumpError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidJumpError, got %v", err)
	}

	// Out of range is not.
	if err := s.Jump(99); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidJumpError, got %v", err)
	}
}

func TestSubmit_FromInProgressRejected(t *testing.T) {
	s := newNavSession(navForm())
	err := s.Submit(context.Background(), &stubSink{id: "s1"})
	var state StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestSubmit_FailThenRetry(t *testing.T) {
	s := newNavSession(navForm())
	if err := s.Answer("a", "no"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	sink := &stubSink{id: "s1", err: errors.New("boom")}
	err := s.Submit(context.Background(), sink)
	var submission SubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if s.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", s.Status())
	}
	if s.FailReason() == "" {
		t.Fatalf("expected fail reason")
	}

	sink.err = nil
	if err := s.Submit(context.Background(), sink); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("expected submitted, got %s", s.Status())
	}
	if s.SubmissionID() != "s1" {
		t.Fatalf("expected submission id, got %q", s.SubmissionID())
	}
	if sink.calls != 2 {
		t.Fatalf("expected 2 sink calls, got %d", sink.calls)
	}

	// Submitted is terminal.
	if err := s.Submit(context.Background(), sink); err == nil {
		t.Fatalf("submit after success should fail")
	}
}

func TestSubmissionData_QuestionKeysWithIDFallback(t *testing.T) {
	form := schema.Form{
		ID: "f1",
		Blocks: []schema.Block{
			{ID: "named", Type: schema.BlockShortText, Question: "Your name?"},
			{ID: "anon", Type: schema.BlockShortText},
		},
	}
	s := newNavSession(form)
	if err := s.Answer("named", "Ada"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Answer("anon", "x"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	data := s.SubmissionData()
	if data["Your name?"] != "Ada" {
		t.Fatalf("question key missing: %+v", data)
	}
	if data["anon"] != "x" {
		t.Fatalf("id fallback missing: %+v", data)
	}
}
