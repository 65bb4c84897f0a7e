// Package nav drives a respondent's traversal of a published form: which
// block is shown, whether advancing is allowed, and when the form is
// complete. A session owns its response store and form snapshot; there is no
// shared state between sessions.
package nav

import (
	"context"
	"strings"

	"github.com/goliatone/go-formflow/pkg/logic"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Status enumerates the session lifecycle states.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
	StatusFailed     Status = "failed"
)

// Sink is the external submission collaborator. Implementations persist the
// submission and return its identifier; they own their own timeouts.
type Sink interface {
	Submit(ctx context.Context, formID string, data map[string]any) (string, error)
}

// Session is the navigation state machine for one respondent. It recomputes
// the effective block sequence from the evaluator on every move, because an
// answer just given may show or hide later blocks. Progress is therefore
// tracked by block id, not raw index: the visited frontier stays correct even
// when earlier answers shift later blocks' positions.
type Session struct {
	form      schema.Form
	eval      *logic.Evaluator
	responses *response.Store

	status       Status
	currentID    string
	visited      map[string]struct{}
	failReason   string
	submissionID string
}

// NewSession starts a respondent session over a form snapshot. A form whose
// effective sequence is empty (no blocks, or everything hidden) starts
// completed immediately.
func NewSession(form schema.Form, store *response.Store, eval *logic.Evaluator) *Session {
	if eval == nil {
		eval = logic.New()
	}
	if store == nil {
		store = response.NewStore(form)
	}
	s := &Session{
		form:      form,
		eval:      eval,
		responses: store,
		status:    StatusInProgress,
		visited:   make(map[string]struct{}),
	}
	seq := s.effective()
	if len(seq) == 0 {
		s.status = StatusCompleted
		return s
	}
	s.currentID = seq[0].ID
	s.visited[seq[0].ID] = struct{}{}
	return s
}

// Status returns the session's lifecycle state.
func (s *Session) Status() Status { return s.status }

// Responses exposes the session's response store.
func (s *Session) Responses() *response.Store { return s.responses }

// SubmissionID returns the identifier assigned by the sink after a
// successful submit.
func (s *Session) SubmissionID() string { return s.submissionID }

// FailReason returns the sink failure message when the session is in
// StatusFailed.
func (s *Session) FailReason() string { return s.failReason }

// Outcome re-evaluates the form's rules against the current responses.
func (s *Session) Outcome() logic.Outcome {
	return s.eval.Evaluate(s.form, s.responses.Snapshot())
}

// Effective returns the currently visible blocks in schema order.
func (s *Session) Effective() []schema.Block {
	return s.effective()
}

// Current returns the block being presented and its position in the
// effective sequence. ok is false once the session has left InProgress.
func (s *Session) Current() (block schema.Block, index int, ok bool) {
	if s.status != StatusInProgress {
		return schema.Block{}, 0, false
	}
	seq := s.effective()
	idx := s.locate(seq)
	if idx < 0 {
		return schema.Block{}, 0, false
	}
	return seq[idx], idx, true
}

// Answer records a response for a block and is the only mutation a session
// performs during InProgress. Unknown block ids are rejected.
func (s *Session) Answer(blockID string, value any) error {
	return s.responses.Set(blockID, value)
}

// Advance moves to the next visible block. It re-evaluates visibility first;
// if the current block is required and unanswered the advance is rejected
// with ValidationError and the session is unchanged. Advancing past the last
// visible block completes the session.
func (s *Session) Advance() error {
	if s.status != StatusInProgress {
		return StateError{Op: "advance", Status: s.status}
	}
	outcome := s.Outcome()
	seq := logic.EffectiveSequence(s.form, outcome)
	if len(seq) == 0 {
		s.status = StatusCompleted
		return nil
	}
	idx := s.locate(seq)
	if idx < 0 {
		idx = 0
	}
	current := seq[idx]

	// A rejected advance must leave the session untouched, so the relocation
	// and the frontier write happen only after the required gate passes.
	if outcome[current.ID].Required && !s.answered(current.ID) {
		return ValidationError{BlockID: current.ID, Question: current.Question}
	}
	s.currentID = current.ID
	s.visited[current.ID] = struct{}{}

	if idx == len(seq)-1 {
		s.status = StatusCompleted
		return nil
	}
	next := seq[idx+1]
	s.currentID = next.ID
	s.visited[next.ID] = struct{}{}
	return nil
}

// Retreat steps back one visible block, clamped at the first. Retreating is
// never blocked by validation. A completed-but-unsubmitted session drops back
// to InProgress on the last visible block.
func (s *Session) Retreat() error {
	switch s.status {
	case StatusInProgress:
	case StatusCompleted:
		seq := s.effective()
		if len(seq) == 0 {
			return nil
		}
		s.status = StatusInProgress
		s.currentID = seq[len(seq)-1].ID
		s.visited[s.currentID] = struct{}{}
		return nil
	default:
		return StateError{Op: "retreat", Status: s.status}
	}
	seq := s.effective()
	if len(seq) == 0 {
		s.status = StatusCompleted
		return nil
	}
	idx := s.locate(seq)
	if idx <= 0 {
		if idx < 0 {
			s.currentID = seq[0].ID
			s.visited[s.currentID] = struct{}{}
		}
		return nil
	}
	s.currentID = seq[idx-1].ID
	s.visited[s.currentID] = struct{}{}
	return nil
}

// Jump moves directly to step target in the effective sequence. Only blocks
// already visited in this session may be jumped to, which prevents skipping
// unseen required blocks. Because the frontier is tracked by block id, the
// check stays correct when earlier answers change later visibility.
func (s *Session) Jump(target int) error {
	if s.status != StatusInProgress {
		return StateError{Op: "jump", Status: s.status}
	}
	seq := s.effective()
	if target < 0 || target >= len(seq) {
		return InvalidJumpError{Target: target}
	}
	if _, seen := s.visited[seq[target].ID]; !seen {
		return InvalidJumpError{Target: target}
	}
	s.currentID = seq[target].ID
	return nil
}

// Submit sends the accumulated responses to the sink. Valid only from
// Completed or Failed; a failure moves the session to Failed with the sink's
// reason and submit may be retried.
func (s *Session) Submit(ctx context.Context, sink Sink) error {
	switch s.status {
	case StatusCompleted, StatusFailed:
	default:
		return StateError{Op: "submit", Status: s.status}
	}
	if sink == nil {
		return SubmissionError{Reason: "no submission sink configured"}
	}
	s.status = StatusSubmitting
	id, err := sink.Submit(ctx, s.form.ID, s.SubmissionData())
	if err != nil {
		s.status = StatusFailed
		s.failReason = err.Error()
		return SubmissionError{Reason: err.Error(), Err: err}
	}
	s.status = StatusSubmitted
	s.submissionID = id
	s.failReason = ""
	return nil
}

// SubmissionData flattens the responses into the persisted submission shape:
// answers keyed by the block's question text, falling back to the block id
// when the question is blank.
func (s *Session) SubmissionData() map[string]any {
	out := make(map[string]any)
	for _, block := range s.form.Blocks {
		value, ok := s.responses.Get(block.ID)
		if !ok {
			continue
		}
		key := strings.TrimSpace(block.Question)
		if key == "" {
			key = block.ID
		}
		out[key] = value
	}
	return out
}

func (s *Session) effective() []schema.Block {
	return logic.EffectiveSequence(s.form, s.Outcome())
}

// locate finds the current block in the sequence. If the current block was
// hidden by a rule since the last move, the furthest visited block still
// visible takes its place.
func (s *Session) locate(seq []schema.Block) int {
	for i, b := range seq {
		if b.ID == s.currentID {
			return i
		}
	}
	last := -1
	for i, b := range seq {
		if _, seen := s.visited[b.ID]; seen {
			last = i
		}
	}
	if last >= 0 {
		s.currentID = seq[last].ID
	}
	return last
}

func (s *Session) answered(blockID string) bool {
	value, ok := s.responses.Get(blockID)
	if !ok {
		return false
	}
	return !logic.AnswerEmpty(value)
}
