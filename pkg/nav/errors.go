package nav

import "fmt"

// ValidationError rejects an advance over a required, unanswered block. The
// session is unchanged; the respondent answers and retries.
type ValidationError struct {
	BlockID  string
	Question string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("nav: block %q requires an answer", e.BlockID)
}

// InvalidJumpError rejects a jump beyond the visited frontier or to a block
// that is not currently visible.
type InvalidJumpError struct {
	Target int
}

func (e InvalidJumpError) Error() string {
	return fmt.Sprintf("nav: cannot jump to step %d", e.Target)
}

// SubmissionError wraps a Submission Sink failure. The session moves to
// StatusFailed and submit may be retried.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("nav: submission failed: %s", e.Reason)
}

func (e SubmissionError) Unwrap() error { return e.Err }

// StateError reports an operation attempted in a status that does not permit
// it, for example submitting an in-progress session.
type StateError struct {
	Op     string
	Status Status
}

func (e StateError) Error() string {
	return fmt.Sprintf("nav: cannot %s while %s", e.Op, e.Status)
}
