package formflow

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/builder"
	"github.com/goliatone/go-formflow/pkg/logic"
	"github.com/goliatone/go-formflow/pkg/nav"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Form aliases the schema type exported via the root package for convenience.
type Form = schema.Form

// Block is one question or element inside a form.
type Block = schema.Block

// LogicRule is a conditional rule over earlier answers.
type LogicRule = schema.LogicRule

// Outcome maps block ids to their evaluated visible/required state.
type Outcome = logic.Outcome

// Session is the respondent navigation state machine.
type Session = nav.Session

// NewBuilder starts an authoring session over a form.
func NewBuilder(form schema.Form, options ...builder.Option) *builder.Builder {
	return builder.New(form, options...)
}

// NewForm returns an empty draft form with default settings and design.
func NewForm() schema.Form {
	return builder.NewForm()
}

// Evaluate runs the conditional-logic rules for one response set.
func Evaluate(form schema.Form, responses map[string]any) logic.Outcome {
	return logic.New().Evaluate(form, responses)
}

// StartSession begins a respondent session over a form snapshot.
func StartSession(form schema.Form) *nav.Session {
	return nav.NewSession(form, response.NewStore(form), logic.New())
}

// Submit replays a complete answer set through a fresh session and submits
// it to the sink, enforcing visibility and required-field rules on the way.
func Submit(ctx context.Context, form schema.Form, answers map[string]any, sink nav.Sink) (string, error) {
	session := nav.NewSession(form, response.NewStore(form), logic.New())
	for _, block := range form.Blocks {
		value, ok := answers[block.ID]
		if !ok {
			continue
		}
		if err := session.Answer(block.ID, value); err != nil {
			return "", err
		}
	}
	for session.Status() == nav.StatusInProgress {
		if err := session.Advance(); err != nil {
			return "", err
		}
	}
	if err := session.Submit(ctx, sink); err != nil {
		return "", err
	}
	return session.SubmissionID(), nil
}
