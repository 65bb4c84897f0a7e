// Package logic evaluates a form's conditional rules against a partial
// response map, producing per-block visibility and requiredness. Evaluation
// is a pure function of (schema, responses): it allocates its result, never
// mutates its inputs, and is safe to call concurrently across sessions.
package logic

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// BlockState is the evaluator's verdict for one block.
type BlockState struct {
	Visible  bool
	Required bool
}

// Outcome maps every block id in the form to its current state.
type Outcome map[string]BlockState

// Evaluator applies a form's logic rules. The zero value is usable; Logger,
// when set, receives a line for each action that targets a block missing from
// the schema (ignored, never fatal).
type Evaluator struct {
	Logger *log.Logger
}

// New returns an Evaluator with no logger attached.
func New() *Evaluator { return &Evaluator{} }

// Evaluate runs every rule in author order against the responses and returns
// the resulting visibility/required map.
//
// Each block starts visible with its static required flag. A rule fires iff
// all of its conditions hold; zero conditions never fire. Fired rules apply
// their actions in order, and later rules or later actions override earlier
// ones for the same block (last-write-wins).
func (e *Evaluator) Evaluate(form schema.Form, responses map[string]any) Outcome {
	out := make(Outcome, len(form.Blocks))
	for _, block := range form.Blocks {
		out[block.ID] = BlockState{Visible: true, Required: block.Required}
	}

	for _, rule := range form.LogicRules {
		if !ruleFires(rule, responses) {
			continue
		}
		for _, action := range rule.Actions {
			state, ok := out[action.BlockID]
			if !ok {
				if e != nil && e.Logger != nil {
					e.Logger.Printf("logic: rule %q targets unknown block %q, skipping", rule.ID, action.BlockID)
				}
				continue
			}
			switch action.Type {
			case schema.ActionShow:
				state.Visible = true
			case schema.ActionHide:
				state.Visible = false
			case schema.ActionRequire:
				state.Required = true
			case schema.ActionUnrequire:
				state.Required = false
			}
			out[action.BlockID] = state
		}
	}

	return out
}

// EffectiveSequence filters the form's blocks to those visible under the
// outcome, preserving schema order.
func EffectiveSequence(form schema.Form, outcome Outcome) []schema.Block {
	out := make([]schema.Block, 0, len(form.Blocks))
	for _, block := range form.Blocks {
		if state, ok := outcome[block.ID]; ok && state.Visible {
			out = append(out, block)
		}
	}
	return out
}

func ruleFires(rule schema.LogicRule, responses map[string]any) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, responses) {
			return false
		}
	}
	return true
}

func conditionHolds(cond schema.Condition, responses map[string]any) bool {
	answer, answered := responses[cond.BlockID]
	if answered && answer == nil {
		answered = false
	}

	// Absence is not a concrete value: only emptiness and the negative
	// operators can hold against an unanswered block.
	if !answered {
		switch cond.Operator {
		case schema.OpIsEmpty, schema.OpNotEquals, schema.OpNotContains:
			return true
		default:
			return false
		}
	}

	switch cond.Operator {
	case schema.OpIsEmpty:
		return AnswerEmpty(answer)
	case schema.OpIsNotEmpty:
		return !AnswerEmpty(answer)
	case schema.OpGreaterThan, schema.OpLessThan:
		got, ok := coerceNumber(answer)
		if !ok {
			return false
		}
		want, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
		if err != nil {
			return false
		}
		if cond.Operator == schema.OpGreaterThan {
			return got > want
		}
		return got < want
	}

	got := stringifyAnswer(answer)
	switch cond.Operator {
	case schema.OpEquals:
		return got == cond.Value
	case schema.OpNotEquals:
		return got != cond.Value
	case schema.OpContains:
		return strings.Contains(got, cond.Value)
	case schema.OpNotContains:
		return !strings.Contains(got, cond.Value)
	case schema.OpStartsWith:
		return strings.HasPrefix(got, cond.Value)
	case schema.OpEndsWith:
		return strings.HasSuffix(got, cond.Value)
	}
	return false
}

// AnswerEmpty reports whether an answer counts as unanswered: nil, a blank
// string, or an empty selection. Navigation uses the same predicate for
// required gating so the evaluator and the state machine never disagree.
func AnswerEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// stringifyAnswer renders an answer for the string operators. Multi-select
// answers join their elements with a comma, keeping substring semantics
// usable for membership checks.
func stringifyAnswer(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, el := range v {
			parts[i] = stringifyAnswer(el)
		}
		return strings.Join(parts, ",")
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
