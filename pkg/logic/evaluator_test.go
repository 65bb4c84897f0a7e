package logic

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

func conditionalForm() schema.Form {
	return schema.Form{
		ID: "f1",
		Blocks: []schema.Block{
			{ID: "a", Type: schema.BlockShortText, Question: "A", Required: true},
			{ID: "b", Type: schema.BlockShortText, Question: "B"},
			{ID: "c", Type: schema.BlockShortText, Question: "C"},
		},
		LogicRules: []schema.LogicRule{{
			ID: "show-b",
			Conditions: []schema.Condition{
				{BlockID: "a", Operator: schema.OpEquals, Value: "yes"},
			},
			Actions: []schema.Action{{Type: schema.ActionShow, BlockID: "b"}},
		}, {
			ID: "hide-b",
			Conditions: []schema.Condition{
				{BlockID: "a", Operator: schema.OpNotEquals, Value: "yes"},
			},
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "b"}},
		}},
	}
}

func blockIDs(blocks []schema.Block) []string {
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestEvaluate_ShowHideScenario(t *testing.T) {
	eval := New()
	form := conditionalForm()

	out := eval.Evaluate(form, map[string]any{"a": "no"})
	seq := EffectiveSequence(form, out)
	if got := blockIDs(seq); !cmp.Equal(got, []string{"a", "c"}) {
		t.Fatalf("a=no: unexpected sequence %v", got)
	}

	out = eval.Evaluate(form, map[string]any{"a": "yes"})
	seq = EffectiveSequence(form, out)
	if got := blockIDs(seq); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("a=yes: unexpected sequence %v", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	eval := New()
	form := conditionalForm()
	responses := map[string]any{"a": "yes"}

	first := eval.Evaluate(form, responses)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, eval.Evaluate(form, responses)); diff != "" {
			t.Fatalf("evaluation not deterministic (-first +later):\n%s", diff)
		}
	}
}

func TestEvaluate_LastWriteWins(t *testing.T) {
	form := schema.Form{
		Blocks: []schema.Block{
			{ID: "a", Type: schema.BlockShortText},
			{ID: "b", Type: schema.BlockShortText},
		},
		LogicRules: []schema.LogicRule{{
			ID:         "hide-b",
			Conditions: []schema.Condition{{BlockID: "a", Operator: schema.OpIsNotEmpty}},
			Actions:    []schema.Action{{Type: schema.ActionHide, BlockID: "b"}},
		}, {
			ID:         "show-b",
			Conditions: []schema.Condition{{BlockID: "a", Operator: schema.OpIsNotEmpty}},
			Actions:    []schema.Action{{Type: schema.ActionShow, BlockID: "b"}},
		}},
	}

	out := New().Evaluate(form, map[string]any{"a": "x"})
	if !out["b"].Visible {
		t.Fatalf("later rule should override earlier hide")
	}
}

func TestEvaluate_ZeroConditionsNeverFires(t *testing.T) {
	form := schema.Form{
		Blocks: []schema.Block{{ID: "a", Type: schema.BlockShortText}},
		LogicRules: []schema.LogicRule{{
			ID:      "empty",
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "a"}},
		}},
	}

	out := New().Evaluate(form, nil)
	if !out["a"].Visible {
		t.Fatalf("rule with zero conditions must not fire")
	}
}

func TestEvaluate_RequireUnrequire(t *testing.T) {
	form := schema.Form{
		Blocks: []schema.Block{
			{ID: "a", Type: schema.BlockShortText},
			{ID: "b", Type: schema.BlockShortText, Required: true},
		},
		LogicRules: []schema.LogicRule{{
			ID:         "toggle",
			Conditions: []schema.Condition{{BlockID: "a", Operator: schema.OpEquals, Value: "strict"}},
			Actions: []schema.Action{
				{Type: schema.ActionRequire, BlockID: "a"},
				{Type: schema.ActionUnrequire, BlockID: "b"},
			},
		}},
	}

	out := New().Evaluate(form, map[string]any{"a": "strict"})
	if !out["a"].Required {
		t.Fatalf("a should be required after rule fires")
	}
	if out["b"].Required {
		t.Fatalf("b should be unrequired after rule fires")
	}

	out = New().Evaluate(form, map[string]any{"a": "lax"})
	if out["a"].Required || !out["b"].Required {
		t.Fatalf("static required flags should hold when rule is idle")
	}
}

func TestEvaluate_UnknownActionTargetSkipped(t *testing.T) {
	form := schema.Form{
		Blocks: []schema.Block{{ID: "a", Type: schema.BlockShortText}},
		LogicRules: []schema.LogicRule{{
			ID:         "dangling",
			Conditions: []schema.Condition{{BlockID: "a", Operator: schema.OpIsNotEmpty}},
			Actions: []schema.Action{
				{Type: schema.ActionHide, BlockID: "ghost"},
				{Type: schema.ActionHide, BlockID: "a"},
			},
		}},
	}

	out := New().Evaluate(form, map[string]any{"a": "x"})
	if _, ok := out["ghost"]; ok {
		t.Fatalf("unknown target must not appear in outcome")
	}
	if out["a"].Visible {
		t.Fatalf("actions after an unknown target must still apply")
	}
}

func TestConditionHolds_AbsenceSemantics(t *testing.T) {
	cases := []struct {
		op   schema.Operator
		want bool
	}{
		{schema.OpIsEmpty, true},
		{schema.OpNotEquals, true},
		{schema.OpNotContains, true},
		{schema.OpEquals, false},
		{schema.OpContains, false},
		{schema.OpStartsWith, false},
		{schema.OpEndsWith, false},
		{schema.OpGreaterThan, false},
		{schema.OpLessThan, false},
		{schema.OpIsNotEmpty, false},
	}
	for _, tc := range cases {
		cond := schema.Condition{BlockID: "missing", Operator: tc.op, Value: "x"}
		if got := conditionHolds(cond, map[string]any{}); got != tc.want {
			t.Errorf("%s on absent answer: got %v, want %v", tc.op, got, tc.want)
		}
	}
}

func TestConditionHolds_NilAnswerIsAbsent(t *testing.T) {
	cond := schema.Condition{BlockID: "a", Operator: schema.OpIsEmpty}
	if !conditionHolds(cond, map[string]any{"a": nil}) {
		t.Fatalf("nil answer should behave like an absent one")
	}
}

func TestConditionHolds_Operators(t *testing.T) {
	responses := map[string]any{
		"text":  "hello world",
		"num":   7.5,
		"multi": []string{"red", "blue"},
	}
	cases := []struct {
		name string
		cond schema.Condition
		want bool
	}{
		{"equals", schema.Condition{BlockID: "text", Operator: schema.OpEquals, Value: "hello world"}, true},
		{"not_equals", schema.Condition{BlockID: "text", Operator: schema.OpNotEquals, Value: "bye"}, true},
		{"contains", schema.Condition{BlockID: "text", Operator: schema.OpContains, Value: "lo wo"}, true},
		{"not_contains", schema.Condition{BlockID: "text", Operator: schema.OpNotContains, Value: "xyz"}, true},
		{"starts_with", schema.Condition{BlockID: "text", Operator: schema.OpStartsWith, Value: "hello"}, true},
		{"ends_with", schema.Condition{BlockID: "text", Operator: schema.OpEndsWith, Value: "world"}, true},
		{"greater_than", schema.Condition{BlockID: "num", Operator: schema.OpGreaterThan, Value: "7"}, true},
		{"less_than", schema.Condition{BlockID: "num", Operator: schema.OpLessThan, Value: "7"}, false},
		{"greater_than non-numeric", schema.Condition{BlockID: "text", Operator: schema.OpGreaterThan, Value: "1"}, false},
		{"multi contains", schema.Condition{BlockID: "multi", Operator: schema.OpContains, Value: "blue"}, true},
		{"multi not_contains", schema.Condition{BlockID: "multi", Operator: schema.OpNotContains, Value: "green"}, true},
		{"is_not_empty", schema.Condition{BlockID: "multi", Operator: schema.OpIsNotEmpty}, true},
	}
	for _, tc := range cases {
		if got := conditionHolds(tc.cond, responses); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAnswerEmpty(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"   ", true},
		{"x", false},
		{[]string{}, true},
		{[]string{"a"}, false},
		{[]any{}, true},
		{0.0, false},
		{false, false},
	}
	for _, tc := range cases {
		if got := AnswerEmpty(tc.value); got != tc.want {
			t.Errorf("AnswerEmpty(%#v): got %v, want %v", tc.value, got, tc.want)
		}
	}
}
