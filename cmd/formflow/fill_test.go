package main

import (
	"context"
	"testing"

	"github.com/goliatone/go-formflow/pkg/schema"
)

type scriptDriver struct {
	inputs  []string
	selects []int
	multis  [][]int
	confirm bool
	info    []string
}

func (d *scriptDriver) Input(_ context.Context, _, _ string) (string, error) {
	if len(d.inputs) == 0 {
		return "", nil
	}
	out := d.inputs[0]
	d.inputs = d.inputs[1:]
	return out, nil
}

func (d *scriptDriver) Select(_ context.Context, _ string, _ []string) (int, error) {
	if len(d.selects) == 0 {
		return -1, nil
	}
	out := d.selects[0]
	d.selects = d.selects[1:]
	return out, nil
}

func (d *scriptDriver) MultiSelect(_ context.Context, _ string, _ []string) ([]int, error) {
	if len(d.multis) == 0 {
		return nil, nil
	}
	out := d.multis[0]
	d.multis = d.multis[1:]
	return out, nil
}

func (d *scriptDriver) TextArea(ctx context.Context, message, help string) (string, error) {
	return d.Input(ctx, message, help)
}

func (d *scriptDriver) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	return d.confirm, nil
}

func (d *scriptDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

type captureSink struct {
	formID string
	data   map[string]any
}

func (s *captureSink) Submit(_ context.Context, formID string, data map[string]any) (string, error) {
	s.formID = formID
	s.data = data
	return "sub-1", nil
}

func fillTestForm() schema.Form {
	return schema.Form{
		ID:    "f1",
		Title: "Team Survey",
		Blocks: []schema.Block{
			{ID: "name", Type: schema.BlockShortText, Question: "Your name?", Required: true},
			{ID: "team", Type: schema.BlockDropdown, Question: "Your team?", Options: []schema.Option{
				{Label: "Platform", Value: "platform"},
				{Label: "Product", Value: "product"},
			}},
			{ID: "happy", Type: schema.BlockScale, Question: "How happy are you?"},
			{ID: "gripes", Type: schema.BlockLongText, Question: "Any gripes?"},
		},
		LogicRules: []schema.LogicRule{{
			ID: "hide-gripes-when-happy",
			Conditions: []schema.Condition{
				{BlockID: "happy", Operator: schema.OpGreaterThan, Value: "7"},
			},
			Actions: []schema.Action{{Type: schema.ActionHide, BlockID: "gripes"}},
		}},
	}
}

func TestRunFill_SubmitsAnswers(t *testing.T) {
	driver := &scriptDriver{
		inputs:  []string{"Ada", "5", "slow builds"},
		selects: []int{0},
		confirm: true,
	}
	sink := &captureSink{}

	id, err := runFill(context.Background(), fillTestForm(), sink, driver)
	if err != nil {
		t.Fatalf("run fill: %v", err)
	}
	if id != "sub-1" {
		t.Fatalf("unexpected submission id: %s", id)
	}
	if sink.formID != "f1" {
		t.Fatalf("unexpected form id: %s", sink.formID)
	}
	if sink.data["Your name?"] != "Ada" {
		t.Fatalf("name answer missing: %+v", sink.data)
	}
	if sink.data["Your team?"] != "platform" {
		t.Fatalf("team answer missing: %+v", sink.data)
	}
	if sink.data["Any gripes?"] != "slow builds" {
		t.Fatalf("gripes answer missing: %+v", sink.data)
	}
}

func TestRunFill_RuleHidesFollowUp(t *testing.T) {
	driver := &scriptDriver{
		inputs:  []string{"Ada", "9"},
		selects: []int{1},
		confirm: true,
	}
	sink := &captureSink{}

	if _, err := runFill(context.Background(), fillTestForm(), sink, driver); err != nil {
		t.Fatalf("run fill: %v", err)
	}
	if _, ok := sink.data["Any gripes?"]; ok {
		t.Fatalf("hidden question was asked anyway: %+v", sink.data)
	}
}

func TestRunFill_AbortWithoutConfirm(t *testing.T) {
	driver := &scriptDriver{
		inputs:  []string{"Ada", "9"},
		selects: []int{0},
		confirm: false,
	}
	if _, err := runFill(context.Background(), fillTestForm(), &captureSink{}, driver); err != errAborted {
		t.Fatalf("expected errAborted, got %v", err)
	}
}
