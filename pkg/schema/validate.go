package schema

import (
	"fmt"
	"strings"
)

// Validate checks structural invariants of a form: non-empty block ids,
// id uniqueness, known block kinds, known condition operators, and condition
// references pointing at existing blocks. Action targets are deliberately not
// validated here; the evaluator skips unknown action targets at runtime so a
// deleted block does not invalidate a stored form.
func Validate(form Form) error {
	seen := make(map[string]struct{}, len(form.Blocks))
	for i, block := range form.Blocks {
		id := strings.TrimSpace(block.ID)
		if id == "" {
			return fmt.Errorf("schema: block %d has an empty id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("schema: duplicate block id %q", id)
		}
		seen[id] = struct{}{}

		if !KnownType(block.Type) {
			return UnknownBlockKindError{Kind: block.Type}
		}
		if IsChoice(block.Type) && len(block.Options) == 0 {
			return fmt.Errorf("schema: block %q of kind %s has no options", id, block.Type)
		}
	}

	for _, rule := range form.LogicRules {
		for _, cond := range rule.Conditions {
			if !KnownOperator(cond.Operator) {
				return fmt.Errorf("schema: rule %q uses unknown operator %q", rule.ID, cond.Operator)
			}
			if _, ok := seen[cond.BlockID]; !ok {
				return UnknownBlockError{BlockID: cond.BlockID}
			}
			if cond.Operator == OpGreaterThan || cond.Operator == OpLessThan {
				block, _ := form.Block(cond.BlockID)
				if !IsNumeric(block.Type) {
					return fmt.Errorf("schema: rule %q applies %s to non-numeric block %q", rule.ID, cond.Operator, cond.BlockID)
				}
			}
		}
		for _, action := range rule.Actions {
			switch action.Type {
			case ActionShow, ActionHide, ActionRequire, ActionUnrequire:
			default:
				return fmt.Errorf("schema: rule %q uses unknown action type %q", rule.ID, action.Type)
			}
		}
	}

	return nil
}
